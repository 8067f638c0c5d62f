package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"filemanager/metrics"
)

// StartupMode defines how the bootstrap sequence handles a dependency that
// never becomes ready.
type StartupMode string

const (
	// StartupModeGraceful starts the application anyway and defers the
	// failure to the first real request (default, matches the deployed
	// startup scripts).
	StartupModeGraceful StartupMode = "graceful"
	// StartupModeStrict exits non-zero when the database never comes up.
	StartupModeStrict StartupMode = "strict"
)

// PlatformDefaults is one row of the per-platform configuration table.
// Adding support for a new hosting platform means adding one row here and
// one sentinel in platform.go, nothing else.
type PlatformDefaults struct {
	Port                  int
	Workers               int
	PoolSize              int
	MaxOverflow           int
	PoolRecycleSeconds    int
	ConnectTimeoutSeconds int
	UploadDir             string
}

// platformDefaults holds the hard-coded defaults for every recognized
// platform. Values mirror what each platform's runtime expects: Render
// assigns port 10000 and recycles connections under its 300s idle cutoff,
// Vercel is serverless so the pool is minimal, everything else binds 5000.
var platformDefaults = map[Platform]PlatformDefaults{
	PlatformRailway: {Port: 5000, Workers: 4, PoolSize: 10, MaxOverflow: 20, PoolRecycleSeconds: 300, ConnectTimeoutSeconds: 10, UploadDir: "uploads"},
	PlatformRender:  {Port: 10000, Workers: 2, PoolSize: 5, MaxOverflow: 10, PoolRecycleSeconds: 280, ConnectTimeoutSeconds: 30, UploadDir: "uploads"},
	PlatformVercel:  {Port: 3000, Workers: 1, PoolSize: 1, MaxOverflow: 0, PoolRecycleSeconds: 60, ConnectTimeoutSeconds: 10, UploadDir: "/tmp/uploads"},
	PlatformHeroku:  {Port: 5000, Workers: 4, PoolSize: 10, MaxOverflow: 20, PoolRecycleSeconds: 300, ConnectTimeoutSeconds: 10, UploadDir: "uploads"},
	PlatformGeneric: {Port: 5000, Workers: 4, PoolSize: 5, MaxOverflow: 10, PoolRecycleSeconds: 1800, ConnectTimeoutSeconds: 10, UploadDir: "uploads"},
}

// DefaultsFor returns the defaults table row for a platform, falling back to
// the generic row for anything unrecognized.
func DefaultsFor(p Platform) PlatformDefaults {
	if d, ok := platformDefaults[p]; ok {
		return d
	}
	return platformDefaults[PlatformGeneric]
}

// Config holds all configuration for the service. It is built once during
// bootstrap and treated as immutable afterwards; every component receives it
// by parameter instead of reading the environment ad hoc.
type Config struct {
	// Platform is the detected hosting platform, recorded for logging and
	// the health endpoint. Not read from file.
	Platform Platform `mapstructure:"-"`

	StartupMode StartupMode `mapstructure:"startup_mode"`

	Server struct {
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
		Workers int    `mapstructure:"workers"`
		// AppCommand is the collaborator web application process the
		// sequencer hands off to. Empty means no handoff (ops server only).
		// The APP_COMMAND environment form is a whitespace-separated
		// command line.
		AppCommand []string `mapstructure:"app_command"`
	} `mapstructure:"server"`

	Ops struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"ops"`

	Database struct {
		URL                   string `mapstructure:"url"`
		PoolSize              int    `mapstructure:"pool_size"`
		MaxOverflow           int    `mapstructure:"max_overflow"`
		PoolRecycleSeconds    int    `mapstructure:"pool_recycle_seconds"`
		ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
	} `mapstructure:"database"`

	Storage struct {
		UploadDir string `mapstructure:"upload_dir"`
	} `mapstructure:"storage"`

	Bootstrap struct {
		MaxAttempts       int `mapstructure:"max_attempts"`
		RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
	} `mapstructure:"bootstrap"`

	// Admin credentials are opaque to the sequencer. They are passed through
	// to the collaborator application environment untouched.
	Admin struct {
		User1 string `mapstructure:"user1"`
		Pass1 string `mapstructure:"pass1"`
		User2 string `mapstructure:"user2"`
		Pass2 string `mapstructure:"pass2"`
	} `mapstructure:"admin"`

	SecretKey string `mapstructure:"secret_key"`
}

// setDefaults seeds the viper instance with the defaults table row for the
// detected platform plus the platform-independent defaults.
func setDefaults(v *viper.Viper, p Platform) {
	d := DefaultsFor(p)

	v.SetDefault("startup_mode", string(StartupModeGraceful))

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", d.Port)
	v.SetDefault("server.workers", d.Workers)
	v.SetDefault("server.app_command", []string{})

	v.SetDefault("ops.port", 9090)

	v.SetDefault("database.url", "")
	v.SetDefault("database.pool_size", d.PoolSize)
	v.SetDefault("database.max_overflow", d.MaxOverflow)
	v.SetDefault("database.pool_recycle_seconds", d.PoolRecycleSeconds)
	v.SetDefault("database.connect_timeout_seconds", d.ConnectTimeoutSeconds)

	v.SetDefault("storage.upload_dir", d.UploadDir)

	// Canonical retry budget: 30 attempts, 2 seconds apart.
	v.SetDefault("bootstrap.max_attempts", 30)
	v.SetDefault("bootstrap.retry_delay_seconds", 2)

	v.SetDefault("admin.user1", "")
	v.SetDefault("admin.pass1", "")
	v.SetDefault("admin.user2", "")
	v.SetDefault("admin.pass2", "")
	v.SetDefault("secret_key", "")
}

// loadFromEnv binds the environment variables the hosting platforms actually
// inject. The short legacy names (PORT, DATABASE_URL, ...) predate this
// service and are what Railway/Render/Heroku provide.
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix("FILEMANAGER")
	v.AutomaticEnv()

	_ = v.BindEnv("startup_mode", "FILEMANAGER_STARTUP_MODE")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("storage.upload_dir", "UPLOAD_FOLDER")
	_ = v.BindEnv("admin.user1", "ADMIN_USER_1")
	_ = v.BindEnv("admin.pass1", "ADMIN_PASS_1")
	_ = v.BindEnv("admin.user2", "ADMIN_USER_2")
	_ = v.BindEnv("admin.pass2", "ADMIN_PASS_2")
	_ = v.BindEnv("secret_key", "SECRET_KEY")
}

// numericOverride is one environment variable that may override a numeric
// setting. Values that do not parse are logged and ignored rather than
// aborting startup.
type numericOverride struct {
	envVar string
	min    int
	max    int
	apply  func(c *Config, value int)
}

// PORT is absent here: it goes through RepairPort in loadConfigFrom so the
// placeholder value some platform templates inject gets its own log line.
var numericOverrides = []numericOverride{
	{"WEB_CONCURRENCY", 1, 1024, func(c *Config, v int) { c.Server.Workers = v }},
	{"OPS_PORT", 1, 65535, func(c *Config, v int) { c.Ops.Port = v }},
	{"DB_POOL_SIZE", 1, 1000, func(c *Config, v int) { c.Database.PoolSize = v }},
	{"DB_MAX_OVERFLOW", 0, 1000, func(c *Config, v int) { c.Database.MaxOverflow = v }},
	{"DB_POOL_RECYCLE", 1, 86400, func(c *Config, v int) { c.Database.PoolRecycleSeconds = v }},
	{"DB_CONNECT_TIMEOUT", 1, 300, func(c *Config, v int) { c.Database.ConnectTimeoutSeconds = v }},
	{"BOOTSTRAP_MAX_ATTEMPTS", 1, 10000, func(c *Config, v int) { c.Bootstrap.MaxAttempts = v }},
	{"BOOTSTRAP_RETRY_DELAY", 0, 3600, func(c *Config, v int) { c.Bootstrap.RetryDelaySeconds = v }},
}

// applyNumericOverrides applies environment overrides for numeric settings.
// A value that is absent keeps the profile default. A value that is present
// but malformed or out of range is logged with the raw value and the default
// that replaces it; it never aborts the process.
func applyNumericOverrides(c *Config, lookup func(string) (string, bool), sugar *zap.SugaredLogger) {
	for _, o := range numericOverrides {
		raw, ok := lookup(o.envVar)
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < o.min || n > o.max {
			if sugar != nil {
				sugar.Warnw("Ignoring invalid numeric override, keeping platform default",
					"variable", o.envVar,
					"raw_value", raw,
					"allowed_range", fmt.Sprintf("%d-%d", o.min, o.max))
			}
			continue
		}
		o.apply(c, n)
	}
}

// RepairPort parses a raw port value, substituting fallback when the value is
// absent, non-numeric (including the literal placeholder text "port" some
// platforms inject), or out of range. It is total: it never returns an error.
func RepairPort(raw string, fallback int, sugar *zap.SugaredLogger) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 65535 {
		metrics.ConfigRepairs.WithLabelValues("port").Inc()
		if sugar != nil {
			sugar.Warnw("Invalid PORT value, substituting default",
				"raw_value", raw,
				"default", fallback)
		}
		return fallback
	}
	return n
}

// LoadConfig builds the configuration for the detected platform from the
// defaults table, an optional config.yaml, and environment overrides, in
// that precedence order (lowest to highest).
func LoadConfig(platform Platform, sugar *zap.SugaredLogger) (*Config, error) {
	return loadConfigFrom(platform, os.LookupEnv, sugar)
}

func loadConfigFrom(platform Platform, lookup func(string) (string, bool), sugar *zap.SugaredLogger) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v, platform)
	loadFromEnv(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Platform = platform

	// Viper coerces a malformed numeric env value to zero instead of
	// reporting it, so numeric overrides go through the repair path where the
	// raw string is still visible.
	if raw, ok := lookup("PORT"); ok {
		cfg.Server.Port = RepairPort(raw, DefaultsFor(platform).Port, sugar)
	}
	applyNumericOverrides(&cfg, lookup, sugar)

	// APP_COMMAND is one shell-less command line ("gunicorn app:app"); split
	// it on whitespace here because viper's slice hook would split on commas
	// and hand exec a single argv element.
	if raw, ok := lookup("APP_COMMAND"); ok && raw != "" {
		cfg.Server.AppCommand = strings.Fields(raw)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validateConfig checks the invariants that the repair paths cannot fix.
func validateConfig(c *Config) error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Ops.Port < 1 || c.Ops.Port > 65535 {
		return fmt.Errorf("invalid ops port: %d (must be 1-65535)", c.Ops.Port)
	}
	if c.Database.PoolSize < 1 {
		return fmt.Errorf("database pool size must be positive, got %d", c.Database.PoolSize)
	}
	if c.Bootstrap.MaxAttempts < 1 {
		return fmt.Errorf("bootstrap max attempts must be positive, got %d", c.Bootstrap.MaxAttempts)
	}
	switch c.StartupMode {
	case StartupModeGraceful, StartupModeStrict, "":
	default:
		return fmt.Errorf("invalid startup mode: %q (must be graceful or strict)", c.StartupMode)
	}
	return nil
}

// IsStrictMode reports whether a dependency that never becomes ready should
// abort startup instead of deferring the failure to the first request.
func (c *Config) IsStrictMode() bool {
	return c.StartupMode == StartupModeStrict
}

// RetryDelay returns the configured inter-attempt delay for the readiness loop.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Bootstrap.RetryDelaySeconds) * time.Second
}

// ConnectTimeout returns the database connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Database.ConnectTimeoutSeconds) * time.Second
}
