package config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"filemanager/metrics"
)

func testSugar() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestRepairPort(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback int
		expected int
	}{
		{"empty uses fallback", "", 5000, 5000},
		{"valid port passes through", "8080", 5000, 8080},
		{"literal placeholder text", "port", 10000, 10000},
		{"arbitrary text", "$PORT", 5000, 5000},
		{"negative", "-1", 5000, 5000},
		{"zero", "0", 5000, 5000},
		{"too large", "70000", 5000, 5000},
		{"upper bound", "65535", 5000, 65535},
		{"lower bound", "1", 5000, 1},
		{"float is not a port", "8080.5", 5000, 5000},
		{"whitespace", " 8080", 5000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RepairPort(tt.raw, tt.fallback, testSugar()))
		})
	}
}

func TestRepairPortNeverPanicsWithNilLogger(t *testing.T) {
	assert.Equal(t, 5000, RepairPort("garbage", 5000, nil))
}

func TestRepairPortCountsRepairs(t *testing.T) {
	counter := metrics.ConfigRepairs.WithLabelValues("port")

	before := testutil.ToFloat64(counter)
	RepairPort("port", 10000, testSugar())
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	// Valid and absent values are not repairs.
	RepairPort("8080", 5000, testSugar())
	RepairPort("", 5000, testSugar())
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestLoadConfigPlatformDefaults(t *testing.T) {
	tests := []struct {
		platform     Platform
		expectedPort int
		expectedPool int
	}{
		{PlatformRailway, 5000, 10},
		{PlatformRender, 10000, 5},
		{PlatformVercel, 3000, 1},
		{PlatformHeroku, 5000, 10},
		{PlatformGeneric, 5000, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			cfg, err := loadConfigFrom(tt.platform, lookupFrom(nil), testSugar())
			require.NoError(t, err)
			assert.Equal(t, tt.platform, cfg.Platform)
			assert.Equal(t, tt.expectedPort, cfg.Server.Port)
			assert.Equal(t, tt.expectedPool, cfg.Database.PoolSize)
		})
	}
}

func TestLoadConfigRetryBudgetDefaults(t *testing.T) {
	cfg, err := loadConfigFrom(PlatformGeneric, lookupFrom(nil), testSugar())
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Bootstrap.MaxAttempts)
	assert.Equal(t, 2, cfg.Bootstrap.RetryDelaySeconds)
	assert.Equal(t, StartupModeGraceful, cfg.StartupMode)
}

func TestLoadConfigPortOverride(t *testing.T) {
	t.Run("valid override wins", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		cfg, err := loadConfigFrom(PlatformRailway, lookupFrom(map[string]string{"PORT": "8080"}), testSugar())
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("literal placeholder falls back to platform default", func(t *testing.T) {
		t.Setenv("PORT", "port")
		cfg, err := loadConfigFrom(PlatformRender, lookupFrom(map[string]string{"PORT": "port"}), testSugar())
		require.NoError(t, err)
		assert.Equal(t, 10000, cfg.Server.Port)
	})

	t.Run("empty override keeps default", func(t *testing.T) {
		cfg, err := loadConfigFrom(PlatformRailway, lookupFrom(map[string]string{"PORT": ""}), testSugar())
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})
}

func TestNumericOverrides(t *testing.T) {
	t.Run("valid values apply", func(t *testing.T) {
		cfg, err := loadConfigFrom(PlatformGeneric, lookupFrom(map[string]string{
			"DB_POOL_SIZE":           "25",
			"DB_POOL_RECYCLE":        "600",
			"WEB_CONCURRENCY":        "8",
			"BOOTSTRAP_MAX_ATTEMPTS": "5",
			"BOOTSTRAP_RETRY_DELAY":  "1",
		}), testSugar())
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.PoolSize)
		assert.Equal(t, 600, cfg.Database.PoolRecycleSeconds)
		assert.Equal(t, 8, cfg.Server.Workers)
		assert.Equal(t, 5, cfg.Bootstrap.MaxAttempts)
		assert.Equal(t, 1, cfg.Bootstrap.RetryDelaySeconds)
	})

	t.Run("malformed values keep defaults and never error", func(t *testing.T) {
		cfg, err := loadConfigFrom(PlatformGeneric, lookupFrom(map[string]string{
			"DB_POOL_SIZE":    "lots",
			"DB_POOL_RECYCLE": "-5",
			"WEB_CONCURRENCY": "4.5",
		}), testSugar())
		require.NoError(t, err)
		d := DefaultsFor(PlatformGeneric)
		assert.Equal(t, d.PoolSize, cfg.Database.PoolSize)
		assert.Equal(t, d.PoolRecycleSeconds, cfg.Database.PoolRecycleSeconds)
		assert.Equal(t, d.Workers, cfg.Server.Workers)
	})

	t.Run("out of range values keep defaults", func(t *testing.T) {
		cfg, err := loadConfigFrom(PlatformGeneric, lookupFrom(map[string]string{
			"DB_CONNECT_TIMEOUT": "100000",
		}), testSugar())
		require.NoError(t, err)
		assert.Equal(t, DefaultsFor(PlatformGeneric).ConnectTimeoutSeconds, cfg.Database.ConnectTimeoutSeconds)
	})
}

func TestAppCommandSplitsOnWhitespace(t *testing.T) {
	cfg, err := loadConfigFrom(PlatformGeneric, lookupFrom(map[string]string{
		"APP_COMMAND": "gunicorn app:app --bind 0.0.0.0:5000",
	}), testSugar())
	require.NoError(t, err)
	assert.Equal(t, []string{"gunicorn", "app:app", "--bind", "0.0.0.0:5000"}, cfg.Server.AppCommand)

	cfg, err = loadConfigFrom(PlatformGeneric, lookupFrom(nil), testSugar())
	require.NoError(t, err)
	assert.Empty(t, cfg.Server.AppCommand)
}

func TestLoadConfigEndToEndGenericLocal(t *testing.T) {
	// A bare local run: no sentinels, no PORT, nothing set.
	cfg, err := loadConfigFrom(DetectPlatformFrom(lookupFrom(nil)), lookupFrom(nil), testSugar())
	require.NoError(t, err)

	assert.Equal(t, PlatformGeneric, cfg.Platform)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
}

func TestStartupModeValidation(t *testing.T) {
	t.Setenv("FILEMANAGER_STARTUP_MODE", "sideways")
	_, err := loadConfigFrom(PlatformGeneric, lookupFrom(nil), testSugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup mode")
}

func TestConfigDurationHelpers(t *testing.T) {
	cfg, err := loadConfigFrom(PlatformGeneric, lookupFrom(map[string]string{
		"BOOTSTRAP_RETRY_DELAY": "3",
		"DB_CONNECT_TIMEOUT":    "7",
	}), testSugar())
	require.NoError(t, err)

	assert.Equal(t, "3s", cfg.RetryDelay().String())
	assert.Equal(t, "7s", cfg.ConnectTimeout().String())
	assert.False(t, cfg.IsStrictMode())
}
