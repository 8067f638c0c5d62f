package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"filemanager/api"
	"filemanager/config"
	"filemanager/metrics"
	"filemanager/storage"
)

// App holds everything the startup sequence produces. The configuration and
// endpoint are computed once in NewApp and never mutated afterwards.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Sugar    *zap.SugaredLogger
	Endpoint *config.ConnectionEndpoint

	Postgres  *storage.Postgres
	Readiness *Readiness
	APIServer *api.API

	child     *exec.Cmd
	childExit chan error
	serviceWg *sync.WaitGroup
}

// NewApp runs the boot sequence up to (but not including) handoff: platform
// detection, configuration selection, input validation and repair, the
// dependency readiness loop, and the storage probe.
//
// Only one condition is fatal here: a connection string whose grammar cannot
// be repaired. Every other failure is logged and deferred, matching the
// deployed behavior of starting the process manager regardless.
func NewApp(ctx context.Context) (*App, error) {
	start := time.Now()

	app := &App{
		Readiness: NewReadiness(),
		serviceWg: &sync.WaitGroup{},
	}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("File management service starting...")

	// Phase 1: detect where we are running.
	platform := config.DetectPlatform()
	sugar.Infow("Runtime platform detected", "platform", platform)

	// Phase 2: select configuration for the platform.
	cfg, err := config.LoadConfig(platform, sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	logConfigSummary(cfg, sugar)

	// Phase 3: validate and repair the connection string.
	if cfg.Database.URL == "" {
		sugar.Warn("DATABASE_URL is not set - the application may not work correctly without it")
	} else {
		endpoint, err := config.ParseDatabaseURL(cfg.Database.URL, sugar)
		if err != nil {
			// Unrepairable grammar: inventing a host or credentials could
			// connect us to an unintended endpoint. Halt with the diagnostic.
			return nil, fmt.Errorf("DATABASE_URL cannot be repaired: %w", err)
		}
		if endpoint.Repaired {
			metrics.ConfigRepairs.WithLabelValues("database_url").Inc()
			sugar.Infow("Database URL repaired", "endpoint", endpoint.Redacted())
		}
		app.Endpoint = endpoint
	}

	// Phase 4: wait for the database, recording the outcome either way.
	if app.Endpoint != nil {
		pg, ready := InitPostgres(cfg, app.Endpoint, sugar)
		app.Postgres = pg
		app.Readiness.Set(ready)
		if !ready && cfg.IsStrictMode() {
			return nil, fmt.Errorf("database not ready after %d attempts (startup_mode=strict)", cfg.Bootstrap.MaxAttempts)
		}
	} else {
		app.Readiness.Set(false)
	}

	// Phase 5: verify the upload directory is usable.
	if err := EnsureStoragePath(cfg.Storage.UploadDir, sugar); err != nil {
		sugar.Warnf("Upload directory not usable: %v - file operations will fail until this is fixed", err)
	}

	metrics.BootstrapDuration.Observe(time.Since(start).Seconds())
	return app, nil
}

// Start is the handoff step: it brings up the ops endpoints and launches
// the collaborator application process, unconditionally.
func (a *App) Start(ctx context.Context) error {
	var prober api.DependencyProber
	if a.Postgres != nil {
		prober = a.Postgres
	}
	a.APIServer = api.NewAPI(a.Readiness, prober, a.Config, a.Sugar)

	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		addr := fmt.Sprintf(":%d", a.Config.Ops.Port)
		a.Sugar.Infof("Ops server started on %s", addr)
		if err := a.APIServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorf("Ops server error: %v", err)
		}
	}()

	child, exit, err := launchApp(a.Config, a.Endpoint, a.Sugar)
	if err != nil {
		return err
	}
	a.child = child
	a.childExit = exit
	if child == nil {
		a.Sugar.Info("No application command configured - running ops endpoints only")
	}

	a.Sugar.Info("Startup sequence completed, ready to handle requests")
	return nil
}

// WaitForShutdown blocks until a shutdown signal arrives or the application
// process exits, and returns the exit code the sequencer should propagate.
func (a *App) WaitForShutdown() int {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
		return 0
	case err := <-a.childExit:
		// nil channel when no child; this arm then never fires.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			a.Sugar.Errorw("Application process exited", "code", exitErr.ExitCode())
			return exitErr.ExitCode()
		}
		if err != nil {
			a.Sugar.Errorw("Application process failed", "error", err)
			return 1
		}
		a.Sugar.Info("Application process exited cleanly")
		return 0
	}
}

// Shutdown tears down the ops server, the application process, and the
// database pool, in that order.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop ops server", "error", err)
		}
		cancel()
	}

	// ProcessState is set once Wait has completed; the exit channel is
	// already drained then, and the grace-period select would block its
	// full timeout on a process that is long gone.
	if a.child != nil && a.child.Process != nil && a.child.ProcessState == nil {
		a.Sugar.Info("Stopping application process...")
		_ = a.child.Process.Signal(syscall.SIGTERM)
		select {
		case <-a.childExit:
		case <-time.After(10 * time.Second):
			a.Sugar.Warn("Application process did not stop in time, killing")
			_ = a.child.Process.Kill()
		}
	}

	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			a.Sugar.Errorw("Failed to close database pool", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	a.Logger.Sync()
}

// logConfigSummary prints the effective configuration without secrets, the
// way the deploy scripts did ("SECRET_KEY: set / not set").
func logConfigSummary(cfg *config.Config, sugar *zap.SugaredLogger) {
	setOrNot := func(v string) string {
		if v == "" {
			return "not set"
		}
		return "set"
	}

	sugar.Infow("Configuration selected",
		"platform", cfg.Platform,
		"port", cfg.Server.Port,
		"workers", cfg.Server.Workers,
		"ops_port", cfg.Ops.Port,
		"upload_dir", cfg.Storage.UploadDir,
		"pool_size", cfg.Database.PoolSize,
		"max_overflow", cfg.Database.MaxOverflow,
		"pool_recycle_seconds", cfg.Database.PoolRecycleSeconds,
		"startup_mode", cfg.StartupMode,
		"database_url", setOrNot(cfg.Database.URL),
		"secret_key", setOrNot(cfg.SecretKey))
}
