package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"filemanager/config"
	"filemanager/storage"
)

// InitPostgres runs the dependency readiness loop against the configured
// endpoint. On success it returns a live connection handle with the schema
// verified. On exhaustion it prints an operator-facing banner and returns
// nil with ready=false; the caller decides (per startup mode) whether that
// aborts the boot or defers the failure to the first real request.
func InitPostgres(cfg *config.Config, endpoint *config.ConnectionEndpoint, sugar *zap.SugaredLogger) (*storage.Postgres, bool) {
	var (
		pg      *storage.Postgres
		lastErr error
	)

	probe := func() error {
		candidate, err := storage.NewPostgres(cfg, endpoint, sugar)
		if err != nil {
			lastErr = err
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout())
		defer cancel()
		if err := candidate.Probe(ctx); err != nil {
			candidate.Close()
			lastErr = err
			return err
		}

		pg = candidate
		return nil
	}

	sugar.Infow("Waiting for database connection...",
		"endpoint", endpoint.Redacted(),
		"max_attempts", cfg.Bootstrap.MaxAttempts,
		"retry_delay", cfg.RetryDelay())

	if !AwaitDependencyReady(probe, cfg.Bootstrap.MaxAttempts, cfg.RetryDelay(), sugar) {
		errMsg := ClassifyConnectionError(lastErr, endpoint.Redacted())
		fmt.Fprintf(os.Stderr, "\n========================================\n")
		fmt.Fprintf(os.Stderr, "WARNING: Database Not Ready\n")
		fmt.Fprintf(os.Stderr, "========================================\n")
		fmt.Fprintf(os.Stderr, "%s\n", errMsg)
		fmt.Fprintf(os.Stderr, "The application will start anyway; requests\n")
		fmt.Fprintf(os.Stderr, "that need the database will fail until it is\n")
		fmt.Fprintf(os.Stderr, "reachable.\n")
		fmt.Fprintf(os.Stderr, "========================================\n\n")
		return nil, false
	}

	// Make sure the application's tables exist before it serves its first
	// request. Failure here is logged, not fatal; the application retries
	// on first use.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pg.EnsureSchema(ctx); err != nil {
		sugar.Warnf("Failed to ensure database schema: %v - will retry on first request", err)
	}

	return pg, true
}
