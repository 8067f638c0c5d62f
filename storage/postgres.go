// Package storage provides the Postgres connection handle used by the
// bootstrap sequencer for readiness probes and schema setup.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"filemanager/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Postgres holds the database connection pool.
type Postgres struct {
	DB     *sql.DB
	Config *config.Config
	Logger *zap.SugaredLogger
}

// NewPostgres opens a connection pool against the given endpoint and verifies
// it with a ping. Pool sizing follows the configuration profile: the pool may
// grow to pool_size + max_overflow connections, idles at pool_size, and
// recycles connections after pool_recycle_seconds so platform-side idle
// cutoffs never hand us a dead socket.
func NewPostgres(cfg *config.Config, endpoint *config.ConnectionEndpoint, logger *zap.SugaredLogger) (*Postgres, error) {
	dsn := fmt.Sprintf("%s?sslmode=prefer&connect_timeout=%d", endpoint.String(), cfg.Database.ConnectTimeoutSeconds)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.PoolSize + cfg.Database.MaxOverflow)
	db.SetMaxIdleConns(cfg.Database.PoolSize)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.PoolRecycleSeconds) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infow("Connected to Postgres successfully",
		"endpoint", endpoint.Redacted(),
		"pool_size", cfg.Database.PoolSize,
		"max_overflow", cfg.Database.MaxOverflow)

	return &Postgres{DB: db, Config: cfg, Logger: logger}, nil
}

// Probe performs one health round trip against the database. It is the probe
// operation the bootstrap readiness loop calls repeatedly.
func (p *Postgres) Probe(ctx context.Context) error {
	var one int
	if err := p.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database probe failed: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("database probe returned unexpected value %d", one)
	}
	return nil
}

// schemaDDL creates the collaborator application's tables when they do not
// exist yet. The sequencer only guarantees their presence; everything else
// about the data is the application's business.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(100) UNIQUE NOT NULL,
		email VARCHAR(150) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		id SERIAL PRIMARY KEY,
		filename TEXT NOT NULL,
		filepath TEXT,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		file_code VARCHAR(100) UNIQUE NOT NULL,
		tags VARCHAR(255),
		cabinet VARCHAR(100),
		shelf VARCHAR(100),
		box VARCHAR(100),
		user_id INTEGER NOT NULL REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS recycle_bin (
		id SERIAL PRIMARY KEY,
		file_code VARCHAR(100) NOT NULL,
		filename TEXT NOT NULL,
		filepath TEXT,
		deleted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		tags VARCHAR(255),
		cabinet VARCHAR(100),
		shelf VARCHAR(100),
		box VARCHAR(100),
		user_id INTEGER NOT NULL REFERENCES users(id)
	)`,
}

// EnsureSchema creates the application tables if they do not exist.
// Idempotent; safe to run on every boot.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := p.DB.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	p.Logger.Info("Database schema verified")
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	if p.DB == nil {
		return nil
	}
	return p.DB.Close()
}
