// Package api serves the operational endpoints of the bootstrap sequencer:
// health, readiness, and metrics. The application's own routes live in the
// collaborator process, not here.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"filemanager/config"
)

// ReadinessReporter exposes the sequencer's last known dependency readiness.
type ReadinessReporter interface {
	Ready() bool
	LastChecked() time.Time
}

// DependencyProber performs one live health round trip against the database.
type DependencyProber interface {
	Probe(ctx context.Context) error
}

// API holds the ops HTTP server.
type API struct {
	router    *mux.Router
	server    *http.Server
	readiness ReadinessReporter
	db        DependencyProber
	config    *config.Config
	logger    *zap.SugaredLogger
}

// NewAPI creates the ops server. db may be nil when no database endpoint was
// configured; /health then reports it as unconfigured.
func NewAPI(readiness ReadinessReporter, db DependencyProber, cfg *config.Config, logger *zap.SugaredLogger) *API {
	a := &API{
		router:    mux.NewRouter(),
		readiness: readiness,
		db:        db,
		config:    cfg,
		logger:    logger,
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.HandleFunc("/ready", a.readyCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Handler returns the router, for tests.
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the ops server on the given address. Blocks until Stop.
func (a *API) Start(addr string) error {
	a.server = &http.Server{
		Addr:    addr,
		Handler: a.router,
	}
	return a.server.ListenAndServe()
}

// Stop gracefully shuts the ops server down.
func (a *API) Stop(ctx context.Context) error {
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}
