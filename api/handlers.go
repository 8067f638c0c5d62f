package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// healthResponse is the /health payload. Database state is probed live on
// every request: the boot sequence is fail-open, so this is where an
// unavailable database actually surfaces.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Platform string `json:"platform"`
	Time     string `json:"time"`
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "healthy",
		Database: "unconfigured",
		Platform: string(a.config.Platform),
		Time:     time.Now().Format(time.RFC3339),
	}

	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.Probe(ctx); err != nil {
			a.logger.Warnw("Health check database probe failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "down"
		} else {
			resp.Database = "up"
		}
	} else {
		// No database handle: either none was configured or the boot-time
		// retry budget was exhausted. Fail-open at boot means this is the
		// first place the condition is visible.
		resp.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}

// readyCheck reports the sequencer's last known readiness without touching
// the database, so platform health checks stay cheap.
func (a *API) readyCheck(w http.ResponseWriter, r *http.Request) {
	type readyResponse struct {
		Ready     bool   `json:"ready"`
		CheckedAt string `json:"checked_at,omitempty"`
	}

	resp := readyResponse{Ready: a.readiness.Ready()}
	if t := a.readiness.LastChecked(); !t.IsZero() {
		resp.CheckedAt = t.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}
