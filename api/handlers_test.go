package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"filemanager/config"
)

type fakeReadiness struct {
	ready     bool
	checkedAt time.Time
}

func (f *fakeReadiness) Ready() bool            { return f.ready }
func (f *fakeReadiness) LastChecked() time.Time { return f.checkedAt }

type fakeProber struct {
	err error
}

func (f *fakeProber) Probe(ctx context.Context) error { return f.err }

func newTestAPI(readiness ReadinessReporter, db DependencyProber) *API {
	cfg := &config.Config{Platform: config.PlatformRender}
	return NewAPI(readiness, db, cfg, zap.NewNop().Sugar())
}

func doRequest(t *testing.T, a *API, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckDatabaseUp(t *testing.T) {
	a := newTestAPI(&fakeReadiness{ready: true}, &fakeProber{})

	rec := doRequest(t, a, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "up", resp.Database)
	assert.Equal(t, "render", resp.Platform)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	a := newTestAPI(&fakeReadiness{ready: true}, &fakeProber{err: errors.New("connection refused")})

	rec := doRequest(t, a, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Database)
}

func TestHealthCheckNoDatabaseConfigured(t *testing.T) {
	a := newTestAPI(&fakeReadiness{}, nil)

	rec := doRequest(t, a, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unconfigured", resp.Database)
}

func TestReadyCheckReady(t *testing.T) {
	checkedAt := time.Now().Add(-time.Minute)
	a := newTestAPI(&fakeReadiness{ready: true, checkedAt: checkedAt}, &fakeProber{})

	rec := doRequest(t, a, "/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Ready     bool   `json:"ready"`
		CheckedAt string `json:"checked_at"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, checkedAt.Format(time.RFC3339), resp.CheckedAt)
}

func TestReadyCheckNotReady(t *testing.T) {
	a := newTestAPI(&fakeReadiness{ready: false}, nil)

	rec := doRequest(t, a, "/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Ready     bool   `json:"ready"`
		CheckedAt string `json:"checked_at"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Ready)
	assert.Empty(t, resp.CheckedAt, "never-checked readiness should omit checked_at")
}

func TestReadyCheckDoesNotProbeDatabase(t *testing.T) {
	// /ready must stay cheap: last known state only, no live round trip.
	probeCalled := false
	a := newTestAPI(&fakeReadiness{ready: true}, probeFunc(func(ctx context.Context) error {
		probeCalled = true
		return nil
	}))

	doRequest(t, a, "/ready")
	assert.False(t, probeCalled)
}

type probeFunc func(ctx context.Context) error

func (f probeFunc) Probe(ctx context.Context) error { return f(ctx) }

func TestMetricsEndpointRegistered(t *testing.T) {
	a := newTestAPI(&fakeReadiness{}, nil)

	rec := doRequest(t, a, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
