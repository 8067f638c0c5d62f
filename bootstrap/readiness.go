package bootstrap

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"filemanager/metrics"
)

// Probe attempts one connection/health round trip against the required
// external dependency. How the round trip is made is the caller's business;
// the sequencer only retries it.
type Probe func() error

// Readiness holds the last known result of the dependency readiness check.
// It is written by the bootstrap sequence and read by the health endpoint at
// request time.
type Readiness struct {
	mu        sync.RWMutex
	ready     bool
	checkedAt time.Time
}

// NewReadiness returns a Readiness that reports not-ready until the first Set.
func NewReadiness() *Readiness {
	return &Readiness{}
}

// Set records a readiness result.
func (r *Readiness) Set(ready bool) {
	r.mu.Lock()
	r.ready = ready
	r.checkedAt = time.Now()
	r.mu.Unlock()

	if ready {
		metrics.DependencyReady.Set(1)
	} else {
		metrics.DependencyReady.Set(0)
	}
}

// Ready returns the last known readiness state.
func (r *Readiness) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// LastChecked returns when readiness was last recorded. Zero if never.
func (r *Readiness) LastChecked() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkedAt
}

// AwaitDependencyReady calls probe until it succeeds or maxAttempts
// consecutive failures occur, sleeping delay between attempts. Attempts are
// strictly sequential on the calling thread; nothing useful can happen in
// this process before the dependency resolves, so blocking here is the point.
// The delay is fixed rather than exponential, which is fine at this attempt
// count.
//
// Returns true on success and false after the budget is exhausted; it never
// panics or propagates the probe's error. The caller decides whether
// exhaustion is fatal.
func AwaitDependencyReady(probe Probe, maxAttempts int, delay time.Duration, sugar *zap.SugaredLogger) bool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		metrics.ProbeAttempts.Inc()

		err := probe()
		if err == nil {
			sugar.Infow("Dependency ready", "attempt", attempt)
			return true
		}

		metrics.ProbeFailures.Inc()
		sugar.Warnw("Dependency probe failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err)

		if attempt < maxAttempts {
			sugar.Infof("Retrying in %s...", delay)
			time.Sleep(delay)
		}
	}

	sugar.Errorw("Dependency not ready after all attempts", "attempts", maxAttempts)
	return false
}
