package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	// Metrics are registered globally via promauto; a nil here means the
	// registration panicked at init.
	assert.NotNil(t, ProbeAttempts)
	assert.NotNil(t, ProbeFailures)
	assert.NotNil(t, ConfigRepairs)
	assert.NotNil(t, DependencyReady)
	assert.NotNil(t, BootstrapDuration)
}
