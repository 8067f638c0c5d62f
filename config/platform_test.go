package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDetectPlatformFrom(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected Platform
	}{
		{"no sentinels is a local run", map[string]string{}, PlatformGeneric},
		{"railway environment", map[string]string{"RAILWAY_ENVIRONMENT": "production"}, PlatformRailway},
		{"railway project id only", map[string]string{"RAILWAY_PROJECT_ID": "abc123"}, PlatformRailway},
		{"render", map[string]string{"RENDER": "1"}, PlatformRender},
		{"vercel", map[string]string{"VERCEL": "1"}, PlatformVercel},
		{"heroku dyno", map[string]string{"DYNO": "web.1"}, PlatformHeroku},
		{"empty sentinel value is absence", map[string]string{"RENDER": ""}, PlatformGeneric},
		{
			"railway wins over render in priority order",
			map[string]string{"RAILWAY_ENVIRONMENT": "production", "RENDER": "1"},
			PlatformRailway,
		},
		{
			"render wins over vercel",
			map[string]string{"RENDER": "1", "VERCEL": "1"},
			PlatformRender,
		},
		{
			"unrelated variables are ignored",
			map[string]string{"HOME": "/root", "PATH": "/usr/bin"},
			PlatformGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatformFrom(lookupFrom(tt.env)))
		})
	}
}

func TestKnownPlatformsHaveDefaults(t *testing.T) {
	for _, p := range KnownPlatforms() {
		d := DefaultsFor(p)
		assert.Positive(t, d.Port, "platform %s has no default port", p)
		assert.Positive(t, d.PoolSize, "platform %s has no default pool size", p)
		assert.NotEmpty(t, d.UploadDir, "platform %s has no default upload dir", p)
	}
}

func TestDefaultsForUnknownPlatformFallsBack(t *testing.T) {
	assert.Equal(t, DefaultsFor(PlatformGeneric), DefaultsFor(Platform("flyio")))
}
