package config

import "os"

// Platform identifies which hosting platform the process is running under.
// It is derived once at startup from environment sentinels and never changes
// for the lifetime of the process.
type Platform string

const (
	PlatformRailway Platform = "railway"
	PlatformRender  Platform = "render"
	PlatformVercel  Platform = "vercel"
	PlatformHeroku  Platform = "heroku"
	// PlatformGeneric covers local/dev runs and unrecognized hosts.
	PlatformGeneric Platform = "generic"
)

// platformSentinel maps a platform to the environment variable whose presence
// identifies it. Detection checks these in order; the first match wins.
type platformSentinel struct {
	platform Platform
	envVar   string
}

// detectionOrder is the fixed priority order for platform detection.
// Railway is checked via two sentinels because older Railway runtimes only
// set RAILWAY_PROJECT_ID.
var detectionOrder = []platformSentinel{
	{PlatformRailway, "RAILWAY_ENVIRONMENT"},
	{PlatformRailway, "RAILWAY_PROJECT_ID"},
	{PlatformRender, "RENDER"},
	{PlatformVercel, "VERCEL"},
	{PlatformHeroku, "DYNO"},
}

// DetectPlatform inspects the process environment and returns the hosting
// platform. Absence of every sentinel is a normal local/dev run and yields
// PlatformGeneric; this function never fails.
func DetectPlatform() Platform {
	return DetectPlatformFrom(os.LookupEnv)
}

// DetectPlatformFrom is DetectPlatform with an injectable environment lookup,
// used by tests and by callers that snapshot the environment.
func DetectPlatformFrom(lookup func(string) (string, bool)) Platform {
	for _, s := range detectionOrder {
		if v, ok := lookup(s.envVar); ok && v != "" {
			return s.platform
		}
	}
	return PlatformGeneric
}

// KnownPlatforms returns every platform the defaults table has a row for.
func KnownPlatforms() []Platform {
	return []Platform{PlatformRailway, PlatformRender, PlatformVercel, PlatformHeroku, PlatformGeneric}
}
