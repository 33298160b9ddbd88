// Package config reads the assembler's environment-variable overrides
// via github.com/xyproto/env/v2, the same small getenv-wrapper library
// the teacher's own go.mod already carries (used there as a transitive
// dependency of its build tooling; here it gets an actual caller).
package config

import "github.com/xyproto/env/v2"

// Config holds every environment-tunable assembler setting.
type Config struct {
	// OutDir is the deploy directory used when no -o flag is given on
	// the command line; an explicit -o takes precedence.
	OutDir string
	// NoColor disables ANSI diagnostic coloring.
	NoColor bool
	// WatchDebounceMs is how long the watch-mode file watcher waits
	// after the last change event before re-assembling.
	WatchDebounceMs int
}

// Load reads SBPF_OUT_DIR, SBPF_NO_COLOR, and SBPF_WATCH_DEBOUNCE_MS
// from the environment, falling back to sensible defaults.
func Load() Config {
	return Config{
		OutDir:          env.Str("SBPF_OUT_DIR", ""),
		NoColor:         env.Bool("SBPF_NO_COLOR"),
		WatchDebounceMs: env.Int("SBPF_WATCH_DEBOUNCE_MS", 150),
	}
}
