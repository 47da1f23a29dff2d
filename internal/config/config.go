// Package config loads the optional engine tuning-knob YAML file accepted
// by --config, structurally identical in spirit to the teacher's
// database.ParseGeneratorConfig (sqldef-sqldef/database/database.go):
// an absent flag falls back to built-in defaults, while a named file that
// cannot be read or parsed is an error.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultChunkSize is the intra-operator fan-out chunk size used when no
// tuning file is given or it omits chunk_size (spec.md §5).
const DefaultChunkSize = 4096

// DefaultFlushInterval is the output collector's adaptive flush cadence
// used absent an override (spec.md §4.9).
const DefaultFlushInterval = 50 * time.Millisecond

// Tuning holds the engine's runtime-tunable knobs.
type Tuning struct {
	ChunkSize     int
	FlushInterval time.Duration
}

type tuningFile struct {
	ChunkSize       int `yaml:"chunk_size"`
	FlushIntervalMs int `yaml:"flush_interval_ms"`
}

// Default returns the built-in tuning knobs.
func Default() Tuning {
	return Tuning{ChunkSize: DefaultChunkSize, FlushInterval: DefaultFlushInterval}
}

// LoadTuning reads configFile, if non-empty, and overlays any knobs it sets
// on top of the defaults; an empty configFile returns Default() untouched,
// matching ParseGeneratorConfig's "no --config flag" behavior.
func LoadTuning(configFile string) (Tuning, error) {
	t := Default()
	if configFile == "" {
		return t, nil
	}

	buf, err := os.ReadFile(configFile)
	if err != nil {
		return Tuning{}, fmt.Errorf("reading tuning config %q: %w", configFile, err)
	}

	var parsed tuningFile
	if err := yaml.UnmarshalStrict(buf, &parsed); err != nil {
		return Tuning{}, fmt.Errorf("parsing tuning config %q: %w", configFile, err)
	}

	if parsed.ChunkSize > 0 {
		t.ChunkSize = parsed.ChunkSize
	}
	if parsed.FlushIntervalMs > 0 {
		t.FlushInterval = time.Duration(parsed.FlushIntervalMs) * time.Millisecond
	}
	return t, nil
}
