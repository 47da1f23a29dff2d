package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTuningEmptyPathReturnsDefaults(t *testing.T) {
	tun, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, Default(), tun)
}

func TestLoadTuningOverridesChunkSizeOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 64\n"), 0o644))

	tun, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 64, tun.ChunkSize)
	assert.Equal(t, DefaultFlushInterval, tun.FlushInterval)
}

func TestLoadTuningOverridesBoth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 10\nflush_interval_ms: 200\n"), 0o644))

	tun, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 10, tun.ChunkSize)
	assert.Equal(t, 200*time.Millisecond, tun.FlushInterval)
}

func TestLoadTuningMissingFileFails(t *testing.T) {
	_, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadTuningRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_sizee: 10\n"), 0o644))

	_, err := LoadTuning(path)
	assert.Error(t, err)
}
