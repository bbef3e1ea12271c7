package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTunables(t *testing.T) {
	tun := DefaultTunables()

	assert.Equal(t, 800, tun.Chunking.MaxSize)
	assert.Equal(t, 200, tun.Chunking.Overlap)
	assert.Equal(t, []string{"\n\n", "\n", ". ", " "}, tun.Chunking.Separators)
	assert.Equal(t, 5, tun.Retrieval.DefaultTopK)
	assert.Equal(t, 10, tun.Retrieval.MaxTopK)
	assert.Equal(t, 0.7, tun.Retrieval.MinScore)
	assert.Equal(t, 1965, tun.Retrieval.MinYear)
	assert.Equal(t, 50, tun.Ingest.BatchSize)
	assert.Equal(t, 2, tun.Ingest.EmbedRetries)
	assert.Equal(t, 3, tun.Search.EmbedRetries)
}

func TestLoadTunablesMissingFile(t *testing.T) {
	tun, err := LoadTunables(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTunables(), tun)
}

func TestLoadTunablesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lettervault.yaml")
	content := `
retrieval:
  min_score: 0.5
  default_top_k: 3
chunking:
  max_size: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tun, err := LoadTunables(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, tun.Retrieval.MinScore)
	assert.Equal(t, 3, tun.Retrieval.DefaultTopK)
	assert.Equal(t, 1000, tun.Chunking.MaxSize)
	// Untouched values keep defaults.
	assert.Equal(t, 10, tun.Retrieval.MaxTopK)
	assert.Equal(t, 50, tun.Ingest.BatchSize)
}

func TestLoadTunablesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lettervault.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval: ["), 0644))

	_, err := LoadTunables(path)
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}
