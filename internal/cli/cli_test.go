package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	cfg, shouldExit, err := Parse([]string{"pipeline.hcl"}, out)

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "pipeline.hcl", cfg.PipelinePath)
	assert.True(t, cfg.Loop)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/", cfg.PreviewNamespace)
	assert.Empty(t, cfg.ListenAddr)
}

func TestParse_Flags(t *testing.T) {
	cfg, _, err := Parse([]string{
		"-p", "grid", "-f", "frames", "-loop=false", "-play-interval", "40ms",
		"-listen", ":8080", "-store-dir", "snaps", "-log-format", "TEXT", "-log-level", "debug",
	}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "grid", cfg.PipelinePath)
	assert.Equal(t, "frames", cfg.FramesDir)
	assert.False(t, cfg.Loop)
	assert.Equal(t, 40*time.Millisecond, cfg.PlayInterval)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "snaps", cfg.StoreDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_ConfigFileMerge(t *testing.T) {
	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "framegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 1
pipeline: from-file
frames:
  dir: file-frames
  loop: false
log:
  level: warn
  format: text
`), 0o600))

	// --- Act ---
	cfg, _, err := Parse([]string{"-config", path, "-log-level", "error", "-f", "flag-frames"}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.PipelinePath)
	assert.Equal(t, "flag-frames", cfg.FramesDir, "an explicit flag beats the file")
	assert.False(t, cfg.Loop, "a flag left at its default does not override the file")
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParse_ShouldExit(t *testing.T) {
	for _, args := range [][]string{{}, {"-h"}} {
		out := &bytes.Buffer{}
		cfg, shouldExit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}

	t.Run("serving alone is enough", func(t *testing.T) {
		_, shouldExit, err := Parse([]string{"-listen", ":0"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.False(t, shouldExit)
	})
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		args   []string
		substr string
	}{
		{"unknown flag", []string{"-nope"}, "flag provided but not defined"},
		{"log format", []string{"-log-format", "xml", "p.hcl"}, "invalid log-format"},
		{"log level", []string{"-log-level", "loud", "p.hcl"}, "invalid log-level"},
		{"two sources", []string{"-snapshot", "s.json", "p.hcl"}, "cannot both be loaded"},
		{"watch without frames", []string{"-watch", "p.hcl"}, "need a frames directory"},
		{"missing config file", []string{"-config", "/does/not/exist.yaml", "p.hcl"}, "exist.yaml"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.substr)
		})
	}
}
