package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/cli"
)

func TestRun_StartupError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A pipeline with a syntax error fails while the app is being built.
	invalidHCL := `
		node "Print" "p" {
			params = {
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{filePath}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, runErr)
	var exitErr *cli.ExitError
	require.ErrorAs(t, runErr, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, runErr.Error(), "failed to parse", "The error message should contain the underlying reason.")
}

func TestRun_BatchPipeline(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	pipeline := `
node "Print" "p" {
  params = { kind = "int", name = "answer" }
  inputs = { Value = 42 }
}
`
	require.NoError(t, os.WriteFile(filePath, []byte(pipeline), 0600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-log-format", "text", filePath})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "      answer = 42\n")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
