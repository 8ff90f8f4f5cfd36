package testutil

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/app"
	"github.com/vk/framegraph/internal/hcl_adapter"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// WriteFiles writes files, keyed by slash-separated relative path, under
// dir and creates the directories they need.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// WriteGrayFrames writes one flat gray PNG per level into dir, named so
// that lexical order is frame order.
func WriteGrayFrames(t *testing.T, dir string, w, h int, levels ...uint8) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i, level := range levels {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for p := range img.Pix {
			img.Pix[p] = level
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
}

// RunIntegrationTest writes files into a temporary directory, builds an app
// from cfg and runs it to completion. Relative paths in cfg are resolved
// against that directory. Startup panics are reported as errors.
func RunIntegrationTest(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	WriteFiles(t, root, files)

	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, filepath.FromSlash(*p))
		}
	}
	resolve(&cfg.PipelinePath)
	resolve(&cfg.SnapshotPath)
	resolve(&cfg.FramesDir)
	resolve(&cfg.StoreDir)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App, result.Err = app.NewApp(ctx, logBuffer, config, hcl_adapter.NewLoader())
		if result.Err == nil {
			result.Err = result.App.Run(ctx)
		}
	}()

	if os.Getenv("FRAMEGRAPH_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}
	result.LogOutput = logBuffer.String()
	return result
}
