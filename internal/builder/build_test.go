package builder_test

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/builder"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/hcl_adapter"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/source"
	"github.com/vk/framegraph/internal/value"
	"github.com/vk/framegraph/modules/frames"
	"github.com/vk/framegraph/modules/imgops"
)

const pipelineHCL = `
node "Source" "src" {
  params   = { n_frames = 2 }
  position = [10, 20]
}

node "ABSDiff" "diff" {
  label = "Frame difference"
}

node "Threshold" "thresh" {
  inputs = {
    "Threshold value" = 10
    "Threshold Type"  = "Binary"
  }
}

connect {
  from = src.output[0]
  to   = diff.input[0]
}

connect {
  from = src.output[1]
  to   = diff.input["Image2"]
}

connect {
  from = diff.output.Diff
  to   = thresh.input.Image
}
`

func frame(level uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return img
}

func newRegistry() *registry.Registry {
	r := registry.New()
	(&frames.Module{Frames: source.NewMemory(frame(90), frame(90))}).Register(r)
	(&imgops.Module{}).Register(r)
	return r
}

func build(t *testing.T, src string) (*builder.Result, error) {
	t.Helper()
	p, err := hcl_adapter.NewLoader().LoadBytes(context.Background(), "pipeline.hcl", []byte(src))
	require.NoError(t, err)
	return builder.Build(context.Background(), p, newRegistry())
}

func TestBuild_Pipeline(t *testing.T) {
	// --- Arrange & Act ---
	res, err := build(t, pipelineHCL)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 3, res.Graph.Len())
	assert.Len(t, res.Graph.Connections(), 3)
	assert.Equal(t, builder.NodeID("src"), res.IDs["src"])

	diff, ok := res.Graph.Node(res.IDs["diff"])
	require.True(t, ok)
	assert.Equal(t, "Frame difference", diff.Label())
	src, _ := res.Graph.Node(res.IDs["src"])
	assert.Equal(t, "src", src.Label(), "the name labels a node without an explicit label")
	assert.Equal(t, 10.0, res.Layout[res.IDs["src"]].X)

	thresh, _ := res.Graph.Node(res.IDs["thresh"])
	manual, ok := thresh.Inputs()[1].ManualValue()
	require.True(t, ok)
	assert.True(t, manual.Equal(value.Float(10)))

	out, err := res.Graph.EvaluateOutput(res.IDs["thresh"], 1)
	require.NoError(t, err)
	img, ok := out.AsGray()
	require.True(t, ok)
	for _, p := range img.Pix {
		assert.Zero(t, p)
	}
}

func TestBuild_StableIDs(t *testing.T) {
	a, err := build(t, pipelineHCL)
	require.NoError(t, err)
	b, err := build(t, pipelineHCL)
	require.NoError(t, err)
	assert.Equal(t, a.IDs, b.IDs)
	assert.NotEqual(t, builder.NodeID("src"), builder.NodeID("diff"))
}

func TestBuild_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantErr error
		substr  string
	}{
		{
			name:    "unknown type",
			src:     `node "Blur" "b" {}`,
			wantErr: registry.ErrUnknownType,
		},
		{
			name:    "unknown node in connect",
			src:     "node \"InvertGray\" \"a\" {}\nconnect {\n from = z.output[0]\n to = a.input[0]\n}",
			wantErr: graph.ErrNodeNotFound,
		},
		{
			name:    "unknown socket name",
			src:     "node \"InvertGray\" \"a\" {}\nnode \"InvertGray\" \"b\" {}\nconnect {\n from = a.output.Nope\n to = b.input[0]\n}",
			wantErr: node.ErrIndexOutOfRange,
		},
		{
			name:    "incompatible kinds",
			src:     "node \"Threshold\" \"a\" {}\nnode \"InvertGray\" \"b\" {}\nconnect {\n from = a.output[0]\n to = b.input[0]\n}",
			wantErr: node.ErrTypeMismatch,
		},
		{
			name:    "cycle",
			src:     "node \"InvertGray\" \"a\" {}\nnode \"InvertGray\" \"b\" {}\nconnect {\n from = a.output[0]\n to = b.input[0]\n}\nconnect {\n from = b.output[0]\n to = a.input[0]\n}",
			wantErr: graph.ErrCycleDetected,
		},
		{
			name:   "unknown input",
			src:    `node "Threshold" "a" { inputs = { Gain = 2 } }`,
			substr: `has no input named "Gain"`,
		},
		{
			name:    "input out of range",
			src:     `node "Threshold" "a" { inputs = { "Threshold value" = 999 } }`,
			wantErr: node.ErrOutOfRange,
		},
		{
			name:    "invalid choice",
			src:     `node "Threshold" "a" { inputs = { "Threshold Type" = "Adaptive" } }`,
			wantErr: node.ErrInvalidChoice,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := build(t, tc.src)
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.substr != "" {
				assert.ErrorContains(t, err, tc.substr)
			}
			assert.ErrorContains(t, err, "pipeline.hcl", "errors carry the declaration position")
		})
	}
}
