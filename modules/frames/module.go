// Package frames registers the frame source node types. Source nodes have
// no image inputs; each compute asks the configured frame service for the
// frames at the current playback position plus the node's offset.
package frames

import (
	"fmt"
	"log/slog"

	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/source"
	"github.com/vk/framegraph/internal/value"
	"github.com/zclconf/go-cty/cty"
)

const (
	TypeSource     = "Source"
	TypeGraySource = "GrayScaleSource"

	maxFrames = 64
)

// SourceTypes lists the node types that must be invalidated when the
// playback position or the underlying sequence changes.
var SourceTypes = []string{TypeSource, TypeGraySource}

// Module implements the registry.Module interface for this package.
type Module struct {
	// Frames serves every source node built from this module. A nil
	// service makes every source output absent.
	Frames source.FrameService
	Logger *slog.Logger
}

// Register registers the Source and GrayScaleSource node types.
func (m *Module) Register(r *registry.Registry) {
	params := []registry.ParamDef{{
		Name:        "n_frames",
		Type:        cty.Number,
		Default:     cty.NumberIntVal(1),
		Description: "Number of consecutive frames the node outputs.",
	}}
	r.Register(&registry.Definition{
		Type:        TypeSource,
		Description: "Outputs consecutive frames of the loaded sequence, starting at the current frame plus Offset.",
		Params:      params,
		Factory: func(p registry.Params) (node.Spec, error) {
			return m.spec(p.Int("n_frames"), false)
		},
	})
	r.Register(&registry.Definition{
		Type:        TypeGraySource,
		Description: "Like Source, but converts every frame to a single channel.",
		Params:      params,
		Factory: func(p registry.Params) (node.Spec, error) {
			return m.spec(p.Int("n_frames"), true)
		},
	})
}

func (m *Module) spec(n int, gray bool) (node.Spec, error) {
	if n < 1 || n > maxFrames {
		return node.Spec{}, fmt.Errorf("n_frames must be between 1 and %d, got %d", maxFrames, n)
	}
	kind := value.KindImage
	if gray {
		kind = value.KindGrayImage
	}
	outputs := make([]node.OutputSpec, n)
	for i := range outputs {
		outputs[i] = node.OutputSpec{Name: "Frame", Kind: kind}
	}
	return node.Spec{
		Inputs: []node.InputSpec{
			{Name: "Offset", Kind: value.KindInt, Default: value.Int(0), Min: node.Bound(0)},
		},
		Outputs: outputs,
		Compute: func(in []value.Value) ([]value.Value, error) {
			return m.fetch(n, in[0], gray, kind), nil
		},
	}, nil
}

// fetch never fails: a missing service, an absent offset or a frame service
// error all degrade to n absent frames.
func (m *Module) fetch(n int, offset value.Value, gray bool, kind value.Kind) []value.Value {
	out := make([]value.Value, n)
	for i := range out {
		out[i] = value.Null(kind)
	}
	off, ok := offset.AsInt()
	if m.Frames == nil || !ok {
		return out
	}
	images, err := m.Frames.NextFrames(n, int(off), gray)
	if err != nil {
		m.logger().Warn("Frame service returned no frames.", "offset", off, "count", n, "error", err)
		return out
	}
	for i := 0; i < n && i < len(images); i++ {
		if gray {
			out[i] = value.Gray(source.ToGray(images[i]))
			continue
		}
		out[i] = value.FromImage(images[i])
	}
	return out
}

func (m *Module) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
