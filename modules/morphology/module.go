// Package morphology registers the erosion, dilation and contour node types.
package morphology

import (
	"image"

	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/value"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers Erode, Dilate and Contours.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type:        "Erode",
		Description: "Replaces every pixel with the minimum of its Kernel Size neighbourhood, Iterations times.",
		Factory: func(registry.Params) (node.Spec, error) {
			return morphSpec("Eroded", Erode), nil
		},
	})
	r.Register(&registry.Definition{
		Type:        "Dilate",
		Description: "Replaces every pixel with the maximum of its Kernel Size neighbourhood, Iterations times.",
		Factory: func(registry.Params) (node.Spec, error) {
			return morphSpec("Dilated", Dilate), nil
		},
	})
	r.Register(&registry.Definition{
		Type:        "Contours",
		Description: "Traces the outer boundary of every connected group of non-zero pixels.",
		Factory:     func(registry.Params) (node.Spec, error) { return contoursSpec(), nil },
	})
}

func morphSpec(output string, op func(img *image.Gray, size, iterations int) *image.Gray) node.Spec {
	return node.Spec{
		Inputs: []node.InputSpec{
			{Name: "Image", Kind: value.KindGrayImage},
			{Name: "Kernel Size", Kind: value.KindInt, Default: value.Int(3), Min: node.Bound(1), Max: node.Bound(31)},
			{Name: "Iterations", Kind: value.KindInt, Default: value.Int(1), Min: node.Bound(1), Max: node.Bound(10)},
		},
		Outputs: []node.OutputSpec{{Name: output, Kind: value.KindGrayImage}},
		Compute: func(in []value.Value) ([]value.Value, error) {
			img, ok := in[0].AsGray()
			size, sok := in[1].AsInt()
			iterations, iok := in[2].AsInt()
			if !ok || !sok || !iok {
				return []value.Value{value.Null(value.KindGrayImage)}, nil
			}
			return []value.Value{value.Gray(op(img, int(size), int(iterations)))}, nil
		},
	}
}

func contoursSpec() node.Spec {
	return node.Spec{
		Inputs: []node.InputSpec{
			{Name: "Image", Kind: value.KindGrayImage},
			{Name: "Min Points", Kind: value.KindInt, Default: value.Int(1), Min: node.Bound(1)},
		},
		Outputs: []node.OutputSpec{
			{Name: "Contours", Kind: value.KindContours},
			{Name: "Count", Kind: value.KindInt},
		},
		Compute: func(in []value.Value) ([]value.Value, error) {
			img, ok := in[0].AsGray()
			minPoints, mok := in[1].AsInt()
			if !ok || !mok {
				return []value.Value{value.Null(value.KindContours), value.Null(value.KindInt)}, nil
			}
			found := FindContours(img, int(minPoints))
			return []value.Value{value.Contours(found), value.Int(int64(len(found)))}, nil
		},
	}
}
