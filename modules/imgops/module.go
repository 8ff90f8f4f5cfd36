// Package imgops registers the per-pixel image node types: channel
// conversion, thresholding, differences, inversion and pixelwise min/max.
package imgops

import (
	"image"

	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/value"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers every image operation node type.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type:        "GrayScale",
		Description: "Converts a color image to a single channel using the selected color code.",
		Factory:     func(registry.Params) (node.Spec, error) { return grayScaleSpec(), nil },
	})
	r.Register(&registry.Definition{
		Type:        "Threshold",
		Description: "Sets pixels above the threshold to the new value and all others to zero. Otsu and Triangle pick the threshold from the histogram.",
		Factory:     func(registry.Params) (node.Spec, error) { return thresholdSpec(), nil },
	})
	r.Register(&registry.Definition{
		Type:        "ChannelSplit",
		Description: "Splits a color image into its blue, green and red planes.",
		Factory:     func(registry.Params) (node.Spec, error) { return channelSplitSpec(), nil },
	})
	r.Register(&registry.Definition{
		Type:        "ABSDiff",
		Description: "Absolute per-pixel difference of two gray images.",
		Factory: func(registry.Params) (node.Spec, error) {
			return binarySpec("Diff", AbsDiff), nil
		},
	})
	r.Register(&registry.Definition{
		Type:        "ClampedDiff",
		Description: "Per-pixel difference Image1 - Image2 with differences below the cutoff set to zero.",
		Factory:     func(registry.Params) (node.Spec, error) { return clampedDiffSpec(), nil },
	})
	r.Register(&registry.Definition{
		Type:        "Min",
		Description: "Per-pixel minimum of two gray images.",
		Factory: func(registry.Params) (node.Spec, error) {
			return binarySpec("Min", Min), nil
		},
	})
	r.Register(&registry.Definition{
		Type:        "Max",
		Description: "Per-pixel maximum of two gray images.",
		Factory: func(registry.Params) (node.Spec, error) {
			return binarySpec("Max", Max), nil
		},
	})
	r.Register(&registry.Definition{
		Type:        "Invert",
		Description: "Inverts the color channels of an image.",
		Factory:     func(registry.Params) (node.Spec, error) { return invertSpec(), nil },
	})
	r.Register(&registry.Definition{
		Type:        "InvertGray",
		Description: "Inverts a gray image.",
		Factory:     func(registry.Params) (node.Spec, error) { return invertGraySpec(), nil },
	})
}

func grayScaleSpec() node.Spec {
	return node.Spec{
		Inputs: []node.InputSpec{
			{Name: "RGB", Kind: value.KindColorImage},
			{Name: "ColorCode", Kind: value.KindOption, Default: value.Option(CodeBGR2Gray), Choices: colorCodes},
		},
		Outputs: []node.OutputSpec{{Name: "Gray", Kind: value.KindGrayImage}},
		Compute: func(in []value.Value) ([]value.Value, error) {
			img, ok := in[0].AsColor()
			if !ok {
				return []value.Value{value.Null(value.KindGrayImage)}, nil
			}
			code, _ := in[1].AsString()
			gray, err := ToGray(img, code)
			if err != nil {
				return nil, err
			}
			return []value.Value{value.Gray(gray)}, nil
		},
	}
}

func thresholdSpec() node.Spec {
	return node.Spec{
		Inputs: []node.InputSpec{
			{Name: "Image", Kind: value.KindGrayImage},
			{Name: "Threshold value", Kind: value.KindFloat, Default: value.Float(100), Min: node.Bound(0), Max: node.Bound(255)},
			{Name: "New Value", Kind: value.KindFloat, Default: value.Float(255), Min: node.Bound(0), Max: node.Bound(255)},
			{Name: "Threshold Type", Kind: value.KindOption, Default: value.Option(ThreshBinary), Choices: thresholdTypes},
		},
		Outputs: []node.OutputSpec{
			{Name: "Threshold", Kind: value.KindFloat},
			{Name: "Image", Kind: value.KindGrayImage},
		},
		Compute: func(in []value.Value) ([]value.Value, error) {
			img, ok := in[0].AsGray()
			t, tok := in[1].AsFloat()
			maxval, mok := in[2].AsFloat()
			method, _ := in[3].AsString()
			if !ok || !tok || !mok {
				return []value.Value{value.Null(value.KindFloat), value.Null(value.KindGrayImage)}, nil
			}
			used, out, err := Threshold(img, t, maxval, method)
			if err != nil {
				return nil, err
			}
			return []value.Value{value.Float(used), value.Gray(out)}, nil
		},
	}
}

func channelSplitSpec() node.Spec {
	return node.Spec{
		Inputs: []node.InputSpec{{Name: "Image", Kind: value.KindColorImage}},
		Outputs: []node.OutputSpec{
			{Name: "Blue", Kind: value.KindGrayImage},
			{Name: "Green", Kind: value.KindGrayImage},
			{Name: "Red", Kind: value.KindGrayImage},
		},
		Compute: func(in []value.Value) ([]value.Value, error) {
			img, ok := in[0].AsColor()
			if !ok {
				null := value.Null(value.KindGrayImage)
				return []value.Value{null, null, null}, nil
			}
			b, g, r := SplitChannels(img)
			return []value.Value{value.Gray(b), value.Gray(g), value.Gray(r)}, nil
		},
	}
}

// binarySpec builds a two gray input, one gray output node around op.
// Either input being absent yields an absent output.
func binarySpec(output string, op func(a, b *image.Gray) (*image.Gray, error)) node.Spec {
	return node.Spec{
		Inputs: []node.InputSpec{
			{Name: "Image1", Kind: value.KindGrayImage},
			{Name: "Image2", Kind: value.KindGrayImage},
		},
		Outputs: []node.OutputSpec{{Name: output, Kind: value.KindGrayImage}},
		Compute: func(in []value.Value) ([]value.Value, error) {
			a, aok := in[0].AsGray()
			b, bok := in[1].AsGray()
			if !aok || !bok {
				return []value.Value{value.Null(value.KindGrayImage)}, nil
			}
			out, err := op(a, b)
			if err != nil {
				return nil, err
			}
			return []value.Value{value.Gray(out)}, nil
		},
	}
}

func clampedDiffSpec() node.Spec {
	spec := binarySpec("Diff", nil)
	spec.Inputs = append(spec.Inputs, node.InputSpec{
		Name: "Cutoff", Kind: value.KindInt, Default: value.Int(0), Min: node.Bound(0), Max: node.Bound(255),
	})
	spec.Compute = func(in []value.Value) ([]value.Value, error) {
		a, aok := in[0].AsGray()
		b, bok := in[1].AsGray()
		cutoff, cok := in[2].AsInt()
		if !aok || !bok || !cok {
			return []value.Value{value.Null(value.KindGrayImage)}, nil
		}
		out, err := ClampedDiff(a, b, int(cutoff))
		if err != nil {
			return nil, err
		}
		return []value.Value{value.Gray(out)}, nil
	}
	return spec
}

func invertSpec() node.Spec {
	return node.Spec{
		Inputs:  []node.InputSpec{{Name: "Image", Kind: value.KindColorImage}},
		Outputs: []node.OutputSpec{{Name: "Inverted", Kind: value.KindColorImage}},
		Compute: func(in []value.Value) ([]value.Value, error) {
			img, ok := in[0].AsColor()
			if !ok {
				return []value.Value{value.Null(value.KindColorImage)}, nil
			}
			return []value.Value{value.Color(InvertColor(img))}, nil
		},
	}
}

func invertGraySpec() node.Spec {
	return node.Spec{
		Inputs:  []node.InputSpec{{Name: "Image", Kind: value.KindGrayImage}},
		Outputs: []node.OutputSpec{{Name: "Inverted", Kind: value.KindGrayImage}},
		Compute: func(in []value.Value) ([]value.Value, error) {
			img, ok := in[0].AsGray()
			if !ok {
				return []value.Value{value.Null(value.KindGrayImage)}, nil
			}
			return []value.Value{value.Gray(InvertGray(img))}, nil
		},
	}
}
