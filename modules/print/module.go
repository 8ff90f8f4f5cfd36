// Package print registers the Print node type, a pass-through that writes
// every value it receives. It is the sink used when a pipeline runs without
// the HTTP API.
package print

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// TypePrint is the registered type name.
const TypePrint = "Print"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives one line per compute. Nil means os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// Register registers the Print node type.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type:        TypePrint,
		Description: "Writes its input on every compute and passes it through unchanged.",
		Params: []registry.ParamDef{
			{Name: "kind", Type: cty.String, Default: cty.StringVal(value.KindFloat.String()), Description: "Kind of the Value socket."},
			{Name: "name", Type: cty.String, Default: cty.StringVal(""), Description: "Prefix for the printed line."},
		},
		Factory: func(p registry.Params) (node.Spec, error) {
			kind, err := value.ParseKind(p.String("kind"))
			if err != nil {
				return node.Spec{}, err
			}
			if kind == value.KindInvalid {
				return node.Spec{}, fmt.Errorf("kind is required")
			}
			name := p.String("name")
			return node.Spec{
				Inputs:  []node.InputSpec{{Name: "Value", Kind: kind}},
				Outputs: []node.OutputSpec{{Name: "Value", Kind: kind}},
				Compute: func(in []value.Value) ([]value.Value, error) {
					m.print(name, in[0])
					return in, nil
				},
			}, nil
		},
	})
}

func (m *Module) print(name string, v value.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	if name == "" {
		fmt.Fprintf(out, "      %s\n", v)
		return
	}
	fmt.Fprintf(out, "      %s = %s\n", name, v)
}
