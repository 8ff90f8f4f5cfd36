package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/framegraph/internal/node"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ErrUnknownType is returned by Build for names nobody registered.
var ErrUnknownType = errors.New("unknown node type")

// Module is the interface that all node modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Factory turns normalized constructor parameters into a node spec.
type Factory func(p Params) (node.Spec, error)

// ParamDef declares one constructor parameter.
type ParamDef struct {
	Name        string
	Type        cty.Type
	Default     cty.Value
	Description string
}

// Definition is one registered node type.
type Definition struct {
	Type        string
	Description string
	Params      []ParamDef
	Factory     Factory
}

// Registry holds the node types of a single application instance.
type Registry struct {
	definitions map[string]*Definition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{definitions: make(map[string]*Definition)}
}

// Register adds a node type. Registering the same name twice, or a
// definition without a factory, is a programming error and panics.
func (r *Registry) Register(def *Definition) {
	if def == nil || def.Type == "" || def.Factory == nil {
		panic("node type definition needs a type name and a factory")
	}
	if _, exists := r.definitions[def.Type]; exists {
		panic(fmt.Sprintf("node type with name '%s' already registered", def.Type))
	}
	for _, p := range def.Params {
		if p.Default.IsNull() {
			continue
		}
		if _, err := convert.Convert(p.Default, p.Type); err != nil {
			panic(fmt.Sprintf("node type '%s': default of parameter '%s' is not a %s: %v", def.Type, p.Name, p.Type.FriendlyName(), err))
		}
	}
	slog.Debug("Registering node type.", "type", def.Type, "params", len(def.Params))
	r.definitions[def.Type] = def
}

// Describe returns the definition of a type.
func (r *Registry) Describe(typeName string) (*Definition, bool) {
	def, ok := r.definitions[typeName]
	return def, ok
}

// Types returns every registered type name, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs a node of the named type. params may be a null value or
// an object; attributes are converted to the declared parameter types and
// missing ones are filled from defaults.
func (r *Registry) Build(typeName string, params cty.Value, opts ...node.Option) (*node.Node, error) {
	def, ok := r.definitions[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	normalized, err := def.normalize(params)
	if err != nil {
		return nil, err
	}
	spec, err := def.Factory(Params{v: normalized})
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", typeName, err)
	}
	if spec.Type == "" {
		spec.Type = def.Type
	}
	if spec.Help == "" {
		spec.Help = def.Description
	}
	opts = append([]node.Option{node.WithParams(normalized)}, opts...)
	return node.New(spec, opts...)
}

func (def *Definition) normalize(params cty.Value) (cty.Value, error) {
	if params.IsNull() {
		params = cty.EmptyObjectVal
	}
	if !params.Type().IsObjectType() && !params.Type().IsMapType() {
		return cty.NilVal, fmt.Errorf("%s parameters must be an object, got %s", def.Type, params.Type().FriendlyName())
	}
	if !params.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("%s parameters must be known values", def.Type)
	}

	given := params.AsValueMap()
	declared := make(map[string]bool, len(def.Params))
	attrs := make(map[string]cty.Value, len(def.Params))
	for _, p := range def.Params {
		declared[p.Name] = true
		raw, ok := given[p.Name]
		if !ok || raw.IsNull() {
			raw = p.Default
		}
		if raw.IsNull() {
			attrs[p.Name] = cty.NullVal(p.Type)
			continue
		}
		converted, err := convert.Convert(raw, p.Type)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s parameter %q: %w", def.Type, p.Name, err)
		}
		attrs[p.Name] = converted
	}
	for name := range given {
		if !declared[name] {
			return cty.NilVal, fmt.Errorf("%s has no parameter %q", def.Type, name)
		}
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(attrs), nil
}
