package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// ValidateRegistry builds every registered type with its default parameters
// and reports the ones that cannot be constructed. It runs once at startup,
// so a broken module fails fast instead of on the first user action.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Types() {
		def := r.definitions[name]
		if def.Description == "" {
			logger.Warn("Node type has no description.", "type", name)
		}
		n, err := r.Build(name, cty.EmptyObjectVal)
		if err != nil {
			errs = append(errs, fmt.Sprintf("node type '%s': %v", name, err))
			continue
		}
		if n.Type() != name {
			errs = append(errs, fmt.Sprintf("node type '%s': factory produced type '%s'", name, n.Type()))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.", "types", len(r.definitions))
	return nil
}
