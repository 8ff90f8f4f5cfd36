package frames

import (
	"slices"

	"github.com/vk/framegraph/internal/graph"
)

// InvalidateSources marks every frame source node of g, and everything
// downstream of it, stale. It returns the number of source nodes found.
func InvalidateSources(g *graph.Graph) int {
	count := 0
	for _, n := range g.Nodes() {
		if !slices.Contains(SourceTypes, n.Type()) {
			continue
		}
		// The id comes from g itself, so the lookup cannot fail.
		_ = g.Invalidate(n.ID())
		count++
	}
	return count
}
