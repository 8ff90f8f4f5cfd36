package node

import (
	"fmt"
	"slices"
	"time"

	"github.com/vk/framegraph/internal/value"
)

// Evaluate resolves every input, runs compute and refreshes the output
// caches. It is the only path that writes an output cache.
//
// Compute failures do not surface as an error: the node enters Failed, its
// outputs become nulls and the failure is available through Err. The only
// error returned is ErrReentrant.
func (n *Node) Evaluate() ([]value.Value, error) {
	if n.state == Computing {
		return nil, fmt.Errorf("%w: %s (%s)", ErrReentrant, n.id, n.label)
	}

	inputs := make([]value.Value, len(n.inputs))
	var inputErr error
	for i, in := range n.inputs {
		raw := in.EffectiveValue()
		v, ok := value.Conform(raw, in.spec.Kind)
		if !ok {
			if inputErr == nil {
				inputErr = &TypeMismatchError{Socket: in.Ref(), Expected: in.spec.Kind, Actual: raw.Kind()}
			}
			v = value.Null(in.spec.Kind)
		}
		inputs[i] = v
	}
	// Listeners already see the node Computing.
	n.state = Computing
	n.dirty = false
	n.emit(Event{Kind: InputsChanged, Node: n, Inputs: slices.Clone(inputs)})

	start := time.Now()
	err := inputErr
	var outputs []value.Value
	if err == nil {
		outputs, err = n.runCompute(inputs)
	}
	if err == nil {
		outputs, err = n.conformOutputs(outputs)
	}
	elapsed := time.Since(start)

	if err != nil {
		for _, out := range n.outputs {
			out.cached = value.Null(out.spec.Kind)
		}
		n.state = Failed
		n.err = err
	} else {
		for i, out := range n.outputs {
			out.cached = outputs[i]
		}
		n.state = Fresh
		n.err = nil
	}
	// Results computed across an invalidation are already stale.
	invalidated := n.dirty
	if invalidated {
		n.state = Stale
		n.dirty = false
	}

	seen := map[*Node]struct{}{n: {}}
	for _, out := range n.outputs {
		out.notify(seen)
	}

	results := n.Results()
	if err != nil {
		n.emit(Event{Kind: ComputeFailed, Node: n, Inputs: inputs, Outputs: results, Err: err, Duration: elapsed})
	} else {
		n.emit(Event{Kind: ResultsChanged, Node: n, Inputs: inputs, Outputs: results, Duration: elapsed})
	}
	if invalidated {
		n.emit(Event{Kind: Invalidated, Node: n})
	}
	return results, nil
}

func (n *Node) runCompute(inputs []value.Value) (outputs []value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = fmt.Errorf("%w: %v", ErrComputePanic, r)
		}
	}()
	return n.compute(inputs)
}

func (n *Node) conformOutputs(outputs []value.Value) ([]value.Value, error) {
	if len(outputs) != len(n.outputs) {
		return nil, fmt.Errorf("%w: %s returned %d, declares %d", ErrOutputCount, n.typeName, len(outputs), len(n.outputs))
	}
	conformed := make([]value.Value, len(outputs))
	for i, out := range n.outputs {
		v := outputs[i]
		if !v.IsValid() {
			conformed[i] = value.Null(out.spec.Kind)
			continue
		}
		c, ok := value.Conform(v, out.spec.Kind)
		if !ok {
			return nil, &TypeMismatchError{Socket: out.Ref(), Expected: out.spec.Kind, Actual: v.Kind()}
		}
		conformed[i] = c
	}
	return conformed, nil
}

// GetResult returns output idx, pulling this node and any stale ancestors
// first when the cache is not valid.
func (n *Node) GetResult(idx int) (value.Value, error) {
	out, err := n.Output(idx)
	if err != nil {
		return value.Value{}, err
	}
	if n.ResultsValid() {
		return out.Cached(), nil
	}
	if err := Pull(n); err != nil {
		return value.Value{}, err
	}
	return out.Cached(), nil
}

type visit int

const (
	visiting visit = iota + 1
	visited
)

// Pull brings target up to date by resolving its ancestors depth first, in
// input index order. Within one call every ancestor is computed at most once
// and nodes with no path to target are never touched.
func Pull(target *Node) error {
	p := &puller{marks: make(map[*Node]visit)}
	return p.resolve(target)
}

// PullFunc is Pull with a hook that runs after each node is computed.
func PullFunc(target *Node, computed func(*Node)) error {
	p := &puller{marks: make(map[*Node]visit), computed: computed}
	return p.resolve(target)
}

type puller struct {
	marks    map[*Node]visit
	computed func(*Node)
}

func (p *puller) resolve(n *Node) error {
	switch p.marks[n] {
	case visited:
		return nil
	case visiting:
		return fmt.Errorf("%w: node %s (%s) depends on itself", ErrCyclicGraph, n.id, n.label)
	}
	if n.state == Computing {
		return fmt.Errorf("%w: %w: %s (%s)", ErrCyclicGraph, ErrReentrant, n.id, n.label)
	}
	if n.ResultsValid() {
		p.marks[n] = visited
		return nil
	}

	p.marks[n] = visiting
	for _, in := range n.inputs {
		if in.connected == nil {
			continue
		}
		if err := p.resolve(in.connected.node); err != nil {
			return err
		}
	}
	if _, err := n.Evaluate(); err != nil {
		return err
	}
	p.marks[n] = visited
	if p.computed != nil {
		p.computed(n)
	}
	return nil
}
