package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/value"
)

// counter records how many times each stage compute ran, and in what order.
type counter struct {
	calls map[string]int
	order []string
}

func newCounter() *counter {
	return &counter{calls: make(map[string]int)}
}

// addOne builds a stage with one float input and one float output that adds
// one to its input.
func (c *counter) addOne(t *testing.T, name string) *Node {
	t.Helper()
	n, err := New(Spec{
		Type:    "AddOne",
		Label:   name,
		Inputs:  []InputSpec{{Name: "In", Kind: value.KindFloat, Default: value.Float(0), Min: Bound(-1000), Max: Bound(1000)}},
		Outputs: []OutputSpec{{Name: "Out", Kind: value.KindFloat}},
		Compute: func(in []value.Value) ([]value.Value, error) {
			c.calls[name]++
			c.order = append(c.order, name)
			f, ok := in[0].AsFloat()
			if !ok {
				return []value.Value{value.Null(value.KindFloat)}, nil
			}
			return []value.Value{value.Float(f + 1)}, nil
		},
	})
	require.NoError(t, err)
	return n
}

func TestNew(t *testing.T) {
	t.Run("assigns an id and label", func(t *testing.T) {
		n, err := New(Spec{Type: "Noop", Compute: func([]value.Value) ([]value.Value, error) { return nil, nil }})
		require.NoError(t, err)
		assert.NotEmpty(t, n.ID())
		assert.Equal(t, "Noop", n.Label())
		assert.Equal(t, Stale, n.State())
	})

	t.Run("keeps a given id", func(t *testing.T) {
		n, err := New(Spec{Type: "Noop", Compute: func([]value.Value) ([]value.Value, error) { return nil, nil }}, WithID("fixed"))
		require.NoError(t, err)
		assert.Equal(t, "fixed", n.ID())
	})

	t.Run("rejects invalid specs", func(t *testing.T) {
		_, err := New(Spec{Type: "NoCompute"})
		assert.ErrorIs(t, err, ErrInvalidSpec)

		_, err = New(Spec{
			Type:    "BadDefault",
			Inputs:  []InputSpec{{Name: "x", Kind: value.KindFloat, Default: value.Float(5), Max: Bound(1)}},
			Compute: func([]value.Value) ([]value.Value, error) { return nil, nil },
		})
		assert.ErrorContains(t, err, "outside")

		_, err = New(Spec{
			Type:    "BadChoice",
			Inputs:  []InputSpec{{Name: "mode", Kind: value.KindOption, Default: value.Option("c"), Choices: []string{"a", "b"}}},
			Compute: func([]value.Value) ([]value.Value, error) { return nil, nil },
		})
		assert.ErrorContains(t, err, "not a choice")
	})
}

func TestGetResultCaches(t *testing.T) {
	c := newCounter()
	n := c.addOne(t, "a")

	first, err := n.GetResult(0)
	require.NoError(t, err)
	second, err := n.GetResult(0)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, c.calls["a"])
	assert.Equal(t, Fresh, n.State())

	_, err = n.GetResult(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestChainInvalidationAndPullOrder(t *testing.T) {
	c := newCounter()
	a, b, cc := c.addOne(t, "a"), c.addOne(t, "b"), c.addOne(t, "c")
	require.NoError(t, b.inputs[0].Connect(a.outputs[0]))
	require.NoError(t, cc.inputs[0].Connect(b.outputs[0]))

	got, err := cc.GetResult(0)
	require.NoError(t, err)
	f, _ := got.AsFloat()
	assert.Equal(t, 3.0, f)
	assert.Equal(t, []string{"a", "b", "c"}, c.order)

	require.NoError(t, a.inputs[0].SetManualValue(value.Float(10)))
	assert.Equal(t, Stale, a.State())
	assert.Equal(t, Stale, b.State())
	assert.Equal(t, Stale, cc.State())
	assert.Len(t, c.order, 3, "invalidation must not recompute")

	got, err = cc.GetResult(0)
	require.NoError(t, err)
	f, _ = got.AsFloat()
	assert.Equal(t, 13.0, f)
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, c.order)
}

func TestDiamondComputesSharedAncestorOnce(t *testing.T) {
	c := newCounter()
	a := c.addOne(t, "a")
	b := c.addOne(t, "b")
	cc := c.addOne(t, "c")

	d, err := New(Spec{
		Type: "Sum",
		Inputs: []InputSpec{
			{Name: "x", Kind: value.KindFloat},
			{Name: "y", Kind: value.KindFloat},
		},
		Outputs: []OutputSpec{{Name: "Sum", Kind: value.KindFloat}},
		Compute: func(in []value.Value) ([]value.Value, error) {
			c.calls["d"]++
			x, _ := in[0].AsFloat()
			y, _ := in[1].AsFloat()
			return []value.Value{value.Float(x + y)}, nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, b.inputs[0].Connect(a.outputs[0]))
	require.NoError(t, cc.inputs[0].Connect(a.outputs[0]))
	require.NoError(t, d.inputs[0].Connect(b.outputs[0]))
	require.NoError(t, d.inputs[1].Connect(cc.outputs[0]))

	got, err := d.GetResult(0)
	require.NoError(t, err)
	f, _ := got.AsFloat()
	assert.Equal(t, 4.0, f)
	assert.Equal(t, 1, c.calls["a"])
	assert.Equal(t, 1, c.calls["b"])
	assert.Equal(t, 1, c.calls["c"])
	assert.Equal(t, 1, c.calls["d"])
}

func TestUnrelatedNodesAreNotComputed(t *testing.T) {
	c := newCounter()
	a, b := c.addOne(t, "a"), c.addOne(t, "b")
	other := c.addOne(t, "other")
	require.NoError(t, b.inputs[0].Connect(a.outputs[0]))
	require.NoError(t, other.inputs[0].Connect(a.outputs[0]))

	_, err := b.GetResult(0)
	require.NoError(t, err)
	assert.Zero(t, c.calls["other"])
	assert.Equal(t, Stale, other.State())
}

func TestComputeFailure(t *testing.T) {
	boom := errors.New("boom")

	testCases := []struct {
		name    string
		compute ComputeFunc
		wantErr error
	}{
		{
			name:    "returned error",
			compute: func([]value.Value) ([]value.Value, error) { return nil, boom },
			wantErr: boom,
		},
		{
			name:    "panic",
			compute: func([]value.Value) ([]value.Value, error) { panic("index out of range") },
			wantErr: ErrComputePanic,
		},
		{
			name:    "wrong output count",
			compute: func([]value.Value) ([]value.Value, error) { return []value.Value{}, nil },
			wantErr: ErrOutputCount,
		},
		{
			name: "wrong output kind",
			compute: func([]value.Value) ([]value.Value, error) {
				return []value.Value{value.String("nope")}, nil
			},
			wantErr: ErrTypeMismatch,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			bad, err := New(Spec{
				Type:    "Bad",
				Outputs: []OutputSpec{{Name: "Out", Kind: value.KindFloat}},
				Compute: tc.compute,
			})
			require.NoError(t, err)
			c := newCounter()
			down := c.addOne(t, "down")
			require.NoError(t, down.inputs[0].Connect(bad.outputs[0]))

			var events []EventKind
			bad.Subscribe(func(ev Event) { events = append(events, ev.Kind) })

			// --- Act ---
			got, err := down.GetResult(0)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, Failed, bad.State())
			assert.ErrorIs(t, bad.Err(), tc.wantErr)
			assert.True(t, bad.Results()[0].IsNull())
			assert.True(t, got.IsNull(), "downstream sees absence")
			assert.Equal(t, Fresh, down.State())
			assert.Equal(t, []EventKind{InputsChanged, ComputeFailed}, events)
		})
	}
}

func TestFailedNodeIsSettledUntilInvalidated(t *testing.T) {
	calls := 0
	n, err := New(Spec{
		Type:    "Flaky",
		Outputs: []OutputSpec{{Name: "Out", Kind: value.KindInt}},
		Compute: func([]value.Value) ([]value.Value, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("first call fails")
			}
			return []value.Value{value.Int(7)}, nil
		},
	})
	require.NoError(t, err)

	_, err = n.GetResult(0)
	require.NoError(t, err)
	_, err = n.GetResult(0)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	n.Invalidate()
	got, err := n.GetResult(0)
	require.NoError(t, err)
	i, _ := got.AsInt()
	assert.EqualValues(t, 7, i)
	assert.NoError(t, n.Err())
}

func TestReentrantEvaluation(t *testing.T) {
	var self *Node
	var innerErr error
	var err error
	self, err = New(Spec{
		Type:    "Selfish",
		Outputs: []OutputSpec{{Name: "Out", Kind: value.KindInt}},
		Compute: func([]value.Value) ([]value.Value, error) {
			_, innerErr = self.GetResult(0)
			return []value.Value{value.Int(1)}, nil
		},
	})
	require.NoError(t, err)

	_, err = self.GetResult(0)
	require.NoError(t, err)
	assert.ErrorIs(t, innerErr, ErrCyclicGraph)
	assert.ErrorIs(t, innerErr, ErrReentrant)
}

func TestPullDetectsSlippedCycle(t *testing.T) {
	c := newCounter()
	a, b := c.addOne(t, "a"), c.addOne(t, "b")
	// Sockets can be wired directly without the graph's acyclicity check.
	require.NoError(t, b.inputs[0].Connect(a.outputs[0]))
	require.NoError(t, a.inputs[0].Connect(b.outputs[0]))

	_, err := b.GetResult(0)
	assert.ErrorIs(t, err, ErrCyclicGraph)
	assert.Empty(t, c.order)
}

func TestEventsOrder(t *testing.T) {
	c := newCounter()
	n := c.addOne(t, "a")

	var got []Event
	unsubscribe := n.Subscribe(func(ev Event) { got = append(got, ev) })

	_, err := n.GetResult(0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, InputsChanged, got[0].Kind)
	require.Len(t, got[0].Inputs, 1)
	assert.True(t, got[0].Inputs[0].Equal(value.Float(0)))
	assert.Equal(t, ResultsChanged, got[1].Kind)
	assert.True(t, got[1].Outputs[0].Equal(value.Float(1)))

	n.Invalidate()
	require.Len(t, got, 3)
	assert.Equal(t, Invalidated, got[2].Kind)

	n.Invalidate()
	assert.Len(t, got, 3, "an already stale node does not re-announce")

	unsubscribe()
	_, err = n.GetResult(0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestInputsChangedListenerCannotReenter(t *testing.T) {
	// --- Arrange ---
	c := newCounter()
	n := c.addOne(t, "a")
	var innerErr error
	var inner int
	n.Subscribe(func(ev Event) {
		if ev.Kind != InputsChanged {
			return
		}
		inner++
		_, innerErr = n.GetResult(0)
	})

	// --- Act ---
	got, err := n.GetResult(0)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, got.Equal(value.Float(1)))
	assert.Equal(t, 1, inner, "the listener ran once and did not recurse")
	assert.ErrorIs(t, innerErr, ErrReentrant)
	assert.Equal(t, 1, c.calls["a"])
	assert.Equal(t, Fresh, n.State())
}

func TestInvalidateDuringCompute(t *testing.T) {
	// --- Arrange ---
	c := newCounter()
	n := c.addOne(t, "a")
	edited := false
	var kinds []EventKind
	n.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == InputsChanged && !edited {
			edited = true
			require.NoError(t, n.Inputs()[0].SetManualValue(value.Float(10)))
		}
	})

	// --- Act ---
	first, err := n.Evaluate()

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, first[0].Equal(value.Float(1)), "inputs were resolved before the edit")
	assert.Equal(t, Stale, n.State(), "the edit made during compute is not lost")
	assert.Equal(t, []EventKind{InputsChanged, ResultsChanged, Invalidated}, kinds)

	t.Run("next pull sees the edit", func(t *testing.T) {
		got, err := n.GetResult(0)
		require.NoError(t, err)
		assert.True(t, got.Equal(value.Float(11)))
		assert.Equal(t, Fresh, n.State())
		assert.Equal(t, 2, c.calls["a"])
	})
}
