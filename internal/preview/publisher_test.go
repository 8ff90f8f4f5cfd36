package preview

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/value"
)

type fakeEmitter struct {
	mu       sync.Mutex
	messages []Message
	got      chan struct{}
}

func (f *fakeEmitter) Emit(event string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == EventName && len(args) == 1 {
		f.messages = append(f.messages, args[0].(Message))
	}
	f.got <- struct{}{}
}

func splitNode(t *testing.T, fail *bool) *node.Node {
	t.Helper()
	n, err := node.New(node.Spec{
		Type: "Split",
		Outputs: []node.OutputSpec{
			{Name: "Image", Kind: value.KindGrayImage},
			{Name: "Mean", Kind: value.KindFloat},
			{Name: "Missing", Kind: value.KindInt},
		},
		Compute: func([]value.Value) ([]value.Value, error) {
			if *fail {
				return nil, errors.New("boom")
			}
			return []value.Value{
				value.Gray(image.NewGray(image.Rect(0, 0, 4, 3))),
				value.Float(1.5),
				value.Null(value.KindInt),
			}, nil
		},
	}, node.WithLabel("split"))
	require.NoError(t, err)
	return n
}

func TestNewMessage(t *testing.T) {
	fail := false
	n := splitNode(t, &fail)
	var events []node.Event
	n.Subscribe(func(ev node.Event) { events = append(events, ev) })

	_, err := n.Evaluate()
	require.NoError(t, err)
	require.Len(t, events, 2)

	msg := NewMessage(events[1])
	assert.Equal(t, "results_changed", msg.Event)
	assert.Equal(t, "Split", msg.Type)
	assert.Equal(t, "split", msg.Label)
	require.Len(t, msg.Outputs, 3)
	assert.Equal(t, Output{Name: "Image", Kind: "gray_image", Width: 4, Height: 3}, msg.Outputs[0])
	assert.JSONEq(t, `1.5`, string(msg.Outputs[1].Value))
	assert.True(t, msg.Outputs[2].Null)

	fail = true
	n.Invalidate()
	_, err = n.Evaluate()
	require.NoError(t, err)
	failed := NewMessage(events[len(events)-1])
	assert.Equal(t, "compute_failed", failed.Event)
	assert.Equal(t, "boom", failed.Error)
	assert.Empty(t, failed.Outputs)

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"width":4`)
}

func TestPublisher_EmitsInOrder(t *testing.T) {
	// --- Arrange ---
	fail := false
	g := graph.New()
	id, err := g.AddNode(splitNode(t, &fail))
	require.NoError(t, err)

	em := &fakeEmitter{got: make(chan struct{}, 8)}
	p := NewPublisher(em, 8, nil)
	g.Subscribe(p.Observe)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// --- Act ---
	_, err = g.EvaluateOutput(id, 0)
	require.NoError(t, err)
	require.NoError(t, g.Invalidate(id))

	// --- Assert ---
	for i := 0; i < 2; i++ {
		select {
		case <-em.got:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for emitted events")
		}
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	require.Len(t, em.messages, 2, "inputs_changed is not published")
	assert.Equal(t, "results_changed", em.messages[0].Event)
	assert.Equal(t, "invalidated", em.messages[1].Event)
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	fail := false
	n := splitNode(t, &fail)
	p := NewPublisher(&fakeEmitter{got: make(chan struct{}, 1)}, 1, nil)
	ev := node.Event{Kind: node.Invalidated, Node: n}

	p.Observe(ev)
	p.Observe(ev)
	p.Observe(ev)

	assert.Equal(t, int64(2), p.Dropped())
}

func TestDial_RejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), DialConfig{URL: "ftp://example.com"})
	assert.ErrorContains(t, err, "unsupported preview URL scheme")

	_, err = Dial(context.Background(), DialConfig{URL: "http://[::1"})
	assert.ErrorContains(t, err, "failed to parse URL")
}
