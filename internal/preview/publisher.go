// Package preview forwards node change notifications to a GUI over
// socket.io. Events are converted on the session goroutine and emitted from
// a separate goroutine, so a slow connection never blocks evaluation.
package preview

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/value"
)

// EventName is the socket.io event every notification is sent as.
const EventName = "node_event"

// Emitter sends one socket.io event. *Client implements it.
type Emitter interface {
	Emit(event string, args ...any)
}

// Message is the payload of one notification.
type Message struct {
	Node    string   `json:"node"`
	Type    string   `json:"type"`
	Label   string   `json:"label,omitempty"`
	Event   string   `json:"event"`
	Error   string   `json:"error,omitempty"`
	Seconds float64  `json:"seconds,omitempty"`
	Outputs []Output `json:"outputs,omitempty"`
}

// Output summarizes one computed output. Scalars carry their value,
// images their size.
type Output struct {
	Name   string          `json:"name"`
	Kind   string          `json:"kind"`
	Null   bool            `json:"null,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Width  int             `json:"width,omitempty"`
	Height int             `json:"height,omitempty"`
	Count  int             `json:"count,omitempty"`
}

// Publisher queues node events and emits them in order.
type Publisher struct {
	emitter Emitter
	queue   chan Message
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewPublisher returns a publisher with room for buffer pending messages.
// Messages beyond that are dropped.
func NewPublisher(e Emitter, buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{emitter: e, queue: make(chan Message, buffer), logger: logger}
}

// Observe converts and queues ev. It has the node.Listener signature and
// never blocks. InputsChanged events are not published.
func (p *Publisher) Observe(ev node.Event) {
	if ev.Kind == node.InputsChanged {
		return
	}
	msg := NewMessage(ev)
	select {
	case p.queue <- msg:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.logger.Warn("Preview queue full, dropping events.", "dropped", n)
		}
	}
}

// Dropped reports how many messages did not fit in the queue.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Run emits queued messages until ctx ends.
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Debug("Preview publisher started.")
	defer p.logger.Debug("Preview publisher stopped.")
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.emitter.Emit(EventName, msg)
		}
	}
}

// NewMessage builds the payload for ev.
func NewMessage(ev node.Event) Message {
	n := ev.Node
	msg := Message{
		Node:  n.ID(),
		Type:  n.Type(),
		Label: n.Label(),
		Event: ev.Kind.String(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	if ev.Kind != node.ResultsChanged {
		return msg
	}
	msg.Seconds = ev.Duration.Seconds()
	outputs := n.Outputs()
	for i, v := range ev.Outputs {
		out := Output{Kind: v.Kind().String(), Null: v.IsNull()}
		if i < len(outputs) {
			out.Name = outputs[i].Name()
		}
		if !out.Null {
			summarize(&out, v)
		}
		msg.Outputs = append(msg.Outputs, out)
	}
	return msg
}

func summarize(out *Output, v value.Value) {
	if v.Kind().IsImage() {
		if img := v.AsImage(); img != nil {
			b := img.Bounds()
			out.Width, out.Height = b.Dx(), b.Dy()
		}
		return
	}
	if list, ok := v.AsContours(); ok {
		out.Count = len(list)
		return
	}
	if b, err := v.MarshalJSON(); err == nil {
		var doc struct {
			Value json.RawMessage `json:"value"`
		}
		if json.Unmarshal(b, &doc) == nil {
			out.Value = doc.Value
		}
	}
}
