// Package session owns a graph and runs every command against it on a single
// goroutine, so callers from different goroutines (HTTP handlers, the player,
// the directory watcher) never touch the graph concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/snapshot"
)

var (
	// ErrClosed is returned by Do once the session has been closed.
	ErrClosed = errors.New("session closed")
	// ErrCommandPanic wraps a panic raised by a command.
	ErrCommandPanic = errors.New("command panicked")
)

// Env is what a command sees. It is only valid inside the command.
type Env struct {
	Graph  *graph.Graph
	Layout snapshot.Layout

	s *Session
}

// Replace swaps in a new graph, such as one restored from a snapshot.
// Session subscribers are moved to it.
func (e *Env) Replace(g *graph.Graph, layout snapshot.Layout) {
	if layout == nil {
		layout = snapshot.Layout{}
	}
	e.s.attach(g)
	e.Graph = g
	e.Layout = layout
	e.s.layout = layout
	e.s.logger.Info("Session graph replaced.", "nodes", g.Len())
}

// Command is a unit of work run on the session goroutine.
type Command func(env *Env) error

// Observer is told how long each command took and whether it failed.
type Observer func(d time.Duration, err error)

type request struct {
	fn    Command
	reply chan error
}

// Session serializes commands against one graph.
type Session struct {
	requests chan request
	done     chan struct{}
	stopped  chan struct{}
	closing  sync.Once

	// Owned by the loop goroutine.
	graph       *graph.Graph
	layout      snapshot.Layout
	unsubscribe func()

	listeners []node.Listener
	observer  Observer
	logger    *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithLayout sets the initial editor layout.
func WithLayout(layout snapshot.Layout) Option {
	return func(s *Session) { s.layout = layout }
}

// WithListener registers a listener for events of every node in the owned
// graph, including graphs swapped in later with Env.Replace. Listeners run
// on the session goroutine.
func WithListener(fn node.Listener) Option {
	return func(s *Session) { s.listeners = append(s.listeners, fn) }
}

// WithObserver registers a per-command observer.
func WithObserver(fn Observer) Option {
	return func(s *Session) { s.observer = fn }
}

// New starts a session that owns g. Close must be called to stop it.
func New(g *graph.Graph, opts ...Option) *Session {
	s := &Session{
		requests: make(chan request),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.layout == nil {
		s.layout = snapshot.Layout{}
	}
	s.attach(g)
	go s.loop()
	return s
}

func (s *Session) attach(g *graph.Graph) {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.graph = g
	s.unsubscribe = g.Subscribe(func(ev node.Event) {
		for _, fn := range s.listeners {
			fn(ev)
		}
	})
}

func (s *Session) loop() {
	defer close(s.stopped)
	s.logger.Debug("Session loop started.")
	for {
		select {
		case <-s.done:
			s.unsubscribe()
			s.logger.Debug("Session loop finished.")
			return
		case req := <-s.requests:
			req.reply <- s.run(req.fn)
		}
	}
}

func (s *Session) run(fn Command) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Session command panicked.", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrCommandPanic, r)
		}
		if s.observer != nil {
			s.observer(time.Since(start), err)
		}
	}()
	env := &Env{Graph: s.graph, Layout: s.layout, s: s}
	return fn(env)
}

// Do runs fn on the session goroutine and waits for it. If ctx ends first,
// Do returns ctx.Err(); a command that already started still runs to
// completion.
func (s *Session) Do(ctx context.Context, fn Command) error {
	reply := make(chan error, 1)
	select {
	case s.requests <- request{fn: fn, reply: reply}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop after the running command, if any, finishes.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closing.Do(func() { close(s.done) })
	<-s.stopped
}
