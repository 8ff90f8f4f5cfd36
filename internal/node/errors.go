package node

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/framegraph/internal/value"
)

var (
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrOutOfRange      = errors.New("value out of range")
	ErrInvalidChoice   = errors.New("invalid choice")
	ErrIndexOutOfRange = errors.New("socket index out of range")
	ErrInvalidSpec     = errors.New("invalid node spec")
	ErrOutputCount     = errors.New("compute returned the wrong number of outputs")
	ErrComputePanic    = errors.New("compute panicked")
	// ErrCyclicGraph aborts a pull that reached a node it is already
	// resolving.
	ErrCyclicGraph = errors.New("cyclic graph")
	// ErrReentrant is returned when Evaluate is called on a node that is
	// inside its own compute.
	ErrReentrant = errors.New("node is already computing")
)

// Direction tells input sockets from output sockets.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

func (d Direction) String() string {
	if d == DirOutput {
		return "output"
	}
	return "input"
}

// SocketRef identifies a socket in error messages: enough for a UI to point
// at the offending terminal.
type SocketRef struct {
	NodeID    string
	NodeLabel string
	Index     int
	Name      string
	Direction Direction
}

func (r SocketRef) String() string {
	return fmt.Sprintf("%s %q[%d] (%s) of node %s", r.Direction, r.Name, r.Index, r.NodeLabel, r.NodeID)
}

// TypeMismatchError reports a value or connection whose kind the socket
// does not accept.
type TypeMismatchError struct {
	Socket   SocketRef
	Expected value.Kind
	Actual   value.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch on %s: expected %s, got %s", e.Socket, e.Expected, e.Actual)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// RangeError reports a numeric value outside the socket's bounds.
type RangeError struct {
	Socket SocketRef
	Value  float64
	Min    *float64
	Max    *float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %g out of range %s on %s", e.Value, formatBounds(e.Min, e.Max), e.Socket)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// ChoiceError reports an option that is not one of the socket's choices.
type ChoiceError struct {
	Socket  SocketRef
	Value   string
	Choices []string
}

func (e *ChoiceError) Error() string {
	return fmt.Sprintf("invalid choice %q on %s: must be one of [%s]", e.Value, e.Socket, strings.Join(e.Choices, ", "))
}

func (e *ChoiceError) Unwrap() error { return ErrInvalidChoice }

func formatBounds(lo, hi *float64) string {
	lower, upper := "-inf", "+inf"
	if lo != nil {
		lower = fmt.Sprintf("%g", *lo)
	}
	if hi != nil {
		upper = fmt.Sprintf("%g", *hi)
	}
	return "[" + lower + ", " + upper + "]"
}
