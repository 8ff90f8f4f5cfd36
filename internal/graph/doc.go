// Package graph owns a set of nodes and the connection relation between
// their sockets, and answers evaluation requests over them.
//
// # Evaluation
//
// Two modes share one cache:
//   - **Pull:** EvaluateOutput walks connections backward depth first, in
//     input index order, computing stale ancestors once each and returning the
//     requested output. Nodes without a path to the request are not touched.
//   - **Push:** Invalidate, manual value edits and connection edits only flag
//     the affected node and everything downstream of it as stale. Recompute
//     happens on the next pull.
//
// # Invariants
//
//   - An input has at most one incoming connection, an output may fan out.
//   - Both endpoints of a connection are members of the graph.
//   - No self-loops and no cycles. Both are rejected by Connect before any
//     mutation. A cycle created by wiring sockets directly is still caught at
//     pull time and reported as ErrCyclicGraph.
//
// # Thread-Safety
//
// A Graph is not safe for concurrent use. internal/session serializes access
// for callers that run on several goroutines.
package graph
