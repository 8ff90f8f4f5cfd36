// Package app contains the core application logic. It wires the frame
// source, the node registry, the session, persistence and the outer surfaces
// into one App, decoupled from any specific entrypoint like a CLI.
package app
