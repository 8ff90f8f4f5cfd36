// Package registry maps node type names to factories.
//
// Modules register their node types once at startup. The registry is then
// used to build nodes by name, either from user actions or when a saved
// graph is loaded, and to describe the available types to clients.
//
// Constructor parameters travel as a cty object. Each definition declares
// the parameters it accepts with their types and defaults; Build checks and
// normalizes the object before the factory sees it, so a node always records
// the full parameter set it was built from.
package registry
