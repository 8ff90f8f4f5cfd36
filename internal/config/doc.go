// Package config defines the format-agnostic pipeline model: the node
// declarations and connections a user writes by hand, before any node is
// built. Concrete loaders, such as the HCL one, live in separate packages and
// internal/builder turns a Pipeline into a live graph.
package config
