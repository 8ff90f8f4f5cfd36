package config

import "context"

// Loader is the interface for a format-specific pipeline loader.
type Loader interface {
	// Load reads every pipeline file found under paths and merges them into
	// one Pipeline.
	Load(ctx context.Context, paths ...string) (*Pipeline, error)
}
