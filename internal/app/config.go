package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl file or directory
	SnapshotPath string // snapshot json to start from

	FramesDir    string
	Loop         bool
	CacheSize    int
	Watch        bool
	PlayInterval time.Duration

	ListenAddr      string
	HealthcheckPort int

	StoreDir    string
	DatabaseURL string

	PreviewURL       string
	PreviewNamespace string

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath != "" && cfg.SnapshotPath != "" {
		return nil, errors.New("a pipeline and a snapshot cannot both be loaded at startup")
	}
	if cfg.StoreDir != "" && cfg.DatabaseURL != "" {
		return nil, errors.New("choose either a snapshot directory or a database, not both")
	}
	if cfg.FramesDir == "" && (cfg.Watch || cfg.PlayInterval > 0) {
		return nil, errors.New("watching and playback need a frames directory")
	}
	if cfg.PlayInterval < 0 {
		return nil, errors.New("play interval cannot be negative")
	}
	if cfg.CacheSize < 0 {
		return nil, errors.New("frame cache size cannot be negative")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, errors.New("healthcheck port must be between 0 and 65535")
	}
	return &cfg, nil
}
