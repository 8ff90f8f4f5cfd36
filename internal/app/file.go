package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file. Flags given on the
// command line override it.
type FileConfig struct {
	Version  int    `yaml:"version"`
	Pipeline string `yaml:"pipeline"`
	Snapshot string `yaml:"snapshot"`
	Frames   struct {
		Dir          string        `yaml:"dir"`
		Loop         *bool         `yaml:"loop"`
		CacheSize    int           `yaml:"cache_size"`
		Watch        bool          `yaml:"watch"`
		PlayInterval time.Duration `yaml:"play_interval"`
	} `yaml:"frames"`
	Server struct {
		Listen          *string `yaml:"listen"`
		HealthcheckPort int     `yaml:"healthcheck_port"`
	} `yaml:"server"`
	Store struct {
		Dir         string `yaml:"dir"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"store"`
	Preview struct {
		URL       string `yaml:"url"`
		Namespace string `yaml:"namespace"`
	} `yaml:"preview"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadFile reads and version-checks a configuration file.
func LoadFile(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc FileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Version != 1 {
		return nil, fmt.Errorf("unsupported config file version: %d", fc.Version)
	}
	return &fc, nil
}

// Apply copies every value set in the file onto cfg.
func (fc *FileConfig) Apply(cfg *Config) {
	setString(&cfg.PipelinePath, fc.Pipeline)
	setString(&cfg.SnapshotPath, fc.Snapshot)
	setString(&cfg.FramesDir, fc.Frames.Dir)
	if fc.Frames.Loop != nil {
		cfg.Loop = *fc.Frames.Loop
	}
	if fc.Frames.CacheSize != 0 {
		cfg.CacheSize = fc.Frames.CacheSize
	}
	cfg.Watch = cfg.Watch || fc.Frames.Watch
	if fc.Frames.PlayInterval != 0 {
		cfg.PlayInterval = fc.Frames.PlayInterval
	}
	if fc.Server.Listen != nil {
		cfg.ListenAddr = *fc.Server.Listen
	}
	if fc.Server.HealthcheckPort != 0 {
		cfg.HealthcheckPort = fc.Server.HealthcheckPort
	}
	setString(&cfg.StoreDir, fc.Store.Dir)
	setString(&cfg.DatabaseURL, fc.Store.DatabaseURL)
	setString(&cfg.PreviewURL, fc.Preview.URL)
	setString(&cfg.PreviewNamespace, fc.Preview.Namespace)
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
