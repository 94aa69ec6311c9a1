// Package config loads the ingest service's configuration from a
// YAML file, falling back to built-in defaults for anything unset.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a multiqueue ingest
// service: the merger's tunables plus the ambient pieces (logging,
// diagnostics) that wrap it.
type Config struct {
	Merger      MergerConfig      `yaml:"merger"`
	Logging     LoggingConfig     `yaml:"logging"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// MergerConfig mirrors oqueue.Options' tunables.
type MergerConfig struct {
	SoftCap             int `yaml:"softCap"`
	UnknownKeyWarnEvery int `yaml:"unknownKeyWarnEvery"`
	BacklogWarnEvery    int `yaml:"backlogWarnEvery"`
}

// LoggingConfig controls the telemetry logger's verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DiagnosticsConfig controls the optional websocket diagnostics
// broadcaster.
type DiagnosticsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddr    string `yaml:"listenAddr"`
	RecorderDepth int    `yaml:"recorderDepth"`
}

// Default returns the built-in configuration used when no file is
// supplied.
func Default() Config {
	return Config{
		Merger: MergerConfig{
			SoftCap:             500,
			UnknownKeyWarnEvery: 1000,
			BacklogWarnEvery:    60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:       false,
			ListenAddr:    ":8080",
			RecorderDepth: 256,
		},
	}
}

// Load reads a YAML configuration file at path, overlaying it onto
// Default(). An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
