// Package config loads the application configuration from yaml with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Tracking TrackingConfig `yaml:"tracking"`
	Source   SourceConfig   `yaml:"source"`
	Storage  StorageConfig  `yaml:"storage"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
}

// TrackingConfig holds acquisition and history settings.
type TrackingConfig struct {
	// HistoryCapacity bounds the trail buffer (sliding window).
	HistoryCapacity int           `yaml:"history_capacity"`
	HighAccuracy    bool          `yaml:"high_accuracy"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	// MaxSampleAge is the oldest cached fix accepted as fresh.
	MaxSampleAge time.Duration `yaml:"max_sample_age"`
}

// SourceConfig selects and configures the position source.
type SourceConfig struct {
	// Type is "simulated" or "replay".
	Type string `yaml:"type"`

	Simulated SimulatedSourceConfig `yaml:"simulated"`
	Replay    ReplaySourceConfig    `yaml:"replay"`
}

// SimulatedSourceConfig holds simulated walk source settings.
type SimulatedSourceConfig struct {
	StartLatitude  float64       `yaml:"start_latitude"`
	StartLongitude float64       `yaml:"start_longitude"`
	StepMeters     float64       `yaml:"step_meters"`
	Interval       time.Duration `yaml:"interval"`
	Seed           uint64        `yaml:"seed"`
}

// ReplaySourceConfig holds replay source settings.
type ReplaySourceConfig struct {
	TrailPath string        `yaml:"trail_path"`
	Interval  time.Duration `yaml:"interval"`
	Loop      bool          `yaml:"loop"`
}

// StorageConfig selects the durable slot backing the history.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `yaml:"backend"`
	// Dir is the data directory for the file backend.
	Dir string `yaml:"dir"`
	// DBPath is the database path for the sqlite backend.
	DBPath string `yaml:"db_path"`
	// SlotName overrides the default slot identifier.
	SlotName string `yaml:"slot_name"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout or noop
}

// Defaults returns the baseline configuration.
func Defaults() *Config {
	return &Config{
		Tracking: TrackingConfig{
			HistoryCapacity: 100,
			RequestTimeout:  10 * time.Second,
		},
		Source: SourceConfig{
			Type: "simulated",
			Simulated: SimulatedSourceConfig{
				StartLatitude:  37.7749,
				StartLongitude: -122.4194,
				StepMeters:     15,
				Interval:       2 * time.Second,
			},
			Replay: ReplaySourceConfig{
				Interval: 2 * time.Second,
			},
		},
		Storage: StorageConfig{
			Backend: "file",
			Dir:     "./data",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads the configuration at path, applies env overrides and
// validates the result. A missing file is not an error: defaults plus
// env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies GEOTRAIL_* environment variables on top of
// the loaded configuration.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEOTRAIL_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("GEOTRAIL_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("GEOTRAIL_SOURCE_TYPE"); v != "" {
		cfg.Source.Type = v
	}
	if v := os.Getenv("GEOTRAIL_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("GEOTRAIL_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("GEOTRAIL_HISTORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tracking.HistoryCapacity = n
		}
	}
	if v := os.Getenv("GEOTRAIL_TRACER_ENABLED"); v != "" {
		cfg.Tracer.Enabled = v == "true" || v == "1"
	}
}

// Validate rejects configurations the engine cannot run with.
func Validate(cfg *Config) error {
	if cfg.Tracking.HistoryCapacity < 0 {
		return fmt.Errorf("tracking.history_capacity must not be negative")
	}
	switch cfg.Source.Type {
	case "simulated", "replay":
	default:
		return fmt.Errorf("source.type: unknown type %q", cfg.Source.Type)
	}
	if cfg.Source.Type == "replay" && cfg.Source.Replay.TrailPath == "" {
		return fmt.Errorf("source.replay.trail_path is required for the replay source")
	}
	switch cfg.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required for the sqlite backend")
	}
	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logger.format: unknown format %q", cfg.Logger.Format)
	}
	return nil
}
