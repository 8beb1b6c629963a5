package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envPrefix namespaces every environment override, e.g. HUMMINGBIRD_ADDR.
const envPrefix = "HUMMINGBIRD_"

// Config is shared by the serve and visit commands. Values come from
// defaults, then the YAML file, then HUMMINGBIRD_* variables, then flags.
type Config struct {
	Addr          string        `yaml:"addr" env:"ADDR"`
	Region        string        `yaml:"region" env:"REGION"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
	SnapshotLimit int           `yaml:"snapshot_limit" env:"SNAPSHOT_LIMIT"`
	SnapshotKey   string        `yaml:"snapshot_key" env:"SNAPSHOT_KEY"`
	Metrics       bool          `yaml:"metrics" env:"METRICS"`
	Log           LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		Region:        "main",
		Timeout:       10 * time.Second,
		SnapshotLimit: 64,
		Metrics:       true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads path (if non-empty) over the defaults and applies
// environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values a command cannot run without.
func (c Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("config: region must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: timeout must not be negative")
	}
	if c.SnapshotLimit < 0 {
		return fmt.Errorf("config: snapshot_limit must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("config: unknown log level %q", s)
	}
	return level, nil
}

// NewLogger builds the slog logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
