// Package config loads the backend's configuration file.
//
// Config is YAML at a caller-supplied path (the daemon defaults to
// ~/.inquest/config.yaml). A missing file is not an error; every knob has
// a default, so a bare deployment runs without any file at all. All values
// are plain numeric/string knobs with no cross-dependencies.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// DataDir holds the SQLite database.
	DataDir string `yaml:"data_dir"`

	Stream StreamConfig `yaml:"stream"`
	Limits LimitsConfig `yaml:"limits"`
	Agent  AgentConfig  `yaml:"agent"`
}

// StreamConfig holds the subscriber-side timing knobs.
type StreamConfig struct {
	// TimeoutSeconds is the hard wall-clock ceiling for one event stream.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// PollIntervalMillis bounds one wait iteration of the stream reader.
	PollIntervalMillis int `yaml:"poll_interval_millis"`
}

// Timeout returns the stream timeout as a duration.
func (s StreamConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// PollInterval returns the poll interval as a duration.
func (s StreamConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMillis) * time.Millisecond
}

// LimitsConfig holds the content caps for live vs. persisted payloads.
// Live payloads render directly in the chat UI; storage favors
// completeness for audit and debugging, so the limits are independent.
type LimitsConfig struct {
	ToolOutputLive int `yaml:"tool_output_live"`
	ThinkingStore  int `yaml:"thinking_store"`
	ThinkingLive   int `yaml:"thinking_live"`
}

// AgentConfig holds the agent-facing knobs.
type AgentConfig struct {
	// MaxSuppressedRetries bounds how many retryable framework errors are
	// absorbed before a turn is failed.
	MaxSuppressedRetries int `yaml:"max_suppressed_retries"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Listen:  ":8080",
		DataDir: filepath.Join(home, ".inquest"),
		Stream: StreamConfig{
			TimeoutSeconds:     300,
			PollIntervalMillis: 1000,
		},
		Limits: LimitsConfig{
			ToolOutputLive: 500,
			ThinkingStore:  2000,
			ThinkingLive:   500,
		},
		Agent: AgentConfig{
			MaxSuppressedRetries: 3,
		},
	}
}

// Load reads the config file at path, filling unset fields from Default.
// A missing file returns Default (not an error).
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults backfills zero values so a partial file cannot zero out a
// knob that must stay positive.
func (c Config) withDefaults() Config {
	def := Default()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Stream.TimeoutSeconds <= 0 {
		c.Stream.TimeoutSeconds = def.Stream.TimeoutSeconds
	}
	if c.Stream.PollIntervalMillis <= 0 {
		c.Stream.PollIntervalMillis = def.Stream.PollIntervalMillis
	}
	if c.Limits.ToolOutputLive <= 0 {
		c.Limits.ToolOutputLive = def.Limits.ToolOutputLive
	}
	if c.Limits.ThinkingStore <= 0 {
		c.Limits.ThinkingStore = def.Limits.ThinkingStore
	}
	if c.Limits.ThinkingLive <= 0 {
		c.Limits.ThinkingLive = def.Limits.ThinkingLive
	}
	if c.Agent.MaxSuppressedRetries <= 0 {
		c.Agent.MaxSuppressedRetries = def.Agent.MaxSuppressedRetries
	}
	return c
}
