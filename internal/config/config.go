// Package config provides the engine's tuning configuration: defaults,
// optional YAML file overlay, environment variable overrides, and hot
// reloading for development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RepairModeStrict and RepairModeAny are the two clean-repair modes.
const (
	RepairModeStrict = "strict"
	RepairModeAny    = "any"
)

// Config holds all engine tuning values. None of them change observable
// results; they tune when indices appear and how clean-policy repair
// behaves when several repairs are equally valid.
type Config struct {
	// IndexThreshold is the access count after which the optimizer builds
	// an index for a property or edge type.
	IndexThreshold int `yaml:"index_threshold" validate:"min=1"`

	// RepairMode governs clean-policy repair when multiple equally valid
	// repairs exist: strict refuses to guess, any picks the first
	// conflicting edge in insertion order.
	RepairMode string `yaml:"repair_mode" validate:"oneof=strict any"`

	// MaxNodes and MaxEdges bound graph size engine-wide; 0 means
	// unbounded. Per-graph bounds are declared as rules instead.
	MaxNodes int `yaml:"max_nodes" validate:"min=0"`
	MaxEdges int `yaml:"max_edges" validate:"min=0"`

	// AllPathsMaxLength is the default bound for all-paths enumeration when
	// the caller gives none.
	AllPathsMaxLength int `yaml:"all_paths_max_length" validate:"min=1"`

	// LogLevel selects the engine logger's level.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the engine's default configuration.
func Default() *Config {
	return &Config{
		IndexThreshold:    10,
		RepairMode:        RepairModeAny,
		MaxNodes:          0,
		MaxEdges:          0,
		AllPathsMaxLength: 16,
		LogLevel:          "info",
	}
}

// Load builds configuration from, in increasing priority: defaults, the
// YAML file at path (skipped when path is empty or missing), and
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration's declared constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables, the highest-priority source.
func (c *Config) applyEnv() {
	if v := getEnvInt("LATTICE_INDEX_THRESHOLD"); v > 0 {
		c.IndexThreshold = v
	}
	if v := os.Getenv("LATTICE_REPAIR_MODE"); v != "" {
		c.RepairMode = v
	}
	if v := getEnvInt("LATTICE_MAX_NODES"); v > 0 {
		c.MaxNodes = v
	}
	if v := getEnvInt("LATTICE_MAX_EDGES"); v > 0 {
		c.MaxEdges = v
	}
	if v := getEnvInt("LATTICE_ALL_PATHS_MAX_LENGTH"); v > 0 {
		c.AllPathsMaxLength = v
	}
	if v := os.Getenv("LATTICE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func getEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
