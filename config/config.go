// Package config holds the YAML configuration shared by the simtree
// command and the mirror it drives.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the configuration file structure. New sections can be added
// without breaking existing files.
type Config struct {
	// Schema is the path of a YAML schema file. Empty means the embedded
	// simulation schema.
	Schema string `yaml:"schema,omitempty"`

	Journal  *JournalConfig  `yaml:"journal,omitempty"`
	Snapshot *SnapshotConfig `yaml:"snapshot,omitempty"`
	RPC      *RPCConfig      `yaml:"rpc,omitempty"`
	Mirror   *MirrorConfig   `yaml:"mirror,omitempty"`

	// Color is one of auto, always or never.
	Color string `yaml:"color,omitempty"`
}

type JournalConfig struct {
	// Path of the sqlite journal. Empty disables journaling.
	Path string `yaml:"path,omitempty"`
}

// SnapshotConfig configures when the mirror writes a snapshot to the
// journal.
type SnapshotConfig struct {
	// MaxCommits triggers a snapshot after this many commits since the
	// last one. Zero or negative means disabled.
	MaxCommits int64 `yaml:"maxCommits"`
}

type RPCConfig struct {
	// Addr is a TCP listen address. Empty means stdio.
	Addr string `yaml:"addr,omitempty"`
}

type MirrorConfig struct {
	// Strict rehearses each batch on a clone and rejects it whole on the
	// first error.
	Strict bool `yaml:"strict"`
	// Queue is the number of batches that may wait for the worker.
	Queue int `yaml:"queue"`
}

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var ErrInvalid = errors.New("invalid config")

// LoadConfig reads path and fills in defaults for absent sections.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config with the defaults every absent section
// gets.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.fill()
	return cfg
}

func (c *Config) fill() {
	if c.Journal == nil {
		c.Journal = &JournalConfig{}
	}
	if c.Snapshot == nil {
		c.Snapshot = &SnapshotConfig{MaxCommits: 1000}
	}
	if c.RPC == nil {
		c.RPC = &RPCConfig{}
	}
	if c.Mirror == nil {
		c.Mirror = &MirrorConfig{}
	}
	if c.Mirror.Queue == 0 {
		c.Mirror.Queue = 16
	}
	if c.Color == "" {
		c.Color = ColorAuto
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: color %q", ErrInvalid, c.Color)
	}
	if c.Mirror != nil && c.Mirror.Queue < 0 {
		return fmt.Errorf("%w: negative mirror queue %d", ErrInvalid, c.Mirror.Queue)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
