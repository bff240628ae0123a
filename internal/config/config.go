// Package config loads and validates the optional .earshot YAML file
// and applies EARSHOT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for the service configuration.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxOutput   = 1 << 20 // 1 MB
	DefaultListen      = "127.0.0.1:8787"
	DefaultInterpreter = "python3"
	DefaultScript      = "scripts/mediapipe_audio_classifier.py"
	DefaultRecentRuns  = 32
)

// Config holds the parsed .earshot configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int          `yaml:"version"`
	RawTimeout   string       `yaml:"timeout"`    // e.g. "60s", "2m"
	RawMaxOutput int          `yaml:"max_output"` // bytes per stream
	Listen       string       `yaml:"listen"`
	Worker       WorkerConfig `yaml:"worker"`
	Store        StoreConfig  `yaml:"store"`
}

// WorkerConfig names the external classifier process.
type WorkerConfig struct {
	Interpreter string   `yaml:"interpreter"` // e.g. "python3"
	Script      string   `yaml:"script"`      // classifier script path
	Args        []string `yaml:"args"`        // extra interpreter flags, before the script
}

// StoreConfig controls run record retention.
type StoreConfig struct {
	Recent int `yaml:"recent"` // in-memory LRU capacity
}

// Timeout returns the configured worker deadline or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured per-stream cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ListenAddr returns the configured HTTP listen address or the default.
func (c *Config) ListenAddr() string {
	if c.Listen != "" {
		return c.Listen
	}
	return DefaultListen
}

// Interpreter returns the configured worker interpreter or the default.
func (c *Config) Interpreter() string {
	if c.Worker.Interpreter != "" {
		return c.Worker.Interpreter
	}
	return DefaultInterpreter
}

// ScriptPath returns the configured classifier script or the default,
// resolved relative to root when not absolute.
func (c *Config) ScriptPath(root string) string {
	script := c.Worker.Script
	if script == "" {
		script = DefaultScript
	}
	if filepath.IsAbs(script) || root == "" {
		return script
	}
	return filepath.Join(root, script)
}

// RecentRuns returns the configured LRU capacity or the default.
func (c *Config) RecentRuns() int {
	if c.Store.Recent > 0 {
		return c.Store.Recent
	}
	return DefaultRecentRuns
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory containing go.mod; falls back to workspace
}

// Load reads the .earshot file from the repository root and applies
// environment overrides. The repository root is discovered by walking
// upward from workspace looking for go.mod. If no .earshot file exists,
// a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(workspace)
	if err != nil {
		// No go.mod found; use workspace as root.
		root = workspace
	}

	cfg := &Config{}
	path := filepath.Join(root, ".earshot")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing .earshot: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("reading .earshot: %w", err)
	}

	applyEnv(cfg)
	return &LoadResult{Config: cfg, RepoRoot: root}, nil
}

// applyEnv overlays EARSHOT_* variables on top of the file config.
// A .env file in the working directory is loaded first when present.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("EARSHOT_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("EARSHOT_WORKER"); v != "" {
		cfg.Worker.Interpreter = v
	}
	if v := os.Getenv("EARSHOT_SCRIPT"); v != "" {
		cfg.Worker.Script = v
	}
	if v := os.Getenv("EARSHOT_TIMEOUT"); v != "" {
		cfg.RawTimeout = v
	}
	if v := os.Getenv("EARSHOT_MAX_OUTPUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RawMaxOutput = n
		}
	}
}

// findRepoRoot walks upward from dir looking for a directory containing go.mod.
func findRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
