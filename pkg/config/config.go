// Package config handles loading and saving fold configuration.
//
// Configuration follows the XDG Base Directory specification:
// ~/.config/fold/config.yaml, or $XDG_CONFIG_HOME/fold/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "fold"

// Environment overrides, applied on top of the file by ApplyEnv.
const (
	EnvDataPath  = "FOLD_DATA"
	EnvForcePoll = "FOLD_FORCE_POLL"
)

// DefaultDebounce is used when watch.debounce_ms is unset or invalid.
const DefaultDebounce = 250 * time.Millisecond

// UIConfig holds UI preference settings.
type UIConfig struct {
	FoldingEnabled *bool `yaml:"folding_enabled,omitempty"` // nil means enabled
	ShowNotes      bool  `yaml:"show_notes,omitempty"`      // Open the notes pane on start
	DetailWidth    int   `yaml:"detail_width,omitempty"`    // Notes pane width in columns
}

// DataConfig says where the hierarchy comes from.
type DataConfig struct {
	Path   string `yaml:"path,omitempty"`
	RootID string `yaml:"root_id,omitempty"`
}

// WatchConfig controls live reload.
type WatchConfig struct {
	Enabled    *bool `yaml:"enabled,omitempty"` // nil means enabled
	DebounceMS int   `yaml:"debounce_ms,omitempty"`
	ForcePoll  bool  `yaml:"force_poll,omitempty"`
}

// Config is the top-level configuration for fold.
type Config struct {
	UI    UIConfig    `yaml:"ui,omitempty"`
	Data  DataConfig  `yaml:"data,omitempty"`
	Watch WatchConfig `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			DetailWidth: 48,
		},
		Watch: WatchConfig{
			DebounceMS: int(DefaultDebounce / time.Millisecond),
		},
	}
}

// FoldingEnabled reports ui.folding_enabled, defaulting to true.
func (c Config) FoldingEnabled() bool {
	return c.UI.FoldingEnabled == nil || *c.UI.FoldingEnabled
}

// WatchEnabled reports watch.enabled, defaulting to true.
func (c Config) WatchEnabled() bool {
	return c.Watch.Enabled == nil || *c.Watch.Enabled
}

// Debounce returns the watcher debounce interval.
func (c Config) Debounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return DefaultDebounce
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// ApplyEnv overlays environment overrides. Flags are applied by the caller
// afterwards, so they win over both.
func (c *Config) ApplyEnv() {
	if p := strings.TrimSpace(os.Getenv(EnvDataPath)); p != "" {
		c.Data.Path = expandHome(p)
	}
	if v := os.Getenv(EnvForcePoll); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Watch.ForcePoll = b
		}
	}
}

// ConfigDir returns the XDG config directory for fold.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.Data.Path = expandHome(cfg.Data.Path)
	return cfg, nil
}

// Validate rejects values no component can use.
func (c Config) Validate() error {
	if c.UI.DetailWidth < 0 {
		return fmt.Errorf("ui.detail_width must not be negative, got %d", c.UI.DetailWidth)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS)
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// BoolPtr is a helper for the optional boolean fields.
func BoolPtr(b bool) *bool { return &b }

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
