package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"simonwaldherr.de/go/mockserv/pkg/logging"
)

const (
	DefaultListen   = "0.0.0.0:3030"
	DefaultMockRoot = "./mock"
	DefaultToolsDir = "./tools"
)

// Settings is one immutable view of the server configuration.
type Settings struct {
	Listen        string        `yaml:"listen"`
	MockRoot      string        `yaml:"mock_root"`
	ToolsDir      string        `yaml:"tools_dir"`
	Workers       int           `yaml:"workers"`
	ScriptTimeout time.Duration `yaml:"script_timeout"`
	LogLevel      string        `yaml:"log_level"`
}

// Default returns the settings used when no config file is present.
func Default() Settings {
	return Settings{
		Listen:   DefaultListen,
		MockRoot: DefaultMockRoot,
		ToolsDir: DefaultToolsDir,
		Workers:  runtime.NumCPU(),
		LogLevel: "info",
	}
}

// Validate reports every problem with s at once.
func (s Settings) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(s.Listen) == "" {
		errs.Add("listen", "must not be empty")
	}
	if strings.TrimSpace(s.MockRoot) == "" {
		errs.Add("mock_root", "must not be empty")
	}
	if strings.TrimSpace(s.ToolsDir) == "" {
		errs.Add("tools_dir", "must not be empty")
	}
	if s.Workers < 1 {
		errs.Add("workers", "must be at least 1", s.Workers)
	}
	if s.ScriptTimeout < 0 {
		errs.Add("script_timeout", "must not be negative", s.ScriptTimeout)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errs.Add("log_level", err.Error(), s.LogLevel)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Config holds the current Settings and lets the file watcher swap them
// while requests are being served.
type Config struct {
	settings Settings
	mu       sync.RWMutex
}

// NewConfig creates a Config populated with Default settings.
func NewConfig() *Config {
	return &Config{settings: Default()}
}

// ParseConfig reads the YAML file on top of the defaults and stores the
// result. A missing file is not an error: the defaults stay in place.
func (c *Config) ParseConfig(filename string) error {
	s, err := Load(filename)
	if err != nil {
		return err
	}
	c.Update(s)
	return nil
}

// Load reads and validates a YAML file without touching any Config.
func Load(filename string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config file found at %s, using defaults", filename)
			return s, nil
		}
		return Settings{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config %s: %w", filename, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	logging.Info("Config", "Loaded configuration from %s", filename)
	return s, nil
}

// Update replaces the current settings.
func (c *Config) Update(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// Get returns a copy of the current settings.
func (c *Config) Get() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// SaveConfig writes the current settings as YAML.
func (c *Config) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c.Get())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}
