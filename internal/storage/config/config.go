package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dlcinst/internal/component"
	"dlcinst/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config holds global application settings
type Config struct {
	LinkMethod    domain.LinkMethod `yaml:"-"`
	LinkMethodStr string            `yaml:"link_method"`
	DefaultProxy  string            `yaml:"default_proxy"`
	PayloadDir    string            `yaml:"payload_dir,omitempty"` // Directory of real payload libraries
	History       bool              `yaml:"history"`               // Record runs in the history database
	Keybindings   string            `yaml:"keybindings"`           // "vim" or "standard"
	Hooks         domain.RunHooks   `yaml:"hooks,omitempty"`
	HookTimeout   int               `yaml:"hook_timeout,omitempty"` // Seconds; 0 means the default
}

// DefaultHookTimeout bounds a single hook script when hook_timeout is unset
const DefaultHookTimeout = 60 * time.Second

// HookTimeoutDuration returns the configured hook timeout
func (c *Config) HookTimeoutDuration() time.Duration {
	if c.HookTimeout <= 0 {
		return DefaultHookTimeout
	}
	return time.Duration(c.HookTimeout) * time.Second
}

// Default returns the settings used when no config file exists
func Default() *Config {
	return &Config{
		LinkMethod:   domain.LinkCopy,
		DefaultProxy: component.DefaultProxy,
		History:      true,
		Keybindings:  "vim",
	}
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // Return defaults
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.LinkMethodStr {
	case "", "copy", "hardlink", "symlink":
		cfg.LinkMethod = domain.ParseLinkMethod(cfg.LinkMethodStr)
	default:
		return nil, fmt.Errorf("%w: unknown link_method %q", domain.ErrInvalidConfig, cfg.LinkMethodStr)
	}

	switch cfg.Keybindings {
	case "":
		cfg.Keybindings = "vim"
	case "vim", "standard":
	default:
		return nil, fmt.Errorf("%w: unknown keybindings %q", domain.ErrInvalidConfig, cfg.Keybindings)
	}

	expandHooks(&cfg.Hooks.Install)
	expandHooks(&cfg.Hooks.Uninstall)

	cfg.DefaultProxy = component.NormalizeProxy(cfg.DefaultProxy)
	if !component.IsProxy(cfg.DefaultProxy) {
		return nil, fmt.Errorf("%w: unsupported default_proxy %q", domain.ErrInvalidConfig, cfg.DefaultProxy)
	}

	return cfg, nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	c.LinkMethodStr = c.LinkMethod.String()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// expandHooks replaces a leading ~/ in hook paths with the home directory
func expandHooks(h *domain.HookConfig) {
	for _, p := range []*string{&h.BeforeAll, &h.BeforeEach, &h.AfterEach, &h.AfterAll} {
		*p = expandHome(*p)
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
