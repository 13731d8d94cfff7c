// pattern: Imperative Shell

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the gateway's on-disk configuration, loaded from
// ~/.config/devagent/config.yaml (or $XDG_CONFIG_HOME/devagent/config.yaml).
type Config struct {
	Shell     string          `yaml:"shell"`
	LogLevel  string          `yaml:"log_level"`
	StaticDir string          `yaml:"static_dir"`
	ProbeDir  string          `yaml:"probe_dir"`
	Web       WebConfig       `yaml:"web"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type TailscaleConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Name        string   `yaml:"name"`
	Funnel      bool     `yaml:"funnel"`
	FunnelOnly  bool     `yaml:"funnel_only"`
	Ephemeral   bool     `yaml:"ephemeral"`
	Plaintext   bool     `yaml:"plaintext"`
	AuthKeyPath string   `yaml:"auth_key_path"`
	StateDir    string   `yaml:"state_dir"`
	Tags        []string `yaml:"tags"`
}

type WebConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

func DefaultConfig() Config {
	return Config{
		Shell:     defaultShell(),
		LogLevel:  "info",
		StaticDir: "/tmp/devagent_static",
		ProbeDir:  "/tmp/devagent",
		Web: WebConfig{
			Bind: "127.0.0.1",
			Port: 7681,
		},
		Tailscale: TailscaleConfig{
			Name:        "devagent",
			Ephemeral:   true,
			AuthKeyPath: "~/.config/devagent/tailscale-authkey",
			StateDir:    "~/.local/share/devagent/tsnsrv",
		},
	}
}

// defaultShell returns "zsh" unless overridden by SHELL_CMD, matching the
// original gateway's CLI default.
func defaultShell() string {
	if sh := os.Getenv("SHELL_CMD"); sh != "" {
		return sh
	}
	return "zsh"
}

func Load() (Config, error) {
	return LoadFrom(filepath.Join(getConfigDir(), "config.yaml"))
}

func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}

	if cfg.Shell == "" {
		cfg.Shell = defaultShell()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "/tmp/devagent_static"
	}
	if cfg.ProbeDir == "" {
		cfg.ProbeDir = "/tmp/devagent"
	}

	return cfg, nil
}

// ResolveTokenPath expands a path, resolving ~/... to the user's home directory.
// Returns empty string if path is empty.
func (c *Config) ResolveTokenPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ResolvePathFunc is the function signature for resolving paths with ~ expansion.
type ResolvePathFunc func(string) string

// Validate validates the TailscaleConfig.
// resolvePath expands ~ in paths (use Config.ResolveTokenPath).
func (tc *TailscaleConfig) Validate(resolvePath ResolvePathFunc) error {
	if !tc.Enabled {
		return nil
	}
	if tc.Name == "" {
		return errors.New("tailscale.name must be non-empty when tailscale is enabled")
	}
	if tc.FunnelOnly && !tc.Funnel {
		return errors.New("tailscale.funnel_only requires tailscale.funnel to be enabled")
	}
	authPath := resolvePath(tc.AuthKeyPath)
	if authPath == "" {
		return errors.New("tailscale.auth_key_path must be set when tailscale is enabled")
	}
	if _, err := os.Stat(authPath); err != nil {
		return fmt.Errorf("tailscale auth key file not found: %s", authPath)
	}
	return nil
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "devagent")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "devagent")
	}

	return filepath.Join(home, ".config", "devagent")
}
