// Package config loads opnsense-mcp settings.
//
// Settings are layered, later layers winning:
//  1. defaults
//  2. the YAML config file
//  3. the credentials env file (~/.opnsense-env, KEY=VALUE lines)
//  4. process environment variables
//
// Config file locations (priority order):
//  1. $OPNSENSE_MCP_CONFIG
//  2. ./opnsense-mcp.yaml
//  3. $XDG_CONFIG_HOME/opnsense-mcp/config.yaml
//  4. ~/.config/opnsense-mcp/config.yaml
//  5. /etc/opnsense-mcp/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 8080
	DefaultKeepAlive = 30 * time.Second
	DefaultTimeout   = 30 * time.Second
	DefaultSweepTTL  = time.Minute
	DefaultDBPath    = "./opnsense-mcp.db"
	DefaultSourceURL = "https://standards-oui.ieee.org/oui/oui.csv"
)

// Load reads the config file at path, or the first one found on the search
// path when path is empty, then applies the env file and the environment.
// The returned string is the file that was read, empty for defaults.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = FindConfigPath()
	}

	cfg := DefaultConfig()
	if path != "" {
		var err error
		cfg, path, err = LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
	}

	fileEnv, err := LoadEnvFile(ResolveEnvFile(cfg.EnvFile, path))
	if err != nil {
		return nil, path, err
	}
	if err := cfg.ApplyEnv(layered(os.LookupEnv, fileEnv)); err != nil {
		return nil, path, err
	}
	return cfg, path, cfg.Validate()
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.OPNsense.Timeout == 0 {
		c.OPNsense.Timeout = Duration(DefaultTimeout)
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.KeepAlive == 0 {
		c.Server.KeepAlive = Duration(DefaultKeepAlive)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.OUI.Database.Path == "" {
		c.OUI.Database.Path = DefaultDBPath
	}
	if c.OUI.SourceURL == "" {
		c.OUI.SourceURL = DefaultSourceURL
	}
	if c.Nmap.Timeout == 0 {
		c.Nmap.Timeout = Duration(DefaultTimeout)
	}
	if c.Nmap.SweepTTL == 0 {
		c.Nmap.SweepTTL = Duration(DefaultSweepTTL)
	}
	if c.EnvFile == "" {
		c.EnvFile = DefaultEnvFile
	}
}

// Validate checks values a server cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxQueue < 0 {
		errs = append(errs, errors.New("server.max_queue must not be negative"))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be console or json", c.Logging.Format))
	}
	if c.Nmap.Timeout < 0 {
		errs = append(errs, errors.New("nmap.timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	out := *c
	out.OPNsense.APIKey = mask(c.OPNsense.APIKey)
	out.OPNsense.APISecret = mask(c.OPNsense.APISecret)
	return &out
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	upstream := "fixtures (no appliance configured)"
	switch {
	case c.OPNsense.Configured():
		upstream = c.OPNsense.Host
	case c.Fixture.Path != "":
		upstream = "snapshot " + c.Fixture.Path
	}

	summary := fmt.Sprintf("Upstream: %s\n", upstream)
	summary += fmt.Sprintf("Listen: %s, Log: %s/%s\n", c.Addr(), c.Logging.Level, c.Logging.Format)
	summary += fmt.Sprintf("OUI database: %s", c.OUI.Database.Path)
	if c.OUI.CSVPath != "" {
		summary += fmt.Sprintf(", CSV: %s", c.OUI.CSVPath)
	}
	if c.Nmap.Enabled {
		subnets := strings.Join(c.Nmap.Subnets, " ")
		if subnets == "" {
			subnets = "local interfaces"
		}
		summary += fmt.Sprintf("\nNmap subnets: %s", subnets)
	}
	return summary
}
