package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Environment variables read by ApplyEnv
const (
	EnvAPIHost   = "OPNSENSE_API_HOST"
	EnvAPIKey    = "OPNSENSE_API_KEY"
	EnvAPISecret = "OPNSENSE_API_SECRET"
	EnvSSLVerify = "OPNSENSE_SSL_VERIFY"
	EnvHost      = "HOST"
	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
)

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// LoadEnvFile reads KEY=VALUE lines from path. A missing file yields an
// empty map.
func LoadEnvFile(path string) (map[string]string, error) {
	vals := map[string]string{}
	path = ExpandHome(path)
	if path == "" || !fileExists(path) {
		return vals, nil
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	for _, key := range f.Section(ini.DefaultSection).Keys() {
		vals[strings.TrimPrefix(key.Name(), "export ")] = key.String()
	}
	return vals, nil
}

// layered consults primary first, then fallback
func layered(primary LookupFunc, fallback map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvAPIHost, &c.OPNsense.Host)
	set(EnvAPIKey, &c.OPNsense.APIKey)
	set(EnvAPISecret, &c.OPNsense.APISecret)
	set(EnvHost, &c.Server.Host)
	set(EnvLogLevel, &c.Logging.Level)
	c.OPNsense.Host = strings.TrimRight(c.OPNsense.Host, "/")

	if v, ok := lookup(EnvSSLVerify); ok && v != "" {
		c.OPNsense.VerifySSL = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Server.Port = port
	}
	return nil
}
