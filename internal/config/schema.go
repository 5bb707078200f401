package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	OPNsense OPNsenseConfig `yaml:"opnsense"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	OUI      OUIConfig      `yaml:"oui"`
	Nmap     NmapConfig     `yaml:"nmap"`
	Fixture  FixtureConfig  `yaml:"fixture"`
	// EnvFile is a KEY=VALUE credentials file read before the environment
	EnvFile string `yaml:"env_file"`
}

// OPNsenseConfig holds appliance connection settings
type OPNsenseConfig struct {
	Host      string   `yaml:"host"`
	APIKey    string   `yaml:"api_key"`
	APISecret string   `yaml:"api_secret"`
	VerifySSL bool     `yaml:"ssl_verify"`
	Timeout   Duration `yaml:"timeout"`
}

// Configured reports whether enough is set to build a client
func (o OPNsenseConfig) Configured() bool {
	return o.Host != "" && o.APIKey != "" && o.APISecret != ""
}

// ServerConfig holds HTTP transport settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// KeepAlive is the idle interval between SSE comment frames
	KeepAlive Duration `yaml:"keepalive"`
	// MaxQueue bounds each client's event queue; 0 is unbounded
	MaxQueue    int      `yaml:"max_queue"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
	Metrics     bool     `yaml:"metrics"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// OUIConfig holds vendor database settings
type OUIConfig struct {
	// CSVPath is an IEEE oui.csv file; it takes precedence over the database
	CSVPath   string         `yaml:"csv_path,omitempty"`
	Database  DatabaseConfig `yaml:"database"`
	SourceURL string         `yaml:"source_url"`
	// Watch reloads the table when CSVPath changes
	Watch bool `yaml:"watch"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// NmapConfig holds settings for the scanning host resolver
type NmapConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Subnets           []string `yaml:"subnets,omitempty"`
	Timeout           Duration `yaml:"timeout"`
	SkipHostDiscovery bool     `yaml:"skip_host_discovery"`
	// SweepTTL reuses a subnet discovery scan across searches; negative
	// scans on every search
	SweepTTL Duration `yaml:"sweep_ttl"`
}

// FixtureConfig points at a YAML snapshot served instead of an appliance
type FixtureConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
