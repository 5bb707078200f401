package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "OPNSENSE_MCP_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "opnsense-mcp.yaml"
	// ConfigDirName is the per-user and system config directory name
	ConfigDirName = "opnsense-mcp"
	// DefaultEnvFile holds appliance credentials as KEY=VALUE lines
	DefaultEnvFile = "~/.opnsense-env"

	userConfigFile = "config.yaml"
)

// userConfigDirs lists $XDG_CONFIG_HOME/opnsense-mcp then
// ~/.config/opnsense-mcp, skipping unset variables
func userConfigDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, ConfigDirName))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigDirName))
	}
	return dirs
}

// SearchPaths lists candidate config files in priority order: the
// $OPNSENSE_MCP_CONFIG file, ./opnsense-mcp.yaml, the per-user config
// directories, then /etc/opnsense-mcp/config.yaml.
func SearchPaths() []string {
	var paths []string
	if explicit := os.Getenv(EnvConfigPath); explicit != "" {
		paths = append(paths, ExpandHome(explicit))
	}
	local := ConfigFileName
	if abs, err := filepath.Abs(local); err == nil {
		local = abs
	}
	paths = append(paths, local)
	for _, dir := range userConfigDirs() {
		paths = append(paths, filepath.Join(dir, userConfigFile))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, userConfigFile))
}

// FindConfigPath returns the first existing SearchPaths entry, or "" when
// none exists
func FindConfigPath() string {
	for _, path := range SearchPaths() {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
func DefaultConfigPath() string {
	if dirs := userConfigDirs(); len(dirs) > 0 {
		return filepath.Join(dirs[0], userConfigFile)
	}
	return ConfigFileName
}

// ResolveEnvFile expands ~ in envFile and anchors a relative path at the
// directory of configFile. Without a config file it stays relative to the
// working directory.
func ResolveEnvFile(envFile, configFile string) string {
	envFile = ExpandHome(envFile)
	if envFile == "" || filepath.IsAbs(envFile) || configFile == "" {
		return envFile
	}
	return filepath.Join(filepath.Dir(configFile), envFile)
}

// EnsureConfigDir creates the parent directory of configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

// ExpandHome replaces a leading ~ with $HOME
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := os.Getenv("HOME")
	if home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
