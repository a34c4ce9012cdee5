package config

import (
	"path/filepath"
)

var (
	// AppName is used in generating file system paths.
	AppName = "tmmigrate"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/tmmigrate by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// DataDir returns the directory path for manifests and metrics.
// Returns ~/.local/share/tmmigrate by default.
func DataDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/tmmigrate/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(DataDir(homeDir), "logs")
}

// ConfigFilePath returns the full path to the config.yaml file.
// Returns ~/.config/tmmigrate/config.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}
