// Package iofs prepares directories and files tmmigrate keeps under the
// home directory.
package iofs

import (
	_ "embed"
	"os"

	"github.com/tmforge/tmmigrate/pkg/config"
)

// ConfigYAML is the commented template of config.yaml.
//
//go:embed config.yaml
var ConfigYAML string

// EnsureDirs creates config, data and log directories when they are
// missing.
func EnsureDirs(homeDir string) error {
	dirs := []string{
		config.ConfigDir(homeDir),
		config.DataDir(homeDir),
		config.LogDir(homeDir),
	}
	for _, v := range dirs {
		if err := touchDir(v); err != nil {
			return err
		}
	}
	return nil
}

func touchDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return CreateDirError(dir, err)
	}

	return nil
}

// EnsureConfigFile writes the config.yaml template unless the file exists.
func EnsureConfigFile(homeDir string) error {
	configPath := config.ConfigFilePath(homeDir)

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	if err := os.WriteFile(configPath, []byte(ConfigYAML), 0644); err != nil {
		return CopyFileError(configPath, err)
	}

	return nil
}

// ReadConfigFile returns the content of config.yaml.
func ReadConfigFile(homeDir string) ([]byte, error) {
	path := config.ConfigFilePath(homeDir)
	res, err := os.ReadFile(path)
	if err != nil {
		return nil, ReadFileError(path, err)
	}
	return res, nil
}
