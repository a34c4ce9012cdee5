package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

// TestGetRootCmd_Exists verifies getRootCmd returns
// a valid command.
func TestGetRootCmd_Exists(t *testing.T) {
	cmd := getRootCmd()
	require.NotNil(t, cmd, "Root command should exist")
	assert.Equal(t, "tmmigrate", cmd.Use,
		"Command name should be tmmigrate")
}

// TestGetRootCmd_VersionFormat verifies version
// output format.
func TestGetRootCmd_VersionFormat(t *testing.T) {
	tests := []struct {
		name string
		flag string
	}{
		{"long", "--version"},
		{"short", "-V"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := getRootCmd()
			cmd.Version = "version: v1.2.3\nbuild:   abc123"

			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetArgs([]string{tt.flag})

			err := cmd.Execute()
			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, "v1.2.3")
			assert.Contains(t, output, "abc123")
			assert.NotContains(t, output, "tmmigrate version",
				"Should use custom version template")
		})
	}
}

// TestGetRootCmd_HelpText verifies help text content.
func TestGetRootCmd_HelpText(t *testing.T) {
	cmd := getRootCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	helpText := buf.String()
	for _, v := range []string{
		"tmmigrate", "manifest", "TMMIGRATE_SOURCE_URI",
		"migrate", "patch", "index", "plan",
	} {
		assert.Contains(t, helpText, v)
	}
}

// TestGetRootCmd_Settings verifies hooks and error silencing.
func TestGetRootCmd_Settings(t *testing.T) {
	cmd := getRootCmd()

	assert.NotNil(t, cmd.PersistentPreRunE,
		"PersistentPreRunE should be set for bootstrap")
	assert.NotNil(t, cmd.PersistentPostRunE,
		"PersistentPostRunE should close the log")
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)
}

// TestGetRootCmd_Subcommands verifies every subcommand is attached.
func TestGetRootCmd_Subcommands(t *testing.T) {
	cmd := getRootCmd()

	var names []string
	for _, v := range cmd.Commands() {
		names = append(names, v.Name())
	}
	for _, v := range []string{"plan", "migrate", "patch", "index", "manifest"} {
		assert.Contains(t, names, v)
	}
}

// TestGetRootCmd_IndependentInstances verifies each
// call returns independent instance.
func TestGetRootCmd_IndependentInstances(t *testing.T) {
	cmd1 := getRootCmd()
	cmd2 := getRootCmd()

	assert.NotSame(t, cmd1, cmd2,
		"Each getRootCmd call should return new instance")

	cmd1.Version = "version1"
	cmd2.Version = "version2"

	assert.Equal(t, "version1", cmd1.Version)
	assert.Equal(t, "version2", cmd2.Version)
}

// TestGetRootCmd_InvalidCommand verifies error on
// invalid command.
func TestGetRootCmd_InvalidCommand(t *testing.T) {
	cmd := getRootCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"nonexistent-command"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.True(t,
		strings.Contains(buf.String(), "unknown") ||
			strings.Contains(err.Error(), "unknown"),
		"Error should indicate unknown command")
}

// TestBootstrap verifies directories, config file and environment
// overrides.
func TestBootstrap(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TMMIGRATE_SOURCE_URI", "mongodb://legacy.example:27017")
	t.Setenv("TMMIGRATE_MIGRATE_BATCH_SIZE", "42")
	t.Setenv("TMMIGRATE_MANIFEST_S3_BUCKET", "tm-manifests")

	cmd := getRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"plan"})

	err := cmd.Execute()
	require.NoError(t, err)

	cfgPath := filepath.Join(home, ".config", "tmmigrate", "config.yaml")
	_, err = os.Stat(cfgPath)
	require.NoError(t, err, "config.yaml should be generated")

	logPath := filepath.Join(home, ".local", "share", "tmmigrate",
		"logs", "tmmigrate.log")
	_, err = os.Stat(logPath)
	require.NoError(t, err, "log file should be created")

	require.NotNil(t, cfg)
	assert.Equal(t, home, cfg.HomeDir)
	assert.Equal(t, "mongodb://legacy.example:27017", cfg.Source.URI)
	assert.Equal(t, 42, cfg.Migrate.BatchSize)
	assert.Equal(t, "tm-manifests", cfg.Manifest.S3.Bucket)
	assert.Equal(t, "tm", cfg.Target.Database,
		"values without overrides come from config.yaml")
}

// TestBootstrap_InvalidConfig verifies a broken config.yaml stops the
// command.
func TestBootstrap_InvalidConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgDir := filepath.Join(home, ".config", "tmmigrate")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"),
		[]byte("source: [unclosed\n"), 0644)
	require.NoError(t, err)

	cmd := getRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"plan"})

	err = cmd.Execute()
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.ConfigParseError, gnErr.Code)
}
