// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package config loads the gitswitch application configuration. Settings
// come from (in increasing precedence) built-in defaults, the config file,
// GITSWITCH_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration for gitswitch.
type Config struct {
	// ConfigDir overrides the directory holding profiles.yaml and audit.db.
	ConfigDir string `mapstructure:"config_dir" yaml:"config_dir,omitempty"`
	// SSHDir overrides the SSH directory that is scanned and managed.
	SSHDir string `mapstructure:"ssh_dir" yaml:"ssh_dir,omitempty"`
	// Language selects the UI language (e.g. "en").
	Language string `mapstructure:"language" yaml:"language"`
	// GitHubHost is the code-hosting host managed blocks route to.
	GitHubHost string `mapstructure:"github_host" yaml:"github_host"`
	// ProbeTimeoutSeconds bounds the live reachability check.
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds" yaml:"probe_timeout_seconds"`
}

// Defaults returns the built-in default settings.
func Defaults() map[string]any {
	return map[string]any{
		"language":              "en",
		"github_host":           "github.com",
		"probe_timeout_seconds": 5,
	}
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "gitswitch")
		default: // Linux, macOS, etc.
			configDir = "/etc/gitswitch"
		}
	} else {
		// User-specific configuration paths
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "gitswitch")
	}

	return filepath.Join(configDir, "gitswitch.yaml"), nil
}

// LoadConfig merges defaults, config file, environment and flags into T.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFilePath *string) (T, error) {
	var c T
	v := viper.New()

	// 1. Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Set up file search paths
	v.SetConfigName("gitswitch")
	v.SetConfigType("yaml")

	// 3. Add explicit config file path if provided via --config flag.
	// This has the highest precedence for file-based configuration.
	if additionalConfigFilePath != nil {
		v.SetConfigFile(*additionalConfigFilePath)
	}

	// 4. Add standard config locations
	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".") // Look for gitswitch.yaml in current dir

	// 5. Read in the primary config file.
	if err := v.ReadInConfig(); err != nil {
		// It's okay if the file is not found, but other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	// 6. Read from environment variables
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("gitswitch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteConfigFile persists the configuration to the user config path.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	return os.WriteFile(path, data, 0600)
}

// ResolveConfigDir returns the directory holding the profile store. The
// precedence is: explicit config value, GITSWITCH_CONFIG_DIR, then the
// platform user config dir.
func (c Config) ResolveConfigDir() (string, error) {
	if c.ConfigDir != "" {
		return c.ConfigDir, nil
	}
	if dir := os.Getenv("GITSWITCH_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(base, "gitswitch"), nil
}

// ResolveSSHDir returns the SSH directory to scan and manage.
func (c Config) ResolveSSHDir() (string, error) {
	if c.SSHDir != "" {
		return c.SSHDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	return filepath.Join(home, ".ssh"), nil
}
