// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for gitswitch using
// the Cobra library. It defines the root command, subcommands (switch,
// create, detect, doctor, ...), flags, and the shared service wiring.

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/gitswitch/internal/audit"
	"github.com/toeirei/gitswitch/internal/config"
	"github.com/toeirei/gitswitch/internal/engine"
	"github.com/toeirei/gitswitch/internal/i18n"
	"github.com/toeirei/gitswitch/internal/logging"
	"github.com/toeirei/gitswitch/internal/model"
	"github.com/toeirei/gitswitch/internal/store"
)

var version = "dev" // this will be set by the linker

var cfgFile string
var verbose bool

var appConfig config.Config

// SetVersion lets the main package inject the build version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	var loadErr error
	appConfig, loadErr = config.LoadConfig[config.Config](cmd, config.Defaults(), optionalConfigPath)
	// A "file not found" error is expected on first run, so we handle it
	// specifically and write a default config for subsequent runs.
	if errors.As(loadErr, &viper.ConfigFileNotFoundError{}) {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			logging.Warnf("could not write default config file: %v", writeErr)
		}
	} else if loadErr != nil {
		return fmt.Errorf("error loading config: %w", loadErr)
	}

	if appConfig.Language == "" {
		appConfig.Language = "en"
	}
	if appConfig.GitHubHost == "" {
		appConfig.GitHubHost = "github.com"
	}
	if appConfig.ProbeTimeoutSeconds <= 0 {
		appConfig.ProbeTimeoutSeconds = 5
	}

	i18n.Init(appConfig.Language)
	logging.SetVerbose(verbose)

	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}
		if path == "" {
			return nil, nil
		}
		// Make sure the user-provided file exists to avoid unwanted behavior.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// newEngine builds the production engine from the loaded configuration.
func newEngine() (*engine.Engine, error) {
	configDir, err := appConfig.ResolveConfigDir()
	if err != nil {
		return nil, err
	}
	sshDir, err := appConfig.ResolveSSHDir()
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(appConfig.ProbeTimeoutSeconds) * time.Second
	return engine.New(store.New(configDir), sshDir, appConfig.GitHubHost, timeout), nil
}

// auditDBPath returns the path of the local audit trail database.
func auditDBPath() (string, error) {
	configDir, err := appConfig.ResolveConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "audit.db"), nil
}

// recordAudit appends an entry to the local audit trail. Audit failures
// are advisory and never fail the command that triggered them.
func recordAudit(action, profile, details string) {
	path, err := auditDBPath()
	if err != nil {
		logging.Warnf("audit trail unavailable: %v", err)
		return
	}
	trail, err := audit.Open(path)
	if err != nil {
		logging.Warnf("audit trail unavailable: %v", err)
		return
	}
	defer trail.Close()
	if err := trail.Record(action, profile, details); err != nil {
		logging.Warnf("could not record audit entry: %v", err)
	}
}

// reportError prints an error with its remedy when one is known.
func reportError(err error) error {
	if remedy := model.Remedy(err, ""); remedy != "" {
		return fmt.Errorf("%w\n  %s", err, remedy)
	}
	return err
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitswitch",
		Short: "gitswitch switches your GitHub identity in one step.",
		Long: `gitswitch manages named identity profiles (git name, email and a
dedicated SSH key) and switches between them atomically: the global git
identity, the managed SSH config block and the profile store always move
together. Existing SSH config content outside the managed markers is
never touched.

Running without a subcommand prints the active profile.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupDefaultServices,
		RunE:              runCurrent,
	}
	cmd.Version = version

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `UI language ("en")`)
	cmd.PersistentFlags().String("config_dir", "", "Directory holding the profile store")
	cmd.PersistentFlags().String("ssh_dir", "", "SSH directory to scan and manage")

	cmd.AddCommand(
		listCmd,
		currentCmd,
		showCmd,
		createCmd,
		importCmd,
		switchCmd,
		deleteCmd,
		regenerateCmd,
		copyCmd,
		detectCmd,
		doctorCmd,
		backupCmd,
		restoreCmd,
		auditCmd,
		wizardCmd,
	)

	return cmd
}

// Execute runs the CLI entrypoint. The root main package should call
// this function and handle process exit.
func Execute() error {
	return NewRootCmd().Execute()
}
