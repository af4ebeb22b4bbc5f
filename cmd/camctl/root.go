package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openso2/camctl/internal/config"
	"github.com/openso2/camctl/internal/constants"
)

var rootConfigPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "camctl",
	Short: "camctl - SO2 camera instrument control toolkit",
	Long: `camctl manages a volcanic SO2 camera installation: the crontab schedule
that starts and stops acquisition, the plume-processing settings file, and
the supervisory jobs (data watchdog, disk space collection, temperature log)
that keep an unattended instrument healthy.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootConfigPath, "config", "c",
		"", "Path to configuration file (default: ./camctl.toml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig loads the config file named by --config, falling back to the
// default path and, when no file exists there, to built-in defaults.
func loadConfig() (*config.Config, error) {
	path := rootConfigPath
	if path == "" {
		path = constants.DefaultConfigPath
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// fatal prints an error and exits.
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
