// Command pointpack serves and builds point packages from GeoJSON and
// FlatGeobuf layers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tingold/orb-pointpack/internal/config"
	"github.com/tingold/orb-pointpack/internal/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "pointpack",
	Short: "pointpack packages geospatial records for visualization clients",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	Version:           "0.1.0",
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (default: ./pointpack.{toml,yaml,json} or /etc/pointpack/)")
	flags.StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "Override log.format (json, console)")
}

// loadConfig loads the configuration and applies the logging overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

// setupCLI loads the configuration for the one-shot commands. Their logs go to
// stderr so stdout stays free for package output.
func setupCLI() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger.SetupWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
