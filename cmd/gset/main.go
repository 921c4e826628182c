// Package main provides the gset CLI entry point.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verger/graphset/datasets"
	"github.com/verger/graphset/internal/config"
	"github.com/verger/graphset/internal/fetch"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verbose enables progress logging to stderr
var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like unknown flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gset",
	Short: "Graph dataset loader",
	Long: `gset loads graphs from local files and remote dataset catalogs.

Local edge lists and GraphML files are parsed directly. Named datasets
from the NetSet and Konect catalogs are downloaded once into a local
cache under ~/.cache/graphset and parsed from there on every later load.

All commands output JSON by default for easy scripting.
Use --human for human-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env if present (for GRAPHSET_* overrides)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log download progress to stderr")
	rootCmd.Version = Version
}

// newLogger builds the CLI logger: silent unless --verbose.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopmentConfig().Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// mustLoadConfig loads the global configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustNewLoader builds a dataset loader from the global configuration.
// The caller is responsible for calling Close() on the returned loader.
func mustNewLoader() *datasets.Loader {
	cfg := mustLoadConfig()
	log := newLogger()

	fetchOpts := []fetch.ClientOption{fetch.WithLogger(log)}
	if cfg.Timeout > 0 {
		fetchOpts = append(fetchOpts, fetch.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}))
	}
	if cfg.RateLimit > 0 {
		fetchOpts = append(fetchOpts, fetch.WithRateLimit(cfg.RateLimit))
	}

	opts := []datasets.Option{
		datasets.WithLogger(log),
		datasets.WithClient(fetch.NewClient(fetchOpts...)),
	}
	if home := config.GetConfigValue(config.EnvDataHome, cfg.DataHome); home != "" {
		opts = append(opts, datasets.WithDataHome(home))
	}
	if url := config.GetConfigValue(config.EnvNetSetURL, cfg.NetSetURL); url != "" {
		opts = append(opts, datasets.WithNetSetURL(url))
	}
	if url := config.GetConfigValue(config.EnvKonectURL, cfg.KonectURL); url != "" {
		opts = append(opts, datasets.WithKonectURL(url))
	}

	l, err := datasets.NewLoader(opts...)
	if err != nil {
		exitWithError(ExitError, "opening dataset cache: %v", err)
	}
	return l
}

// exitLoadError maps a load failure onto the command exit codes.
func exitLoadError(err error) {
	switch {
	case datasets.IsUnknownDataset(err):
		exitWithError(ExitUnknownDataset, "%v", err)
	case datasets.IsNetwork(err):
		exitWithError(ExitNetworkError, "%v", err)
	default:
		exitWithError(ExitDataError, "%v", err)
	}
}
