package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verger/graphset/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  gset config                                # Show all config
  gset config netset-url                     # Get specific value
  gset config netset-url https://mirror.org  # Set value
  gset config rate-limit 2                   # Throttle catalog requests

Keys:
  data-home   Cache root for downloaded datasets (default ~/.cache/graphset)
  netset-url  NetSet catalog endpoint
  konect-url  Konect collection endpoint
  timeout     HTTP timeout in seconds
  rate-limit  Requests per second against a catalog`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the response for config get commands.
type ConfigResponse struct {
	Path      string  `json:"path"`
	DataHome  string  `json:"data_home,omitempty"`
	NetSetURL string  `json:"netset_url,omitempty"`
	KonectURL string  `json:"konect_url,omitempty"`
	Timeout   int     `json:"timeout_seconds,omitempty"`
	RateLimit float64 `json:"rate_limit,omitempty"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("config:     %s\n", config.Path())
			fmt.Printf("data-home:  %s\n", cfg.DataHome)
			fmt.Printf("netset-url: %s\n", cfg.NetSetURL)
			fmt.Printf("konect-url: %s\n", cfg.KonectURL)
			fmt.Printf("timeout:    %d\n", cfg.Timeout)
			fmt.Printf("rate-limit: %g\n", cfg.RateLimit)
		} else {
			outputJSON(ConfigResponse{
				Path:      config.Path(),
				DataHome:  cfg.DataHome,
				NetSetURL: cfg.NetSetURL,
				KonectURL: cfg.KonectURL,
				Timeout:   cfg.Timeout,
				RateLimit: cfg.RateLimit,
			})
		}
		return nil
	}

	key := normalizeKey(args[0])

	// One arg: get specific value
	if len(args) == 1 {
		value, ok := configValue(cfg, key)
		if !ok {
			exitWithError(ExitError, "unknown configuration key: %s", args[0])
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	if err := setConfigValue(cfg, key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	return nil
}

func configValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "data-home":
		return cfg.DataHome, true
	case "netset-url":
		return cfg.NetSetURL, true
	case "konect-url":
		return cfg.KonectURL, true
	case "timeout":
		return strconv.Itoa(cfg.Timeout), true
	case "rate-limit":
		return strconv.FormatFloat(cfg.RateLimit, 'g', -1, 64), true
	default:
		return "", false
	}
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "data-home":
		if err := config.ValidateDataHome(value); err != nil {
			return err
		}
		cfg.DataHome = config.ExpandPath(value)

	case "netset-url":
		if err := config.ValidateEndpoint(value); err != nil {
			return err
		}
		cfg.NetSetURL = value

	case "konect-url":
		if err := config.ValidateEndpoint(value); err != nil {
			return err
		}
		cfg.KonectURL = value

	case "timeout":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeout must be a whole number of seconds: %s", value)
		}
		if err := config.ValidateTimeout(seconds); err != nil {
			return err
		}
		cfg.Timeout = seconds

	case "rate-limit":
		perSecond, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("rate-limit must be a number: %s", value)
		}
		if err := config.ValidateRateLimit(perSecond); err != nil {
			return err
		}
		cfg.RateLimit = perSecond

	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// normalizeKey converts key formats (netset-url, netset_url, NetSetURL) to consistent format
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}
