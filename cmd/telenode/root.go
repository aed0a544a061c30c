package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/telenode/internal/client"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/config"
)

var (
	configPath string
	apiURL     string
	apiToken   string
	apiTimeout time.Duration
	apiRetries int
)

var rootCmd = &cobra.Command{
	Use:   "telenode",
	Short: "Telemetry node runtime",
	Long: `telenode hosts a node: a registry of labelled pipeline components
(sources, importer, archive, index, sinks) that are spawned, monitored and
shut down in order through a small command language.

Run "telenode start" to host a node and its control API, then use the
other subcommands to drive it over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "url", "", "Control API URL (default from config host and port)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("TELENODE_TOKEN"), "Bearer token for the control API")
	rootCmd.PersistentFlags().DurationVar(&apiTimeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().IntVar(&apiRetries, "retries", 3, "Retries while the node refuses connections")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(componentsCmd)
	rootCmd.AddCommand(tokenCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newClient() (*client.Client, error) {
	url := apiURL
	if url == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		url = "http://" + cfg.Server.Host + ":" + cfg.Server.Port
	}
	return client.New(client.Config{BaseURL: url, Token: apiToken, Timeout: apiTimeout, Retries: apiRetries}), nil
}
