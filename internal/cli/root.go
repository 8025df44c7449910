// Package cli implements the strum command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vutran/strum/internal/config"
	"github.com/vutran/strum/internal/kv"
	"github.com/vutran/strum/internal/spotify/auth"
	"github.com/vutran/strum/internal/spotify/client"
)

var (
	cfgFile string
	jsonOut bool
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "strum",
	Short: "Stream and control Spotify from the command line",
	Long:  `Strum is a Spotify client for the terminal: browse your library, play previews locally, and control remote devices.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.strumrc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	return cfg
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}

func logToStderr(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// newClient wires the token store and API client from the loaded
// configuration. Most commands call this.
func newClient() (*client.Client, *auth.TokenStore, error) {
	if cfg.Spotify.ClientID == "" {
		return nil, nil, fmt.Errorf("spotify.client_id not configured. Set it in ~/.strumrc or via STRUM_SPOTIFY_CLIENT_ID")
	}

	store, err := kv.NewFileStore("")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open config directory: %w", err)
	}

	tokens := auth.NewTokenStore(store, cfg.Spotify.ClientID)
	c := client.New(tokens, store)
	if Verbose() {
		c.SetVerbose(true, logToStderr)
	}
	return c, tokens, nil
}
