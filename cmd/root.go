package cmd

import (
	"fmt"
	"os"

	"speech-clipper/infrastructure/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "speech-clipper",
	Short: "Cut labeled speech segments out of long recordings",
	Long: `speech-clipper turns a manifest of labeled speech segments into short,
uniformly formatted audio clips:

  - Read segments from a CSV manifest
  - Cut each segment from its source recording with ffmpeg
  - Normalize clips to mono 16 kHz WAV
  - Optionally upload the clips to Google Drive

Example:
  speech-clipper extract --manifest data/disfluency_manifest.csv`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "config/config.yaml"
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	cfg, cfgErr = config.LoadOrDefault(cfgFile)
	if cfgErr != nil {
		// Commands that need config report cfgErr themselves
		cfg = nil
		return
	}
	cfg.ApplyEnv()
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

// requireConfig returns the loaded configuration or the reason it could not be loaded
func requireConfig() (*config.Config, error) {
	if cfg == nil {
		if cfgErr != nil {
			return nil, fmt.Errorf("configuration not loaded: %w", cfgErr)
		}
		return nil, fmt.Errorf("configuration not loaded; ensure %s is valid", cfgFile)
	}
	return cfg, nil
}
