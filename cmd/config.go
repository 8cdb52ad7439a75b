package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"speech-clipper/infrastructure/config"

	"github.com/spf13/cobra"
)

// DefaultOutput is the default output writer for config commands
var DefaultOutput io.Writer = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	Long: `Inspect the effective configuration: the config file with defaults applied
and CLIPPER_* environment overrides (including .env) on top.

Examples:
  speech-clipper config show
  speech-clipper --config other.yaml config show`,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	return RunConfigShowWithDependencies(cfg, cfgFile, DefaultOutput)
}

// RunConfigShowWithDependencies prints cfg as a key/value table
func RunConfigShowWithDependencies(cfg *config.Config, configPath string, out io.Writer) error {
	source := configPath
	if _, err := os.Stat(configPath); err != nil {
		source = configPath + " (not found, using defaults)"
	}
	fmt.Fprintf(out, "Config: %s\n\n", source)

	ledgerPath := cfg.Ledger.Path
	if ledgerPath == "" {
		ledgerPath = "(disabled)"
	}
	timeout := cfg.Transcoder.Timeout
	if timeout == "" {
		timeout = "(none)"
	}

	rows := [][2]string{
		{"paths.manifest", cfg.Paths.Manifest},
		{"paths.input_audio_directory", cfg.Paths.InputAudioDirectory},
		{"paths.output_directory", cfg.Paths.OutputDirectory},
		{"paths.log_file", cfg.Paths.LogFile},
		{"manifest.delimiter", fmt.Sprintf("%q", cfg.Manifest.Delimiter)},
		{"transcoder.ffmpeg_path", cfg.Transcoder.FFmpegPath},
		{"transcoder.timeout", timeout},
		{"log.level", cfg.Log.Level},
		{"ledger.path", ledgerPath},
		{"google.credentials_file", cfg.Google.CredentialsFile},
		{"google.token_file", cfg.Google.TokenFile},
		{"google.clips_folder_id", cfg.Google.ClipsFolderID},
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	fmt.Fprintln(w, "---\t-----")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
	}
	return w.Flush()
}
