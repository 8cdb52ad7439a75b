package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"speech-clipper/infrastructure/config"
	"speech-clipper/infrastructure/manifest"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up the manifest and audio paths,
the ffmpeg location, the optional outcome ledger and Google Drive upload.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, cfgFile, os.Stdout)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, output io.Writer) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(output, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(output, "Welcome to speech-clipper setup!")
	fmt.Fprintln(output)

	cfg := config.Default()

	steps := []func(Prompter, *config.Config) error{
		promptPaths,
		promptManifest,
		promptTranscoder,
		promptLedger,
		promptGoogle,
	}
	for _, step := range steps {
		if err := step(prompter, cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Save configuration
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Configuration saved to %s\n", configPath)
	return nil
}

// ask prompts for a value, keeping the current one when the answer is empty
func ask(prompter Prompter, message string, field *string) error {
	value, err := prompter.Input(message, *field)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if value != "" {
		*field = value
	}
	return nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	if err := ask(prompter, "Path to the clip manifest?", &cfg.Paths.Manifest); err != nil {
		return err
	}
	if err := ask(prompter, "Directory containing the source recordings?", &cfg.Paths.InputAudioDirectory); err != nil {
		return err
	}
	if err := ask(prompter, "Where should clips go?", &cfg.Paths.OutputDirectory); err != nil {
		return err
	}
	return ask(prompter, "Run log file?", &cfg.Paths.LogFile)
}

func promptManifest(prompter Prompter, cfg *config.Config) error {
	if err := ask(prompter, `Manifest delimiter? (use \t for tab)`, &cfg.Manifest.Delimiter); err != nil {
		return err
	}
	if _, err := manifest.ParseDelimiter(cfg.Manifest.Delimiter); err != nil {
		return err
	}
	return nil
}

func promptTranscoder(prompter Prompter, cfg *config.Config) error {
	if err := ask(prompter, "ffmpeg executable?", &cfg.Transcoder.FFmpegPath); err != nil {
		return err
	}
	return ask(prompter, "Per-clip ffmpeg timeout? (e.g. 2m, empty for none)", &cfg.Transcoder.Timeout)
}

func promptLedger(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Record run outcomes in a SQLite ledger?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		return nil
	}
	cfg.Ledger.Path = "data/ledger.db"
	return ask(prompter, "Ledger database path?", &cfg.Ledger.Path)
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Upload clips to Google Drive?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		return nil
	}

	if err := ask(prompter, "Path to Google credentials file?", &cfg.Google.CredentialsFile); err != nil {
		return err
	}
	if err := ask(prompter, "Where should the OAuth token be cached?", &cfg.Google.TokenFile); err != nil {
		return err
	}

	folder, err := prompter.Input("Google Drive folder ID for clips?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if folder == "" {
		return fmt.Errorf("folder ID is required")
	}
	cfg.Google.ClipsFolderID = folder
	return nil
}
