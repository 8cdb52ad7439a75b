package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	appclip "speech-clipper/application/clip"
	"speech-clipper/domain/clip"
	"speech-clipper/infrastructure/filesystem"
	"speech-clipper/infrastructure/manifest"

	"github.com/spf13/cobra"
)

var (
	validateManifestPath string
	validateInputDir     string
	validateVerbose      bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Dry-run a manifest without running ffmpeg",
	Long: `Check every manifest row against the same rules extract applies and report
what extract would do with it. Nothing is transcoded and no file is written.

Rows whose timestamps cannot be parsed, whose end is not after their start, or
whose segment_id repeats an earlier row are reported as warnings. Warnings never
change what extract does.

Example:
  speech-clipper validate
  speech-clipper validate --manifest data/disfluency_manifest.csv --verbose`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateManifestPath, "manifest", "", "Path to the manifest (defaults to paths.manifest)")
	validateCmd.Flags().StringVar(&validateInputDir, "input-dir", "", "Directory of source recordings (defaults to paths.input_audio_directory)")
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "Print the outcome of every row, not only skipped ones")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	delimiter, err := manifest.ParseDelimiter(cfg.Manifest.Delimiter)
	if err != nil {
		return err
	}

	reader, err := manifest.Open(firstNonEmpty(validateManifestPath, cfg.Paths.Manifest), delimiter)
	if err != nil {
		return err
	}
	defer reader.Close()

	paths := appclip.Paths{
		InputAudioDir: firstNonEmpty(validateInputDir, cfg.Paths.InputAudioDirectory),
		OutputDir:     cfg.Paths.OutputDirectory,
		LogPath:       cfg.Paths.LogFile,
	}

	_, err = RunValidateWithDependencies(cmd.Context(), filesystem.NewChecker(), reader, paths, validateVerbose, os.Stdout)
	return err
}

// RunValidateWithDependencies runs the validate command with injected dependencies (for testing)
func RunValidateWithDependencies(
	ctx context.Context,
	fileChecker clip.FileChecker,
	reader clip.ManifestReader,
	paths appclip.Paths,
	verbose bool,
	output io.Writer,
) (*appclip.ValidationReport, error) {
	service := appclip.NewValidateService(fileChecker, paths)

	report, err := service.Validate(ctx, reader)
	if err != nil {
		return report, fmt.Errorf("validation stopped: %w", err)
	}

	for _, o := range report.Summary.Outcomes {
		if o.Status == clip.StatusSkipped || verbose {
			fmt.Fprintf(output, "  line %d: %s\n", o.Line, o)
		}
	}

	if len(report.Advisories) > 0 {
		fmt.Fprintf(output, "\nWarnings:\n")
		for _, a := range report.Advisories {
			fmt.Fprintf(output, "  line %d: %s: %s\n", a.Line, a.SegmentID, a.Message)
		}
	}

	fmt.Fprintf(output, "\n%d rows: %d would be clipped, %d would be skipped, %d warnings\n",
		report.Summary.Total(), report.Summary.Completed, report.Summary.Skipped, len(report.Advisories))
	return report, nil
}
