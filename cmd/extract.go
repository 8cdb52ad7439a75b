package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	appclip "speech-clipper/application/clip"
	"speech-clipper/domain/clip"
	"speech-clipper/infrastructure/ffmpeg"
	"speech-clipper/infrastructure/filesystem"
	"speech-clipper/infrastructure/ledger"
	"speech-clipper/infrastructure/manifest"
	"speech-clipper/infrastructure/runlog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	extractManifestPath string
	extractInputDir     string
	extractOutputDir    string
	extractLogFile      string
	extractLedgerPath   string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Cut every manifest segment into a mono 16 kHz WAV clip",
	Long: `Read the manifest row by row and cut each segment out of its source recording.

Each row needs recording_id, segment_id, start_time and end_time. The source is
{input-dir}/{recording_id}.wav and the clip is written to {output-dir}/{segment_id}.wav,
overwriting any previous clip. Rows with a missing source or missing timestamps are
skipped and logged; ffmpeg failures are logged and the run continues.

Example:
  speech-clipper extract
  speech-clipper extract --manifest data/disfluency_manifest.csv --output-dir clips`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractManifestPath, "manifest", "", "Path to the manifest (defaults to paths.manifest)")
	extractCmd.Flags().StringVar(&extractInputDir, "input-dir", "", "Directory of source recordings (defaults to paths.input_audio_directory)")
	extractCmd.Flags().StringVar(&extractOutputDir, "output-dir", "", "Directory for clips (defaults to paths.output_directory)")
	extractCmd.Flags().StringVar(&extractLogFile, "log-file", "", "Run log file (defaults to paths.log_file)")
	extractCmd.Flags().StringVar(&extractLedgerPath, "ledger", "", "SQLite ledger of outcomes (defaults to ledger.path; empty disables)")
}

// ExtractOptions holds the resolved settings for one extraction run
type ExtractOptions struct {
	ManifestPath  string
	Delimiter     rune
	InputAudioDir string
	OutputDir     string
	LogPath       string
	LogLevel      string
	LedgerPath    string
	RunID         string // generated when empty
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	delimiter, err := manifest.ParseDelimiter(cfg.Manifest.Delimiter)
	if err != nil {
		return err
	}
	timeout, err := cfg.TranscoderTimeout()
	if err != nil {
		return err
	}

	opts := ExtractOptions{
		ManifestPath:  firstNonEmpty(extractManifestPath, cfg.Paths.Manifest),
		Delimiter:     delimiter,
		InputAudioDir: firstNonEmpty(extractInputDir, cfg.Paths.InputAudioDirectory),
		OutputDir:     firstNonEmpty(extractOutputDir, cfg.Paths.OutputDirectory),
		LogPath:       firstNonEmpty(extractLogFile, cfg.Paths.LogFile),
		LogLevel:      cfg.Log.Level,
		LedgerPath:    firstNonEmpty(extractLedgerPath, cfg.Ledger.Path),
	}

	transcoder := ffmpeg.NewTranscoder(
		ffmpeg.WithFFmpegPath(cfg.Transcoder.FFmpegPath),
		ffmpeg.WithTimeout(timeout),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	_, err = RunExtractWithDependencies(ctx, transcoder, filesystem.NewChecker(), opts, os.Stdout)
	return err
}

// RunExtractWithDependencies runs the extract command with injected dependencies (for testing).
// Row-level failures are reported in the summary, not as an error.
func RunExtractWithDependencies(
	ctx context.Context,
	transcoder clip.Transcoder,
	fileChecker clip.FileChecker,
	opts ExtractOptions,
	output io.Writer,
) (*clip.Summary, error) {
	if err := filesystem.EnsureDir(opts.OutputDir); err != nil {
		return nil, err
	}

	// Skipped rows are only recorded as warnings, so the level never filters them out
	level := runlog.ParseLevel(opts.LogLevel)
	if level > slog.LevelWarn {
		level = slog.LevelWarn
	}
	runLog, err := runlog.Open(opts.LogPath, level)
	if err != nil {
		return nil, err
	}
	defer runLog.Close()

	// Verify ffmpeg is available if transcoder supports it
	if verifiable, ok := transcoder.(interface{ VerifyInstalled() error }); ok {
		if err := verifiable.VerifyInstalled(); err != nil {
			return nil, fmt.Errorf("ffmpeg verification failed: %w", err)
		}
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := runlog.WithComponent(runlog.WithRunID(runLog.Logger(), runID), "extract")

	fmt.Fprintf(output, "Starting clip extraction from %s\n", opts.ManifestPath)

	reader, err := manifest.Open(opts.ManifestPath, opts.Delimiter)
	if err != nil {
		logger.Error("manifest could not be opened", "manifest", opts.ManifestPath, "error", err)
		return nil, err
	}
	defer reader.Close()

	serviceOpts := []appclip.Option{appclip.WithRunID(runID)}

	var outcomes *ledger.Ledger
	if opts.LedgerPath != "" {
		outcomes, err = ledger.New(opts.LedgerPath, runlog.WithComponent(logger, "ledger"))
		if err != nil {
			return nil, err
		}
		defer outcomes.Close()
		if err := outcomes.StartRun(ctx, runID, opts.ManifestPath); err != nil {
			return nil, err
		}
		serviceOpts = append(serviceOpts, appclip.WithRecorder(outcomes))
	}

	service := appclip.NewBatchService(
		transcoder,
		fileChecker,
		appclip.Paths{
			InputAudioDir: opts.InputAudioDir,
			OutputDir:     opts.OutputDir,
			LogPath:       opts.LogPath,
		},
		logger,
		runLog.Writer(),
		output,
		serviceOpts...,
	)

	logger.Info("run started", "manifest", opts.ManifestPath, "output_dir", opts.OutputDir)

	summary, runErr := service.Run(ctx, reader)
	printSummary(output, summary, opts, runErr != nil)
	if runErr != nil {
		// The ledger keeps the run open; the next ledger open marks it interrupted
		logger.Error("run stopped early", "processed", summary.Total(), "error", runErr)
		return summary, fmt.Errorf("extraction stopped after %d rows: %w", summary.Total(), runErr)
	}

	logger.Info("run finished",
		"completed", summary.Completed,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	if outcomes != nil {
		if err := outcomes.FinishRun(ctx, summary); err != nil {
			logger.Warn("failed to finish ledger run", "error", err)
		}
	}

	return summary, nil
}

func printSummary(output io.Writer, summary *clip.Summary, opts ExtractOptions, stopped bool) {
	if stopped {
		fmt.Fprintf(output, "\nExtraction stopped. Partial clips are in %s\n", opts.OutputDir)
	} else {
		fmt.Fprintf(output, "\nExtraction complete. Clips saved to %s\n", opts.OutputDir)
	}
	fmt.Fprintf(output, "Log file: %s\n", opts.LogPath)
	fmt.Fprintf(output, "  Completed: %d\n", summary.Completed)
	fmt.Fprintf(output, "  Skipped:   %d\n", summary.Skipped)
	fmt.Fprintf(output, "  Failed:    %d\n", summary.Failed)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
