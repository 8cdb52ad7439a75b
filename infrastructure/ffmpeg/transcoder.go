package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"speech-clipper/domain/clip"
)

// ErrNotFound is returned by VerifyInstalled when ffmpeg cannot be resolved on PATH
var ErrNotFound = errors.New("ffmpeg not found on PATH")

// Transcoder implements clip.Transcoder using ffmpeg
type Transcoder struct {
	ffmpegPath string
	runner     CommandRunner
	timeout    time.Duration
}

// TranscoderOption is a functional option for configuring Transcoder
type TranscoderOption func(*Transcoder)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) TranscoderOption {
	return func(t *Transcoder) {
		if path != "" {
			t.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) TranscoderOption {
	return func(t *Transcoder) {
		t.runner = runner
	}
}

// WithTimeout bounds each invocation. Zero means no limit.
func WithTimeout(d time.Duration) TranscoderOption {
	return func(t *Transcoder) {
		t.timeout = d
	}
}

// NewTranscoder creates a new FFmpeg-based transcoder
func NewTranscoder(opts ...TranscoderOption) *Transcoder {
	t := &Transcoder{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Args returns the ffmpeg argument list for a job.
// -ss and -to are input options so -to is an absolute position in the source.
func Args(job clip.TranscodeJob) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y", // Overwrite output file if it exists
		"-ss", job.Start,
		"-to", job.End,
		"-i", job.SourcePath,
		"-ac", strconv.Itoa(clip.Channels),
		"-ar", strconv.Itoa(clip.SampleRate),
		job.OutputPath,
	}
}

// Transcode implements clip.Transcoder
func (t *Transcoder) Transcode(ctx context.Context, job clip.TranscodeJob, diag io.Writer) (clip.TranscodeResult, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	err := t.runner.Run(ctx, diag, t.ffmpegPath, Args(job)...)
	if err == nil {
		return clip.TranscodeResult{ExitStatus: 0}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return clip.TranscodeResult{ExitStatus: exitErr.ExitCode()}, nil
	}

	return clip.TranscodeResult{ExitStatus: clip.ExitStatusNotStarted}, fmt.Errorf("ffmpeg could not be run: %w", err)
}

// VerifyInstalled checks that ffmpeg resolves on PATH
func (t *Transcoder) VerifyInstalled() error {
	if _, err := t.runner.LookPath(t.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, t.ffmpegPath, err)
	}
	return nil
}

// Ensure Transcoder implements clip.Transcoder
var _ clip.Transcoder = (*Transcoder)(nil)
