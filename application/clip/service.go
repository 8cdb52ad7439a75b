package clip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"speech-clipper/domain/clip"
)

// Paths holds the directories a batch run resolves clip requests against
type Paths struct {
	InputAudioDir string
	OutputDir     string
	LogPath       string // shown in console error notices
}

// BatchService drives the manifest-to-clips transformation with per-row isolation
type BatchService struct {
	transcoder  clip.Transcoder
	fileChecker clip.FileChecker
	recorder    clip.OutcomeRecorder
	paths       Paths
	runID       string
	logger      *slog.Logger
	diag        io.Writer
	output      io.Writer
}

// Option is a functional option for configuring BatchService
type Option func(*BatchService)

// WithRecorder also persists every outcome through r
func WithRecorder(r clip.OutcomeRecorder) Option {
	return func(s *BatchService) {
		s.recorder = r
	}
}

// WithRunID tags the summary and recorded outcomes with id
func WithRunID(id string) Option {
	return func(s *BatchService) {
		s.runID = id
	}
}

// NewBatchService creates a new BatchService.
// logger receives warnings and errors, diag receives raw transcoder output,
// output receives console progress. diag and logger should share a sink.
func NewBatchService(
	transcoder clip.Transcoder,
	fileChecker clip.FileChecker,
	paths Paths,
	logger *slog.Logger,
	diag io.Writer,
	output io.Writer,
	opts ...Option,
) *BatchService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if diag == nil {
		diag = io.Discard
	}
	if output == nil {
		output = io.Discard
	}
	s := &BatchService{
		transcoder:  transcoder,
		fileChecker: fileChecker,
		paths:       paths,
		logger:      logger,
		diag:        diag,
		output:      output,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every manifest row in order and returns one outcome per row.
// Row failures never stop the loop. The returned error is non-nil only when
// the manifest itself cannot be read further or ctx is cancelled; the summary
// then holds the outcomes produced so far.
func (s *BatchService) Run(ctx context.Context, manifest clip.ManifestReader) (*clip.Summary, error) {
	summary := &clip.Summary{RunID: s.runID}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		req, err := manifest.Next()
		if err == io.EOF {
			return summary, nil
		}

		var outcome clip.Outcome
		var rowErr *clip.RowError
		switch {
		case errors.As(err, &rowErr):
			s.logger.Warn(clip.ReasonMalformedRow, "line", rowErr.Line, "error", rowErr.Err)
			outcome = clip.Outcome{Line: rowErr.Line, Status: clip.StatusSkipped, Reason: clip.ReasonMalformedRow}
		case err != nil:
			return summary, err
		default:
			outcome = s.Process(ctx, *req)
		}

		summary.Add(outcome)
		s.record(ctx, outcome)
	}
}

// Process validates, transcodes and classifies a single request
func (s *BatchService) Process(ctx context.Context, raw clip.ClipRequest) clip.Outcome {
	req := raw.Normalized()
	sourcePath := req.SourcePath(s.paths.InputAudioDir)
	outputPath := req.OutputPath(s.paths.OutputDir)

	if !s.fileChecker.IsRegularFile(sourcePath) {
		s.logger.Warn(clip.ReasonSourceNotFound,
			"segment_id", req.SegmentID,
			"recording_id", req.RecordingID,
			"path", sourcePath,
			"line", req.Line)
		return clip.Skipped(req, clip.ReasonSourceNotFound)
	}

	if !req.HasTimestamps() {
		s.logger.Warn(clip.ReasonInvalidTimestamps,
			"segment_id", req.SegmentID,
			"start_time", raw.StartTime,
			"end_time", raw.EndTime,
			"line", req.Line)
		return clip.Skipped(req, clip.ReasonInvalidTimestamps)
	}

	fmt.Fprintf(s.output, "Clipping %s: %s to %s\n", req.SegmentID, req.StartTime, req.EndTime)

	job := clip.TranscodeJob{
		SourcePath: sourcePath,
		OutputPath: outputPath,
		Start:      req.StartTime,
		End:        req.EndTime,
	}
	result, err := s.transcoder.Transcode(ctx, job, s.diag)
	if err != nil {
		s.logger.Error(clip.ReasonTranscoderStartErr, "segment_id", req.SegmentID, "error", err)
		s.reportFailure(req.SegmentID)
		outcome := clip.Failed(req, outputPath, clip.ExitStatusNotStarted)
		outcome.Reason = clip.ReasonTranscoderStartErr
		return outcome
	}

	if !result.Success() {
		s.logger.Error("transcode failed", "segment_id", req.SegmentID, "exit_status", result.ExitStatus)
		s.reportFailure(req.SegmentID)
		return clip.Failed(req, outputPath, result.ExitStatus)
	}

	return clip.Completed(req, outputPath)
}

func (s *BatchService) reportFailure(segmentID string) {
	fmt.Fprintf(s.output, "Error processing %s. See %s for details.\n", segmentID, s.paths.LogPath)
}

func (s *BatchService) record(ctx context.Context, o clip.Outcome) {
	if s.recorder == nil {
		return
	}
	// The outcome already happened; a cancelled run still records it.
	if err := s.recorder.Record(context.WithoutCancel(ctx), s.runID, o); err != nil {
		s.logger.Warn("failed to record outcome", "segment_id", o.SegmentID, "error", err)
	}
}
