package clip

import (
	"context"
	"fmt"
	"io"
)

// SampleRate and Channels are the fixed output profile for every clip
const (
	SampleRate = 16000
	Channels   = 1
)

// TranscodeJob describes one trim-and-resample invocation.
// End is an absolute position in the source, not a duration from Start.
type TranscodeJob struct {
	SourcePath string
	OutputPath string
	Start      string
	End        string
}

// TranscodeResult is the explicit result of a transcoder invocation
type TranscodeResult struct {
	ExitStatus int
}

// Success reports whether the tool exited with status zero
func (r TranscodeResult) Success() bool {
	return r.ExitStatus == 0
}

// Transcoder defines the interface for the external trim/resample tool
// This is a port that can be implemented by different infrastructure adapters
type Transcoder interface {
	// Transcode runs the tool, appending everything it prints to diag.
	// A non-zero exit is reported through the result, not the error; the error
	// is reserved for a process that could not be run at all.
	Transcode(ctx context.Context, job TranscodeJob, diag io.Writer) (TranscodeResult, error)
}

// FileChecker defines the interface for checking source file existence
type FileChecker interface {
	// IsRegularFile returns true if path exists and is a regular file
	IsRegularFile(path string) bool
}

// ManifestReader yields clip requests in manifest order
type ManifestReader interface {
	// Next returns the next request, io.EOF when exhausted, or a *RowError
	// for a row that could not be parsed. Reading may continue after a RowError.
	Next() (*ClipRequest, error)
}

// RowError reports a manifest row that could not be parsed into a ClipRequest
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("manifest line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// OutcomeRecorder persists outcomes outside the run log (optional)
type OutcomeRecorder interface {
	Record(ctx context.Context, runID string, o Outcome) error
}
