package clip

import "fmt"

// Status classifies how a single clip request ended
type Status int

const (
	StatusCompleted Status = iota
	StatusSkipped
	StatusFailed
)

// String returns the lowercase status name
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Skip reasons
const (
	ReasonSourceNotFound     = "source audio not found"
	ReasonInvalidTimestamps  = "missing or invalid timestamps"
	ReasonMalformedRow       = "malformed manifest row"
	ReasonTranscoderStartErr = "transcoder could not be started"
)

// ExitStatusNotStarted is recorded when the transcoder process never ran
const ExitStatusNotStarted = -1

// Outcome is the result of processing one ClipRequest
type Outcome struct {
	Line       int
	SegmentID  string
	Status     Status
	Reason     string // set for skipped rows and start failures
	ExitStatus int    // set for failed rows
	OutputPath string // set when the transcoder was invoked
}

// Completed builds a success outcome
func Completed(req ClipRequest, outputPath string) Outcome {
	return Outcome{Line: req.Line, SegmentID: req.SegmentID, Status: StatusCompleted, OutputPath: outputPath}
}

// Skipped builds a validation-skip outcome
func Skipped(req ClipRequest, reason string) Outcome {
	return Outcome{Line: req.Line, SegmentID: req.SegmentID, Status: StatusSkipped, Reason: reason}
}

// Failed builds a tool-failure outcome
func Failed(req ClipRequest, outputPath string, exitStatus int) Outcome {
	return Outcome{Line: req.Line, SegmentID: req.SegmentID, Status: StatusFailed, ExitStatus: exitStatus, OutputPath: outputPath}
}

// String returns a short human-readable description
func (o Outcome) String() string {
	switch o.Status {
	case StatusSkipped:
		return fmt.Sprintf("%s: skipped (%s)", o.SegmentID, o.Reason)
	case StatusFailed:
		return fmt.Sprintf("%s: failed (exit status %d)", o.SegmentID, o.ExitStatus)
	default:
		return fmt.Sprintf("%s: %s", o.SegmentID, o.Status)
	}
}
