package clip

import (
	"context"
	"errors"
	"fmt"
	"io"

	"speech-clipper/domain/clip"
)

// Advisory is a non-blocking observation about a manifest row.
// Advisories never change what an extraction run does with the row.
type Advisory struct {
	Line      int
	SegmentID string
	Message   string
}

// ValidationReport is the result of a dry run over a manifest
type ValidationReport struct {
	Summary    clip.Summary // Completed here means "would be transcoded"
	Advisories []Advisory
}

// ValidateService evaluates manifest rows against the extraction gates
// without invoking the transcoder or touching the output directory
type ValidateService struct {
	fileChecker clip.FileChecker
	paths       Paths
}

// NewValidateService creates a new ValidateService
func NewValidateService(fileChecker clip.FileChecker, paths Paths) *ValidateService {
	return &ValidateService{
		fileChecker: fileChecker,
		paths:       paths,
	}
}

// Validate reads the whole manifest and reports the would-be outcome of each row
func (s *ValidateService) Validate(ctx context.Context, manifest clip.ManifestReader) (*ValidationReport, error) {
	report := &ValidationReport{}
	seen := make(map[string]int)

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		raw, err := manifest.Next()
		if err == io.EOF {
			return report, nil
		}
		var rowErr *clip.RowError
		if errors.As(err, &rowErr) {
			report.Summary.Add(clip.Outcome{Line: rowErr.Line, Status: clip.StatusSkipped, Reason: clip.ReasonMalformedRow})
			continue
		}
		if err != nil {
			return report, err
		}

		req := raw.Normalized()

		if first, dup := seen[req.SegmentID]; dup {
			report.Advisories = append(report.Advisories, Advisory{
				Line:      req.Line,
				SegmentID: req.SegmentID,
				Message:   fmt.Sprintf("duplicate segment_id (first seen on line %d); the later clip overwrites the earlier", first),
			})
		} else {
			seen[req.SegmentID] = req.Line
		}

		switch {
		case !s.fileChecker.IsRegularFile(req.SourcePath(s.paths.InputAudioDir)):
			report.Summary.Add(clip.Skipped(req, clip.ReasonSourceNotFound))
		case !req.HasTimestamps():
			report.Summary.Add(clip.Skipped(req, clip.ReasonInvalidTimestamps))
		default:
			report.Summary.Add(clip.Completed(req, req.OutputPath(s.paths.OutputDir)))
			if adv, ok := checkRange(req); !ok {
				report.Advisories = append(report.Advisories, adv)
			}
		}
	}
}

// checkRange flags rows ffmpeg is likely to reject or produce empty clips for
func checkRange(req clip.ClipRequest) (Advisory, bool) {
	start, err := clip.ParseTimestamp(req.StartTime)
	if err != nil {
		return Advisory{Line: req.Line, SegmentID: req.SegmentID, Message: err.Error()}, false
	}
	end, err := clip.ParseTimestamp(req.EndTime)
	if err != nil {
		return Advisory{Line: req.Line, SegmentID: req.SegmentID, Message: err.Error()}, false
	}
	if !start.Before(end) {
		return Advisory{
			Line:      req.Line,
			SegmentID: req.SegmentID,
			Message:   fmt.Sprintf("end time %s is not after start time %s", end, start),
		}, false
	}
	return Advisory{}, true
}
