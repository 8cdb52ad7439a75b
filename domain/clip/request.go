package clip

import (
	"path/filepath"
	"strings"
)

// Manifest column names consumed by the extractor
const (
	ColumnRecordingID = "recording_id"
	ColumnSegmentID   = "segment_id"
	ColumnStartTime   = "start_time"
	ColumnEndTime     = "end_time"
)

// RequiredColumns lists the manifest columns that must be present in the header
var RequiredColumns = []string{ColumnRecordingID, ColumnSegmentID, ColumnStartTime, ColumnEndTime}

// MissingTimestamp is the literal placeholder producers write for an absent timestamp
const MissingTimestamp = "None"

// AudioExtension is the fixed extension for both source recordings and output clips
const AudioExtension = ".wav"

// ClipRequest represents one manifest row
type ClipRequest struct {
	Line        int // 1-based line number in the manifest, header included
	RecordingID string
	SegmentID   string
	StartTime   string
	EndTime     string

	// Passthrough columns (disfluency_type, detected_token, duration, clip_path,
	// confidence, notes, audio_url, ...) keyed by header name. Not used for extraction.
	Extra map[string]string
}

// Normalized returns a copy with the consumed fields trimmed of surrounding whitespace
func (r ClipRequest) Normalized() ClipRequest {
	r.RecordingID = strings.TrimSpace(r.RecordingID)
	r.SegmentID = strings.TrimSpace(r.SegmentID)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.EndTime = strings.TrimSpace(r.EndTime)
	return r
}

// SourcePath returns {inputDir}/{recording_id}.wav
func (r ClipRequest) SourcePath(inputDir string) string {
	return filepath.Join(inputDir, r.RecordingID+AudioExtension)
}

// OutputPath returns {outputDir}/{segment_id}.wav
func (r ClipRequest) OutputPath(outputDir string) string {
	return filepath.Join(outputDir, r.SegmentID+AudioExtension)
}

// HasTimestamps reports whether both start and end are present.
// Call on a normalized request; "None" is compared case-sensitively.
func (r ClipRequest) HasTimestamps() bool {
	return isPresent(r.StartTime) && isPresent(r.EndTime)
}

func isPresent(ts string) bool {
	return ts != "" && ts != MissingTimestamp
}
