package clip

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"speech-clipper/domain/clip"
)

// --- Mock implementations for testing ---

// mockTranscoder implements clip.Transcoder for testing
type mockTranscoder struct {
	jobs        []clip.TranscodeJob
	exitStatus  map[string]int // keyed by output path
	startErr    error
	diagnostics string
	onTranscode func()
}

func (m *mockTranscoder) Transcode(ctx context.Context, job clip.TranscodeJob, diag io.Writer) (clip.TranscodeResult, error) {
	m.jobs = append(m.jobs, job)
	if m.onTranscode != nil {
		m.onTranscode()
	}
	if m.diagnostics != "" {
		io.WriteString(diag, m.diagnostics)
	}
	if m.startErr != nil {
		return clip.TranscodeResult{ExitStatus: clip.ExitStatusNotStarted}, m.startErr
	}
	return clip.TranscodeResult{ExitStatus: m.exitStatus[job.OutputPath]}, nil
}

// mockFileChecker implements clip.FileChecker for testing
type mockFileChecker struct {
	existingFiles map[string]bool
}

func (m *mockFileChecker) IsRegularFile(path string) bool {
	return m.existingFiles[path]
}

// sliceManifest implements clip.ManifestReader for testing
type sliceManifest struct {
	rows []any // *clip.ClipRequest or error
	pos  int
}

func (m *sliceManifest) Next() (*clip.ClipRequest, error) {
	if m.pos >= len(m.rows) {
		return nil, io.EOF
	}
	row := m.rows[m.pos]
	m.pos++
	if err, ok := row.(error); ok {
		return nil, err
	}
	return row.(*clip.ClipRequest), nil
}

// mockRecorder implements clip.OutcomeRecorder for testing
type mockRecorder struct {
	runIDs   []string
	outcomes []clip.Outcome
	ctxErrs  []error
	err      error
}

func (m *mockRecorder) Record(ctx context.Context, runID string, o clip.Outcome) error {
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	m.runIDs = append(m.runIDs, runID)
	m.outcomes = append(m.outcomes, o)
	return m.err
}

type fixture struct {
	transcoder *mockTranscoder
	checker    *mockFileChecker
	log        *bytes.Buffer
	console    *bytes.Buffer
	service    *BatchService
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		transcoder: &mockTranscoder{exitStatus: map[string]int{}},
		checker: &mockFileChecker{existingFiles: map[string]bool{
			"data/raw_audio/REC1.wav": true,
			"data/raw_audio/REC2.wav": true,
		}},
		log:     &bytes.Buffer{},
		console: &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.log, nil))
	f.service = NewBatchService(
		f.transcoder,
		f.checker,
		Paths{InputAudioDir: "data/raw_audio", OutputDir: "clips", LogPath: "logs/clip_extraction.log"},
		logger,
		f.log,
		f.console,
		opts...,
	)
	return f
}

func row(line int, rec, seg, start, end string) *clip.ClipRequest {
	return &clip.ClipRequest{Line: line, RecordingID: rec, SegmentID: seg, StartTime: start, EndTime: end}
}

func TestBatchService_ValidRowIsTranscoded(t *testing.T) {
	f := newFixture()
	manifest := &sliceManifest{rows: []any{row(2, "REC1", "SEG1", "00:00:01.0", "00:00:02.5")}}

	summary, err := f.service.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(f.transcoder.jobs) != 1 {
		t.Fatalf("expected 1 transcoder call, got %d", len(f.transcoder.jobs))
	}
	want := clip.TranscodeJob{
		SourcePath: "data/raw_audio/REC1.wav",
		OutputPath: "clips/SEG1.wav",
		Start:      "00:00:01.0",
		End:        "00:00:02.5",
	}
	if f.transcoder.jobs[0] != want {
		t.Errorf("job = %+v, want %+v", f.transcoder.jobs[0], want)
	}
	if summary.Completed != 1 || summary.Outcomes[0].Status != clip.StatusCompleted {
		t.Errorf("expected completed outcome, got %+v", summary.Outcomes)
	}
	if !strings.Contains(f.console.String(), "Clipping SEG1: 00:00:01.0 to 00:00:02.5") {
		t.Errorf("missing console announcement: %q", f.console.String())
	}
	if f.log.Len() != 0 {
		t.Errorf("successful rows must not write to the log: %q", f.log.String())
	}
}

func TestBatchService_SentinelTimestampIsSkipped(t *testing.T) {
	f := newFixture()
	manifest := &sliceManifest{rows: []any{row(2, "REC2", "SEG2", "None", "00:00:03.0")}}

	summary, _ := f.service.Run(context.Background(), manifest)

	if len(f.transcoder.jobs) != 0 {
		t.Errorf("transcoder must not be called, got %d calls", len(f.transcoder.jobs))
	}
	if summary.Outcomes[0].Status != clip.StatusSkipped || summary.Outcomes[0].Reason != clip.ReasonInvalidTimestamps {
		t.Errorf("outcome = %+v", summary.Outcomes[0])
	}
	logText := f.log.String()
	if !strings.Contains(logText, "SEG2") || !strings.Contains(logText, "invalid timestamps") {
		t.Errorf("log should mention SEG2 and invalid timestamps: %q", logText)
	}
	if strings.Contains(f.console.String(), "SEG2") {
		t.Errorf("validation skips are log-only: %q", f.console.String())
	}
}

func TestBatchService_MissingSourceIsSkipped(t *testing.T) {
	f := newFixture()
	manifest := &sliceManifest{rows: []any{row(2, "REC3", "SEG3", "00:00:01.0", "00:00:02.0")}}

	summary, _ := f.service.Run(context.Background(), manifest)

	if len(f.transcoder.jobs) != 0 {
		t.Errorf("transcoder must not be called")
	}
	if summary.Outcomes[0].Reason != clip.ReasonSourceNotFound {
		t.Errorf("Reason = %q, want %q", summary.Outcomes[0].Reason, clip.ReasonSourceNotFound)
	}
	logText := f.log.String()
	if !strings.Contains(logText, "SEG3") || !strings.Contains(logText, "not found") {
		t.Errorf("log should mention SEG3 and not found: %q", logText)
	}
	if !strings.Contains(logText, "data/raw_audio/REC3.wav") {
		t.Errorf("log should include the resolved source path: %q", logText)
	}
}

func TestBatchService_SourceCheckedBeforeTimestamps(t *testing.T) {
	f := newFixture()
	manifest := &sliceManifest{rows: []any{row(2, "REC9", "SEG9", "None", "None")}}

	summary, _ := f.service.Run(context.Background(), manifest)

	if summary.Outcomes[0].Reason != clip.ReasonSourceNotFound {
		t.Errorf("Reason = %q, want source check to win", summary.Outcomes[0].Reason)
	}
}

func TestBatchService_TimestampGate(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantSkip   bool
	}{
		{"empty start", "", "00:00:03.0", true},
		{"empty end", "00:00:01.0", "", true},
		{"whitespace start", "   ", "00:00:03.0", true},
		{"None end", "00:00:01.0", "None", true},
		{"padded None", "  None\t", "00:00:03.0", true},
		{"lowercase none passes the gate", "none", "00:00:03.0", false},
		{"end before start is not checked", "00:00:05.0", "00:00:01.0", false},
		{"seconds format", "1.0", "2.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			manifest := &sliceManifest{rows: []any{row(2, "REC1", "SEG1", tt.start, tt.end)}}

			summary, _ := f.service.Run(context.Background(), manifest)

			skipped := summary.Outcomes[0].Status == clip.StatusSkipped
			if skipped != tt.wantSkip {
				t.Errorf("skipped = %v, want %v", skipped, tt.wantSkip)
			}
			if tt.wantSkip && len(f.transcoder.jobs) != 0 {
				t.Error("transcoder called for a skipped row")
			}
		})
	}
}

func TestBatchService_SkipLogsRawTimestampValues(t *testing.T) {
	f := newFixture()
	manifest := &sliceManifest{rows: []any{row(2, "REC1", "SEG1", " None ", "00:00:03.0")}}

	f.service.Run(context.Background(), manifest)

	if !strings.Contains(f.log.String(), `start_time=" None "`) {
		t.Errorf("log should carry the untrimmed value: %q", f.log.String())
	}
}

func TestBatchService_FieldsAreTrimmedBeforeUse(t *testing.T) {
	f := newFixture()
	manifest := &sliceManifest{rows: []any{row(2, " REC1 ", "\tSEG1 ", " 00:00:01.0", "00:00:02.5 ")}}

	f.service.Run(context.Background(), manifest)

	if len(f.transcoder.jobs) != 1 {
		t.Fatalf("expected 1 transcoder call, got %d", len(f.transcoder.jobs))
	}
	job := f.transcoder.jobs[0]
	if job.SourcePath != "data/raw_audio/REC1.wav" || job.OutputPath != "clips/SEG1.wav" {
		t.Errorf("paths not trimmed: %+v", job)
	}
	if job.Start != "00:00:01.0" || job.End != "00:00:02.5" {
		t.Errorf("timestamps not trimmed: %+v", job)
	}
}

func TestBatchService_ToolFailureDoesNotStopBatch(t *testing.T) {
	f := newFixture()
	f.transcoder.exitStatus["clips/SEG1.wav"] = 1
	f.transcoder.diagnostics = "Invalid duration specification for ss\n"
	manifest := &sliceManifest{rows: []any{
		row(2, "REC1", "SEG1", "bogus", "00:00:02.5"),
		row(3, "REC2", "SEG2", "00:00:01.0", "00:00:02.0"),
	}}

	summary, err := f.service.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(f.transcoder.jobs) != 2 {
		t.Fatalf("expected 2 transcoder calls, got %d", len(f.transcoder.jobs))
	}
	if summary.Failed != 1 || summary.Completed != 1 {
		t.Errorf("failed/completed = %d/%d, want 1/1", summary.Failed, summary.Completed)
	}
	if summary.Outcomes[0].ExitStatus != 1 {
		t.Errorf("ExitStatus = %d, want 1", summary.Outcomes[0].ExitStatus)
	}
	console := f.console.String()
	if !strings.Contains(console, "Error processing SEG1") || !strings.Contains(console, "logs/clip_extraction.log") {
		t.Errorf("console should report the failure with the log path: %q", console)
	}
	if !strings.Contains(f.log.String(), "Invalid duration specification") {
		t.Errorf("tool output should be appended to the log: %q", f.log.String())
	}
}

func TestBatchService_TranscoderStartError(t *testing.T) {
	f := newFixture()
	f.transcoder.startErr = errors.New("fork/exec ffmpeg: permission denied")
	manifest := &sliceManifest{rows: []any{
		row(2, "REC1", "SEG1", "1", "2"),
		row(3, "REC2", "SEG2", "1", "2"),
	}}

	summary, err := f.service.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
	if summary.Outcomes[0].ExitStatus != clip.ExitStatusNotStarted {
		t.Errorf("ExitStatus = %d, want %d", summary.Outcomes[0].ExitStatus, clip.ExitStatusNotStarted)
	}
	if !strings.Contains(f.log.String(), "permission denied") {
		t.Errorf("start error should be logged: %q", f.log.String())
	}
}

func TestBatchService_OneOutcomePerRowInOrder(t *testing.T) {
	f := newFixture()
	f.transcoder.exitStatus["clips/SEG4.wav"] = 183
	manifest := &sliceManifest{rows: []any{
		row(2, "REC1", "SEG1", "1", "2"),
		row(3, "REC2", "SEG2", "None", "3"),
		row(4, "REC3", "SEG3", "1", "2"),
		&clip.RowError{Line: 5, Err: errors.New("wrong number of fields")},
		row(6, "REC1", "SEG4", "1", "2"),
	}}

	summary, err := f.service.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantLines := []int{2, 3, 4, 5, 6}
	wantStatus := []clip.Status{clip.StatusCompleted, clip.StatusSkipped, clip.StatusSkipped, clip.StatusSkipped, clip.StatusFailed}
	if summary.Total() != len(wantLines) {
		t.Fatalf("Total() = %d, want %d", summary.Total(), len(wantLines))
	}
	for i := range wantLines {
		o := summary.Outcomes[i]
		if o.Line != wantLines[i] || o.Status != wantStatus[i] {
			t.Errorf("Outcomes[%d] = line %d %s, want line %d %s", i, o.Line, o.Status, wantLines[i], wantStatus[i])
		}
	}
	if summary.Outcomes[3].Reason != clip.ReasonMalformedRow {
		t.Errorf("Reason = %q, want malformed row", summary.Outcomes[3].Reason)
	}
}

func TestBatchService_DuplicateSegmentIDsAreNotDeduplicated(t *testing.T) {
	f := newFixture()
	manifest := &sliceManifest{rows: []any{
		row(2, "REC1", "SEG1", "1", "2"),
		row(3, "REC2", "SEG1", "3", "4"),
	}}

	f.service.Run(context.Background(), manifest)

	if len(f.transcoder.jobs) != 2 {
		t.Fatalf("expected both rows transcoded, got %d", len(f.transcoder.jobs))
	}
	if f.transcoder.jobs[1].OutputPath != "clips/SEG1.wav" {
		t.Errorf("second row should target the same clip path")
	}
}

func TestBatchService_ManifestReadError(t *testing.T) {
	f := newFixture()
	readErr := errors.New("disk read failure")
	manifest := &sliceManifest{rows: []any{row(2, "REC1", "SEG1", "1", "2"), readErr}}

	summary, err := f.service.Run(context.Background(), manifest)
	if !errors.Is(err, readErr) {
		t.Fatalf("Run() error = %v, want %v", err, readErr)
	}
	if summary.Total() != 1 {
		t.Errorf("partial summary should keep earlier outcomes, got %d", summary.Total())
	}
}

func TestBatchService_Cancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.service.Run(ctx, &sliceManifest{rows: []any{row(2, "REC1", "SEG1", "1", "2")}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if summary.Total() != 0 || len(f.transcoder.jobs) != 0 {
		t.Error("no rows should be processed after cancellation")
	}
}

func TestBatchService_RecordsOutcomes(t *testing.T) {
	recorder := &mockRecorder{err: errors.New("database is locked")}
	f := newFixture(WithRecorder(recorder), WithRunID("run-1"))
	manifest := &sliceManifest{rows: []any{
		row(2, "REC1", "SEG1", "1", "2"),
		row(3, "REC3", "SEG3", "1", "2"),
	}}

	summary, err := f.service.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("recorder errors must not fail the run: %v", err)
	}
	if summary.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", summary.RunID)
	}
	if len(recorder.outcomes) != 2 {
		t.Fatalf("recorded %d outcomes, want 2", len(recorder.outcomes))
	}
	if recorder.runIDs[0] != "run-1" {
		t.Errorf("runID = %q, want run-1", recorder.runIDs[0])
	}
	if !strings.Contains(f.log.String(), "failed to record outcome") {
		t.Errorf("recorder error should be logged: %q", f.log.String())
	}
}

func TestBatchService_RecordsOutcomeOfCancelledRow(t *testing.T) {
	recorder := &mockRecorder{}
	f := newFixture(WithRecorder(recorder))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.transcoder.onTranscode = cancel
	manifest := &sliceManifest{rows: []any{
		row(2, "REC1", "SEG1", "1", "2"),
		row(3, "REC2", "SEG2", "1", "2"),
	}}

	summary, err := f.service.Run(ctx, manifest)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if summary.Total() != 1 {
		t.Fatalf("processed %d rows, want 1", summary.Total())
	}
	if len(recorder.outcomes) != 1 || recorder.outcomes[0].SegmentID != "SEG1" {
		t.Fatalf("recorded = %+v, want the SEG1 outcome", recorder.outcomes)
	}
	if recorder.ctxErrs[0] != nil {
		t.Errorf("outcome was recorded on a cancelled context: %v", recorder.ctxErrs[0])
	}
}
