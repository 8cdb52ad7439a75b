package clip

import "testing"

func TestClipRequest_Normalized(t *testing.T) {
	req := ClipRequest{
		Line:        3,
		RecordingID: "  REC1 ",
		SegmentID:   "\tSEG1",
		StartTime:   " 00:00:01.0",
		EndTime:     "00:00:02.5  ",
		Extra:       map[string]string{"notes": "  keep me  "},
	}

	got := req.Normalized()

	if got.RecordingID != "REC1" {
		t.Errorf("RecordingID = %q, want %q", got.RecordingID, "REC1")
	}
	if got.SegmentID != "SEG1" {
		t.Errorf("SegmentID = %q, want %q", got.SegmentID, "SEG1")
	}
	if got.StartTime != "00:00:01.0" {
		t.Errorf("StartTime = %q, want %q", got.StartTime, "00:00:01.0")
	}
	if got.EndTime != "00:00:02.5" {
		t.Errorf("EndTime = %q, want %q", got.EndTime, "00:00:02.5")
	}
	if got.Extra["notes"] != "  keep me  " {
		t.Errorf("passthrough field was modified: %q", got.Extra["notes"])
	}
	if req.RecordingID != "  REC1 " {
		t.Error("Normalized() must not modify the receiver")
	}
}

func TestClipRequest_Paths(t *testing.T) {
	req := ClipRequest{RecordingID: "REC1", SegmentID: "SEG1"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"source", req.SourcePath("data/raw_audio"), "data/raw_audio/REC1.wav"},
		{"output", req.OutputPath("clips"), "clips/SEG1.wav"},
		{"absolute source", req.SourcePath("/srv/audio"), "/srv/audio/REC1.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestClipRequest_HasTimestamps(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"both present", "00:00:01.0", "00:00:02.5", true},
		{"seconds format", "1.0", "2.5", true},
		{"start None", "None", "00:00:03.0", false},
		{"end None", "00:00:01.0", "None", false},
		{"start empty", "", "00:00:03.0", false},
		{"end empty", "00:00:01.0", "", false},
		{"whitespace only start", "   ", "00:00:03.0", false},
		{"padded None", " None ", "00:00:03.0", false},
		{"lowercase none is not the sentinel", "none", "00:00:03.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ClipRequest{StartTime: tt.start, EndTime: tt.end}.Normalized()
			if got := req.HasTimestamps(); got != tt.want {
				t.Errorf("HasTimestamps() = %v, want %v", got, tt.want)
			}
		})
	}
}
