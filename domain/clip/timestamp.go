package clip

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Timestamp is a parsed clip boundary.
// Extraction never parses timestamps; ffmpeg receives the raw strings.
// Parsing is only used for advisory manifest checks.
type Timestamp struct {
	Raw    string
	Offset time.Duration
}

// clockRegex matches [HH:]MM:SS[.fff]
var clockRegex = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{1,2})(?:\.(\d+))?$`)

// secondsRegex matches plain seconds with optional fraction
var secondsRegex = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

// ParseTimestamp parses HH:MM:SS[.fff], MM:SS[.fff] or plain seconds
func ParseTimestamp(s string) (Timestamp, error) {
	if secondsRegex.MatchString(s) {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		return Timestamp{Raw: s, Offset: time.Duration(secs * float64(time.Second))}, nil
	}

	matches := clockRegex.FindStringSubmatch(s)
	if matches == nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp format %q: expected HH:MM:SS[.fff] or seconds", s)
	}

	hours := 0
	if matches[1] != "" {
		hours, _ = strconv.Atoi(matches[1])
	}
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.Atoi(matches[3])

	if minutes > 59 {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: minutes must be 0-59", s)
	}
	if seconds > 59 {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: seconds must be 0-59", s)
	}

	var frac time.Duration
	if matches[4] != "" {
		f, _ := strconv.ParseFloat("0."+matches[4], 64)
		frac = time.Duration(f * float64(time.Second))
	}

	offset := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		frac

	return Timestamp{Raw: s, Offset: offset}, nil
}

// String returns the timestamp as written in the manifest
func (t Timestamp) String() string {
	return t.Raw
}

// Before returns true if t is before other
func (t Timestamp) Before(other Timestamp) bool {
	return t.Offset < other.Offset
}
