// Package manifest reads clip manifests: delimited text with a header row,
// addressed by column name rather than position.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"speech-clipper/domain/clip"
)

// DefaultDelimiter separates manifest fields when none is configured
const DefaultDelimiter = ','

// ErrMissingColumn is returned when the header lacks a required column
var ErrMissingColumn = errors.New("manifest is missing a required column")

// Reader implements clip.ManifestReader over encoding/csv
type Reader struct {
	csv     *csv.Reader
	closer  io.Closer
	header  []string
	columns map[string]int
}

// Open opens the manifest at path and reads its header
func Open(path string, delimiter rune) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	r, err := NewReader(f, delimiter)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header from src and validates the required columns
func NewReader(src io.Reader, delimiter rune) (*Reader, error) {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}

	cr := csv.NewReader(src)
	cr.Comma = delimiter
	// Quotes inside free-text columns such as notes are data, not syntax.
	cr.LazyQuotes = true
	// FieldsPerRecord stays 0: the header's width becomes the expected width.

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("manifest is empty: header row required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	for _, col := range clip.RequiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	return &Reader{csv: cr, header: header, columns: columns}, nil
}

// Header returns the normalized column names in file order
func (r *Reader) Header() []string {
	return r.header
}

// Next implements clip.ManifestReader
func (r *Reader) Next() (*clip.ClipRequest, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, &clip.RowError{Line: parseErr.StartLine, Err: parseErr.Err}
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	line, _ := r.csv.FieldPos(0)
	return r.toRequest(line, record), nil
}

func (r *Reader) toRequest(line int, record []string) *clip.ClipRequest {
	req := &clip.ClipRequest{
		Line:        line,
		RecordingID: record[r.columns[clip.ColumnRecordingID]],
		SegmentID:   record[r.columns[clip.ColumnSegmentID]],
		StartTime:   record[r.columns[clip.ColumnStartTime]],
		EndTime:     record[r.columns[clip.ColumnEndTime]],
		Extra:       make(map[string]string),
	}

	for i, name := range r.header {
		switch name {
		case clip.ColumnRecordingID, clip.ColumnSegmentID, clip.ColumnStartTime, clip.ColumnEndTime:
			continue
		}
		req.Extra[name] = record[i]
	}

	return req
}

// Close closes the underlying file, if Open created one
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ParseDelimiter converts a configured delimiter string to a rune.
// "\t" and "tab" select a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return DefaultDelimiter, nil
	case `\t`, "tab":
		return '\t', nil
	}
	d, size := utf8.DecodeRuneInString(s)
	if size != len(s) || d == utf8.RuneError || d == '"' || d == '\r' || d == '\n' {
		return 0, fmt.Errorf("invalid manifest delimiter %q", s)
	}
	return d, nil
}

// Ensure Reader implements clip.ManifestReader
var _ clip.ManifestReader = (*Reader)(nil)
