package bulk

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mailvet/mailvet"
)

// CSVSource reads records from a CSV whose header names an Email column
// and, optionally, a website column ("Web Address" or "Website", any
// case). Extra columns are carried through untouched.
type CSVSource struct {
	r        *csv.Reader
	header   []string
	emailIdx int
	webIdx   int // -1 when absent
	closer   io.Closer
}

// NewCSVSource wraps an open reader. The first row must be a header
// containing an Email column.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("bulk: reading CSV header: %w", err)
	}

	emailIdx, webIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "email":
			emailIdx = i
		case "web address", "website":
			webIdx = i
		}
	}
	if emailIdx < 0 {
		return nil, fmt.Errorf("bulk: CSV header has no Email column: %v", header)
	}

	return &CSVSource{r: cr, header: header, emailIdx: emailIdx, webIdx: webIdx}, nil
}

// OpenCSV opens a file as a CSVSource. Call Close when done.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bulk: opening %s: %w", path, err)
	}
	src, err := NewCSVSource(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	src.closer = f
	return src, nil
}

// Header returns the input header row.
func (s *CSVSource) Header() []string { return s.header }

// Next returns the next record, io.EOF at end of input. Rows shorter
// than the header are skipped rather than failing the batch.
func (s *CSVSource) Next() (Record, error) {
	for {
		row, err := s.r.Read()
		if err != nil {
			return Record{}, err
		}
		if s.emailIdx >= len(row) {
			continue
		}
		rec := Record{
			ID:      uuid.NewString(),
			Email:   strings.TrimSpace(row[s.emailIdx]),
			Columns: row,
		}
		if s.webIdx >= 0 && s.webIdx < len(row) {
			rec.Website = strings.TrimSpace(row[s.webIdx])
		}
		return rec, nil
	}
}

// Close closes the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// CSVSink writes records back out as CSV. With withReason set, each row
// gains a trailing Reason column; pass files echo the input columns
// unchanged so the output stays load-compatible with the input.
type CSVSink struct {
	w          *csv.Writer
	withReason bool
	closer     io.Closer
}

// NewCSVSink writes rows to w; header is written immediately. Set
// withReason to append a Reason column.
func NewCSVSink(w io.Writer, header []string, withReason bool) (*CSVSink, error) {
	cw := csv.NewWriter(w)
	out := header
	if withReason {
		out = append(append([]string(nil), header...), "Reason")
	}
	if err := cw.Write(out); err != nil {
		return nil, fmt.Errorf("bulk: writing CSV header: %w", err)
	}
	return &CSVSink{w: cw, withReason: withReason}, nil
}

// CreatePassCSV creates a pass-file sink at path. Accepted rows are
// written with the input columns only.
func CreatePassCSV(path string, header []string) (*CSVSink, error) {
	return createCSV(path, header, false)
}

// CreateFailCSV creates a fail-file sink at path. Rejected rows carry a
// trailing Reason column.
func CreateFailCSV(path string, header []string) (*CSVSink, error) {
	return createCSV(path, header, true)
}

func createCSV(path string, header []string, withReason bool) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("bulk: creating %s: %w", path, err)
	}
	sink, err := NewCSVSink(f, header, withReason)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sink.closer = f
	return sink, nil
}

// Write appends one record.
func (s *CSVSink) Write(rec Record, out mailvet.Outcome) error {
	row := rec.Columns
	if len(row) == 0 {
		row = []string{rec.Email, rec.Website}
	}
	if s.withReason {
		row = append(append([]string(nil), row...), string(out.Reason))
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("bulk: writing CSV row: %w", err)
	}
	return nil
}

// Close flushes buffered rows and closes the underlying file, if any.
func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
