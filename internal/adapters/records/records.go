// Package records parses delimited text exports into field-keyed row
// mappings and serializes them back. Purely structural; it never validates
// field content.
package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row maps header fields to the values of one data row.
type Row map[string]string

// Table is an ordered set of parsed rows plus the header that keyed them.
type Table struct {
	Headers []string
	Rows    []Row
}

// Option applies a configuration option to a parse or serialize call.
type Option func(*settings)

type settings struct {
	delimiter rune
}

// WithDelimiter overrides the field delimiter (default comma).
func WithDelimiter(d rune) Option {
	return func(s *settings) {
		if d != 0 {
			s.delimiter = d
		}
	}
}

// Parse reads delimited text where the first row defines the field keys.
// Quoted fields may contain the delimiter; a doubled quote inside a quoted
// field is a literal quote. Each data row is zipped positionally against
// the header; missing trailing fields map to the empty string and surplus
// fields are dropped. Empty input (after trimming) yields an empty table.
func Parse(text string, opts ...Option) (Table, error) {
	s := settings{delimiter: ','}
	for _, opt := range opts {
		opt(&s)
	}

	if strings.TrimSpace(text) == "" {
		return Table{}, nil
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = s.delimiter
	r.FieldsPerRecord = -1 // rows may be ragged

	header, err := r.Read()
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	t := Table{Headers: header}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}

		row := make(Row, len(header))
		for i, key := range header {
			if i < len(record) {
				row[key] = record[i]
			} else {
				row[key] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// Serialize renders headers plus rows back to delimited text, quoting
// values on demand so that Parse recovers them exactly.
func Serialize(headers []string, rows []Row, opts ...Option) (string, error) {
	s := settings{delimiter: ','}
	for _, opt := range opts {
		opt(&s)
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = s.delimiter

	if err := w.Write(headers); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerializeFailed, err)
	}
	for _, row := range rows {
		record := make([]string, len(headers))
		for i, key := range headers {
			record[i] = row[key]
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSerializeFailed, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerializeFailed, err)
	}

	return b.String(), nil
}
