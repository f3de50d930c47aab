package dump

// tokenizer.go turns decoded dump text into positional rows.
//
// The dump is not quoted CSV: a physical line is one record and a tab always
// separates columns. Multi-value columns carry their own inner encoding:
//
//   - U+001D (group separator) marks group boundaries and is discarded
//   - U+000B (vertical tab) separates the individual values
//
// Empty values produced by the split are dropped.

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// GroupSeparator is stripped from packed columns before splitting.
	GroupSeparator = "\u001d"
	// ValueSeparator separates the values of a packed column.
	ValueSeparator = "\u000b"
	// ColumnSeparator separates the columns of a row.
	ColumnSeparator = "\t"
)

// ErrColumnCount reports a row whose width differs from its schema.
var ErrColumnCount = errors.New("column count mismatch")

// FormatError reports a dump that cannot be parsed.
// Line is 0 for file-level failures (encoding), which are fatal to a load;
// row-level failures carry the 1-based physical line.
type FormatError struct {
	Line int
	Msg  string
	Err  error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Record is one physical line split into columns.
type Record struct {
	Line    int // 1-based line number in the decoded text
	Columns []string
}

// Split breaks decoded text into records. Lines are separated by "\n"; a
// trailing "\r" is removed and empty lines are skipped. A line of tabs or
// spaces is still a record, so a row with every field empty is counted and
// rejected like any other malformed row.
func Split(text string) []Record {
	lines := strings.Split(text, "\n")
	records := make([]Record, 0, len(lines))

	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		records = append(records, Record{
			Line:    i + 1,
			Columns: strings.Split(line, ColumnSeparator),
		})
	}

	return records
}

// SplitPacked tokenizes a packed multi-value column.
// A column without real entries yields an empty (nil) slice.
func SplitPacked(raw string) []string {
	raw = strings.ReplaceAll(raw, GroupSeparator, "")
	if raw == "" {
		return nil
	}

	var values []string
	for _, v := range strings.Split(raw, ValueSeparator) {
		if v == "" {
			continue
		}
		values = append(values, v)
	}
	return values
}

// Pack encodes values as a packed column. SplitPacked(Pack(v)) returns v
// without its empty entries, provided no value contains a separator.
func Pack(values []string) string {
	return GroupSeparator + strings.Join(values, ValueSeparator) + GroupSeparator
}

// Row is a record validated against a schema. Packed columns are tokenized
// once at construction.
type Row struct {
	Line   int
	Schema *Schema

	cols   []string
	packed map[string][]string
}

// Row validates a record's width and tokenizes its packed columns.
// A width mismatch is a row-level *FormatError.
func (s *Schema) Row(rec Record) (Row, error) {
	if len(rec.Columns) != s.Width() {
		return Row{}, &FormatError{
			Line: rec.Line,
			Msg:  fmt.Sprintf("%s: expected %d columns, got %d", s.Name, s.Width(), len(rec.Columns)),
			Err:  ErrColumnCount,
		}
	}

	row := Row{
		Line:   rec.Line,
		Schema: s,
		cols:   rec.Columns,
		packed: make(map[string][]string),
	}
	for i, f := range s.Fields {
		if f.Kind == KindPacked {
			row.packed[f.Name] = SplitPacked(rec.Columns[i])
		}
	}
	return row, nil
}

// Scalar returns the raw value of the named column.
func (r Row) Scalar(name string) string {
	pos, ok := r.Schema.Position(name)
	if !ok {
		panic(fmt.Sprintf("schema %s: unknown field %q", r.Schema.Name, name))
	}
	return r.cols[pos]
}

// Packed returns the tokenized values of the named packed column.
func (r Row) Packed(name string) []string {
	if r.Schema.Field(name).Kind != KindPacked {
		panic(fmt.Sprintf("schema %s: field %q is not packed", r.Schema.Name, name))
	}
	return r.packed[name]
}

// Columns returns the raw columns in schema order.
func (r Row) Columns() []string {
	return r.cols
}
