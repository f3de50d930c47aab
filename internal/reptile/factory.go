package reptile

// factory.go builds typed aggregates from tokenized dump rows.
//
// Every destination field has a fixed maximum character length taken from the
// dump schema. Longer values are truncated silently: downstream consumers
// rely on the known maximum lengths. The publication year is the only scalar
// that can reject a row.

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/reptiledb/internal/dump"
	"golang.org/x/text/encoding/unicode"
)

// ValueError reports a column value that cannot be coerced to its field type.
type ValueError struct {
	Field string // Schema field name
	Value string // The rejected raw value
	Msg   string // Human-readable reason
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s (value %q)", e.Field, e.Msg, e.Value)
}

// FromRow maps one tokenized reptile row into an aggregate with its child
// collections. The aggregate is neither persisted nor linked.
func FromRow(row dump.Row) (*Reptile, error) {
	if row.Schema != dump.ReptileSchema {
		return nil, fmt.Errorf("row schema %s: want %s", row.Schema.Name, dump.ReptileSchema.Name)
	}

	year, err := ParseYear(row.Scalar(dump.ColYear))
	if err != nil {
		return nil, err
	}

	r := &Reptile{
		Subspecies1:  clampField(row, dump.ColSubspecies1),
		Subspecies2:  clampField(row, dump.ColSubspecies2),
		Finder:       clampField(row, dump.ColFinder),
		Year:         year,
		Note:         EncodeOpaque(clampField(row, dump.ColNote)),
		Extra:        EncodeOpaque(clampField(row, dump.ColExtra)),
		Code16:       clampField(row, dump.ColCode16),
		Code17:       clampField(row, dump.ColCode17),
		Reproduction: clampField(row, dump.ColReproduction),
		TaxaValue:    clampField(row, dump.ColHigherTaxa),
		Children:     make(map[ChildKind][]Child, len(ChildKinds)),
	}

	for _, kind := range ChildKinds {
		r.SetValues(kind, row.Packed(kind.Column()))
	}

	bibMax := dump.ReptileSchema.Field(dump.ColBibliographyIDs).MaxLen
	for _, id := range row.Packed(dump.ColBibliographyIDs) {
		r.BiblioIDs = append(r.BiblioIDs, Clamp(id, bibMax))
	}

	return r, nil
}

// ParseYear parses a publication year. Missing, non-numeric and values
// outside the 32-bit integer column range are a *ValueError.
func ParseYear(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ValueError{Field: dump.ColYear, Value: raw, Msg: "missing year"}
	}
	year, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			return 0, &ValueError{Field: dump.ColYear, Value: raw, Msg: "year is out of range"}
		}
		return 0, &ValueError{Field: dump.ColYear, Value: raw, Msg: "year is not an integer"}
	}
	if year < math.MinInt32 || year > math.MaxInt32 {
		return 0, &ValueError{Field: dump.ColYear, Value: raw, Msg: "year is out of range"}
	}
	return int(year), nil
}

// BiblioFromRow maps one tokenized bibliography row.
func BiblioFromRow(row dump.Row) (Biblio, error) {
	if row.Schema != dump.BiblioSchema {
		return Biblio{}, fmt.Errorf("row schema %s: want %s", row.Schema.Name, dump.BiblioSchema.Name)
	}

	b := Biblio{
		ID:      clampField(row, dump.ColBibID),
		Authors: clampField(row, dump.ColBibAuthors),
		Year:    clampField(row, dump.ColBibYear),
		Title:   clampField(row, dump.ColBibTitle),
		Journal: clampField(row, dump.ColBibJournal),
		URL:     clampField(row, dump.ColBibURL),
	}
	if strings.TrimSpace(b.ID) == "" {
		return Biblio{}, &ValueError{Field: dump.ColBibID, Value: b.ID, Msg: "missing citation id"}
	}
	return b, nil
}

func clampField(row dump.Row, name string) string {
	return Clamp(row.Scalar(name), row.Schema.Field(name).MaxLen)
}

// Clamp truncates s to at most max characters. A max of 0 keeps s whole.
func Clamp(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// EncodeOpaque stores free text as UTF-16 (little endian, with BOM), the
// byte layout the legacy database used for its opaque columns. An empty
// string encodes to nil.
func EncodeOpaque(s string) []byte {
	if s == "" {
		return nil
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// DecodeOpaque reverses EncodeOpaque.
func DecodeOpaque(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}
