package dump

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// ============================================================================
// SplitPacked / Pack Tests
// ============================================================================

func TestSplitPacked(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "empty column",
			input: "",
			want:  nil,
		},
		{
			name:  "group marker only",
			input: "\u001d",
			want:  nil,
		},
		{
			name:  "single value",
			input: "name1",
			want:  []string{"name1"},
		},
		{
			name:  "two values",
			input: "syn1\u000bsyn2",
			want:  []string{"syn1", "syn2"},
		},
		{
			name:  "group markers stripped",
			input: "\u001dsyn1\u000bsyn2\u001d",
			want:  []string{"syn1", "syn2"},
		},
		{
			name:  "empty entries dropped",
			input: "\u000ba\u000b\u000bb\u000b",
			want:  []string{"a", "b"},
		},
		{
			name:  "group marker inside value",
			input: "Lace\u001drta",
			want:  []string{"Lacerta"},
		},
		{
			name:  "whitespace preserved",
			input: " a \u000bb",
			want:  []string{" a ", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPacked(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitPacked(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPackRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{name: "nil", values: nil, want: nil},
		{name: "only empty", values: []string{"", ""}, want: nil},
		{name: "plain", values: []string{"a", "b", "c"}, want: []string{"a", "b", "c"}},
		{name: "empties removed", values: []string{"a", "", "c", ""}, want: []string{"a", "c"}},
		{name: "unicode", values: []string{"Eidechse", "Zauneidechse (Ö)"}, want: []string{"Eidechse", "Zauneidechse (Ö)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPacked(Pack(tt.values))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitPacked(Pack(%q)) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Split Tests
// ============================================================================

func TestSplit(t *testing.T) {
	text := "a\tb\tc\r\n\r\n   \nd\te\tf\n"
	got := Split(text)

	want := []Record{
		{Line: 1, Columns: []string{"a", "b", "c"}},
		{Line: 3, Columns: []string{"   "}},
		{Line: 4, Columns: []string{"d", "e", "f"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %+v, want %+v", got, want)
	}
}

func TestSplit_KeepsEmptyColumns(t *testing.T) {
	got := Split("a\t\t\tb")
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	want := []string{"a", "", "", "b"}
	if !reflect.DeepEqual(got[0].Columns, want) {
		t.Errorf("Columns = %q, want %q", got[0].Columns, want)
	}
}

func TestSplit_AllFieldsEmpty(t *testing.T) {
	line := strings.Repeat("\t", 18)
	got := Split("a\n" + line + "\r\nb\n")

	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[1].Line != 2 {
		t.Errorf("Line = %d, want 2", got[1].Line)
	}
	if len(got[1].Columns) != 19 {
		t.Errorf("got %d columns, want 19", len(got[1].Columns))
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := Split(""); len(got) != 0 {
		t.Errorf("Split(\"\") = %v, want no records", got)
	}
}

// ============================================================================
// Schema.Row Tests
// ============================================================================

func reptileColumns() []string {
	return []string{
		"Squamata", "alpha", "beta", "Smith", "1990", "note",
		"\u001dsyn1\u000bsyn2\u001d", "extra", "name1", "", "c1\u000bc2", "",
		"", "", "bib1\u000bbib9", "ety1", "X", "Y", "oviparous",
	}
}

func TestSchemaRow(t *testing.T) {
	row, err := ReptileSchema.Row(Record{Line: 7, Columns: reptileColumns()})
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}

	if row.Line != 7 {
		t.Errorf("Line = %d, want 7", row.Line)
	}
	if got := row.Scalar(ColSubspecies1); got != "alpha" {
		t.Errorf("Scalar(subspecies_1) = %q, want %q", got, "alpha")
	}
	if got := row.Scalar(ColReproduction); got != "oviparous" {
		t.Errorf("Scalar(reproduction) = %q, want %q", got, "oviparous")
	}
	if got := row.Packed(ColSynonyms); !reflect.DeepEqual(got, []string{"syn1", "syn2"}) {
		t.Errorf("Packed(synonyms) = %q", got)
	}
	if got := row.Packed(ColDistributions); len(got) != 0 {
		t.Errorf("Packed(distributions) = %q, want empty", got)
	}
	if got := row.Packed(ColBibliographyIDs); !reflect.DeepEqual(got, []string{"bib1", "bib9"}) {
		t.Errorf("Packed(bibliography_ids) = %q", got)
	}
}

func TestSchemaRow_ColumnCountMismatch(t *testing.T) {
	tests := []struct {
		name string
		cols []string
	}{
		{name: "too few", cols: reptileColumns()[:18]},
		{name: "too many", cols: append(reptileColumns(), "surplus")},
		{name: "single column", cols: []string{"Squamata"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReptileSchema.Row(Record{Line: 3, Columns: tt.cols})
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not *FormatError", err)
			}
			if fe.Line != 3 {
				t.Errorf("Line = %d, want 3", fe.Line)
			}
			if !errors.Is(err, ErrColumnCount) {
				t.Errorf("error does not wrap ErrColumnCount: %v", err)
			}
			if !strings.Contains(err.Error(), "expected 19 columns") {
				t.Errorf("error = %q, want column count in message", err)
			}
		})
	}
}

func TestSchemaWidths(t *testing.T) {
	if got := ReptileSchema.Width(); got != 19 {
		t.Errorf("ReptileSchema.Width() = %d, want 19", got)
	}
	if got := BiblioSchema.Width(); got != 6 {
		t.Errorf("BiblioSchema.Width() = %d, want 6", got)
	}

	positions := map[string]int{
		ColHigherTaxa:      0,
		ColYear:            4,
		ColSynonyms:        6,
		ColCommonNames:     8,
		ColSpecimens:       12,
		ColBibliographyIDs: 14,
		ColEtymologies:     15,
		ColReproduction:    18,
	}
	for name, want := range positions {
		if got, ok := ReptileSchema.Position(name); !ok || got != want {
			t.Errorf("Position(%s) = %d, %v; want %d", name, got, ok, want)
		}
	}
}

func TestNewSchema_PanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate field name")
		}
	}()
	NewSchema("broken", "1", []FieldSpec{{Name: "a"}, {Name: "a"}})
}

func TestRowPacked_PanicsOnScalarField(t *testing.T) {
	row, err := ReptileSchema.Row(Record{Line: 1, Columns: reptileColumns()})
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-packed field")
		}
	}()
	row.Packed(ColYear)
}
