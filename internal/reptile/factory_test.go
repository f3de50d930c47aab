package reptile

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/reptiledb/internal/dump"
)

func scenarioColumns() []string {
	return []string{
		"Squamata",                   // higher taxa
		"alpha",                      // subspecies 1
		"beta",                       // subspecies 2
		"Smith",                      // finder
		"1990",                       // year
		"note",                       // note
		"\u001dsyn1\u000bsyn2\u001d", // synonyms
		"\u001d",                     // extra
		"name1",                      // common names
		"",                           // distributions
		"c1\u000bc2",                 // comments
		"",                           // diagnoses
		"",                           // specimens
		"",                           // external links
		"bib1\u000bbib9",             // bibliography ids
		"ety1",                       // etymologies
		"X",                          // code 16
		"Y",                          // code 17
		"oviparous",                  // reproduction
	}
}

func mustRow(t *testing.T, cols []string) dump.Row {
	t.Helper()
	row, err := dump.ReptileSchema.Row(dump.Record{Line: 1, Columns: cols})
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	return row
}

func TestFromRow_Scenario(t *testing.T) {
	r, err := FromRow(mustRow(t, scenarioColumns()))
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}

	if r.Subspecies1 != "alpha" || r.Subspecies2 != "beta" {
		t.Errorf("subspecies = %q/%q, want alpha/beta", r.Subspecies1, r.Subspecies2)
	}
	if r.Finder != "Smith" {
		t.Errorf("Finder = %q, want Smith", r.Finder)
	}
	if r.Year != 1990 {
		t.Errorf("Year = %d, want 1990", r.Year)
	}
	if r.TaxaValue != "Squamata" {
		t.Errorf("TaxaValue = %q, want Squamata", r.TaxaValue)
	}
	if r.Reproduction != "oviparous" || r.Code16 != "X" || r.Code17 != "Y" {
		t.Errorf("codes = %q/%q/%q", r.Code16, r.Code17, r.Reproduction)
	}
	if r.NoteText() != "note" {
		t.Errorf("NoteText() = %q, want note", r.NoteText())
	}

	wantValues := map[ChildKind][]string{
		KindSynonym:      {"syn1", "syn2"},
		KindCommonName:   {"name1"},
		KindComment:      {"c1", "c2"},
		KindEtymology:    {"ety1"},
		KindDistribution: nil,
		KindDiagnosis:    nil,
		KindSpecimen:     nil,
		KindExternalLink: nil,
	}
	for kind, want := range wantValues {
		if got := r.Values(kind); !reflect.DeepEqual(got, want) {
			t.Errorf("Values(%s) = %q, want %q", kind, got, want)
		}
	}

	if !reflect.DeepEqual(r.BiblioIDs, []string{"bib1", "bib9"}) {
		t.Errorf("BiblioIDs = %q", r.BiblioIDs)
	}
}

func TestFromRow_ChildPositions(t *testing.T) {
	cols := scenarioColumns()
	cols[9] = "Spain\u000b\u000bFrance\u000bItaly"

	r, err := FromRow(mustRow(t, cols))
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}

	children := r.Children[KindDistribution]
	if len(children) != 3 {
		t.Fatalf("got %d distributions, want 3", len(children))
	}
	for i, c := range children {
		if c.Position != i {
			t.Errorf("child %d position = %d", i, c.Position)
		}
		if c.Kind != KindDistribution {
			t.Errorf("child %d kind = %s", i, c.Kind)
		}
	}
	if children[1].Value != "France" {
		t.Errorf("children[1] = %q, want France", children[1].Value)
	}
}

func TestFromRow_InvalidYear(t *testing.T) {
	tests := []struct {
		name string
		year string
	}{
		{name: "unknown", year: "unknown"},
		{name: "empty", year: ""},
		{name: "whitespace", year: "   "},
		{name: "decimal", year: "1990.5"},
		{name: "trailing text", year: "1990a"},
		{name: "above int32", year: "3000000000"},
		{name: "below int32", year: "-3000000000"},
		{name: "beyond int64", year: "99999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := scenarioColumns()
			cols[4] = tt.year

			r, err := FromRow(mustRow(t, cols))
			if err == nil {
				t.Fatalf("expected error, got aggregate %+v", r)
			}
			var ve *ValueError
			if !errors.As(err, &ve) {
				t.Fatalf("error %T is not *ValueError", err)
			}
			if ve.Field != dump.ColYear {
				t.Errorf("Field = %q, want %q", ve.Field, dump.ColYear)
			}
		})
	}
}

func TestFromRow_YearTrimmed(t *testing.T) {
	cols := scenarioColumns()
	cols[4] = " 1758 "
	r, err := FromRow(mustRow(t, cols))
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}
	if r.Year != 1758 {
		t.Errorf("Year = %d, want 1758", r.Year)
	}
}

func TestFromRow_Truncation(t *testing.T) {
	cols := scenarioColumns()
	cols[1] = strings.Repeat("a", 300)
	cols[18] = strings.Repeat("r", 3000)
	cols[6] = strings.Repeat("s", 5000) + "\u000bshort"

	r, err := FromRow(mustRow(t, cols))
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}

	if len(r.Subspecies1) != 255 {
		t.Errorf("len(Subspecies1) = %d, want 255", len(r.Subspecies1))
	}
	if len(r.Reproduction) != 2048 {
		t.Errorf("len(Reproduction) = %d, want 2048", len(r.Reproduction))
	}
	syn := r.Values(KindSynonym)
	if len(syn) != 2 || len(syn[0]) != 4096 || syn[1] != "short" {
		t.Errorf("synonyms not clamped per entry: lens %d", len(syn))
	}
}

func TestFromRow_WrongSchema(t *testing.T) {
	row, err := dump.BiblioSchema.Row(dump.Record{Line: 1, Columns: []string{"a", "b", "c", "d", "e", "f"}})
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	if _, err := FromRow(row); err == nil {
		t.Error("expected error for bibliography row")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "shorter", in: "abc", max: 5, want: "abc"},
		{name: "exact", in: "abcde", max: 5, want: "abcde"},
		{name: "longer", in: "abcdef", max: 5, want: "abcde"},
		{name: "unlimited", in: "abcdef", max: 0, want: "abcdef"},
		{name: "multibyte kept whole", in: "äöüß", max: 4, want: "äöüß"},
		{name: "multibyte cut on rune", in: "äöüßé", max: 3, want: "äöü"},
		{name: "empty", in: "", max: 3, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.in, tt.max); got != tt.want {
				t.Errorf("Clamp(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestOpaqueRoundTrip(t *testing.T) {
	for _, s := range []string{"", "note", "Eidechse – Übersicht"} {
		enc := EncodeOpaque(s)
		if s == "" {
			if enc != nil {
				t.Errorf("EncodeOpaque(\"\") = %v, want nil", enc)
			}
			continue
		}
		if enc[0] != 0xFF || enc[1] != 0xFE {
			t.Errorf("EncodeOpaque(%q) missing little-endian BOM: % x", s, enc[:2])
		}
		if got := DecodeOpaque(enc); got != s {
			t.Errorf("DecodeOpaque(EncodeOpaque(%q)) = %q", s, got)
		}
	}
}

func TestBiblioFromRow(t *testing.T) {
	row, err := dump.BiblioSchema.Row(dump.Record{Line: 2, Columns: []string{
		"bib1", "Linnaeus, C.", "1758", "Systema Naturae", "Holmiae", "https://example.org/bib1",
	}})
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}

	b, err := BiblioFromRow(row)
	if err != nil {
		t.Fatalf("BiblioFromRow() error = %v", err)
	}
	want := Biblio{
		ID: "bib1", Authors: "Linnaeus, C.", Year: "1758",
		Title: "Systema Naturae", Journal: "Holmiae", URL: "https://example.org/bib1",
	}
	if b != want {
		t.Errorf("BiblioFromRow() = %+v, want %+v", b, want)
	}
}

func TestBiblioFromRow_MissingID(t *testing.T) {
	row, err := dump.BiblioSchema.Row(dump.Record{Line: 2, Columns: []string{" ", "a", "b", "c", "d", "e"}})
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	var ve *ValueError
	if _, err := BiblioFromRow(row); !errors.As(err, &ve) {
		t.Errorf("BiblioFromRow() error = %v, want *ValueError", err)
	}
}

func TestAdminUser(t *testing.T) {
	u, err := NewAdminUser("admin", "s3cret")
	if err != nil {
		t.Fatalf("NewAdminUser() error = %v", err)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cret" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", u.PasswordHash)
	}
	if !u.CheckPassword("s3cret") {
		t.Error("CheckPassword(correct) = false")
	}
	if u.CheckPassword("wrong") {
		t.Error("CheckPassword(wrong) = true")
	}

	if _, err := NewAdminUser("", "x"); !errors.Is(err, ErrEmptyCredentials) {
		t.Errorf("NewAdminUser(empty username) error = %v", err)
	}
	if _, err := NewAdminUser("admin", ""); !errors.Is(err, ErrEmptyCredentials) {
		t.Errorf("NewAdminUser(empty password) error = %v", err)
	}
}

func TestReptileLink_Deduplicates(t *testing.T) {
	r := &Reptile{}
	r.Link(Biblio{ID: "bib1"})
	r.Link(Biblio{ID: "bib1"})
	r.Link(Biblio{ID: "bib2"})
	if len(r.Bibliography) != 2 {
		t.Errorf("len(Bibliography) = %d, want 2", len(r.Bibliography))
	}
}
