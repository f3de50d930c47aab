package store

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name  string
		ph    Placeholder
		query string
		want  string
	}{
		{name: "question unchanged", ph: Question, query: "a = ? AND b = ?", want: "a = ? AND b = ?"},
		{name: "dollar numbered", ph: Dollar, query: "a = ? AND b = ?", want: "a = $1 AND b = $2"},
		{name: "no placeholders", ph: Dollar, query: "DELETE FROM reptile", want: "DELETE FROM reptile"},
		{name: "ten or more", ph: Dollar, query: strings.Repeat("?,", 10) + "?", want: "$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.ph, tt.query); got != tt.want {
				t.Errorf("Rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := EscapeLike(tt.in); got != tt.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQueryEffectiveLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultSearchLimit},
		{-5, DefaultSearchLimit},
		{20, 20},
		{MaxSearchLimit, MaxSearchLimit},
		{MaxSearchLimit + 1, MaxSearchLimit},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			if got := (Query{Limit: tt.limit}).EffectiveLimit(); got != tt.want {
				t.Errorf("EffectiveLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSearchStatement(t *testing.T) {
	year := 1990
	s := NewStatements(Dollar, "")

	query, args := s.Search(Query{Finder: "Smith", Year: &year, Synonym: "Syn_1", Limit: 5})

	for _, want := range []string{
		"lower(r.subspecies_finder) LIKE $1",
		"r.subspecies_year = $2",
		"EXISTS (SELECT 1 FROM synonyms c",
		"LIKE $3",
		"ORDER BY r.id LIMIT $4",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}

	wantArgs := []any{"%smith%", 1990, `%syn\_1%`, 5}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %#v, want %#v", args, wantArgs)
	}
}

func TestSearchStatement_NoPredicates(t *testing.T) {
	s := NewStatements(Question, "")
	query, args := s.Search(Query{})
	if strings.Contains(query, "WHERE") {
		t.Errorf("unexpected WHERE in %q", query)
	}
	if len(args) != 1 || args[0] != DefaultSearchLimit {
		t.Errorf("args = %v, want [%d]", args, DefaultSearchLimit)
	}
	if !(Query{}).Empty() {
		t.Error("Query{}.Empty() = false")
	}
}

func TestSearchStatement_TextMatchesNamesAndSynonyms(t *testing.T) {
	s := NewStatements(Question, "")
	query, args := s.Search(Query{Text: "Alpha"})
	if strings.Count(query, "?") != 4 {
		t.Errorf("want 4 placeholders in %q", query)
	}
	if len(args) != 4 || args[0] != "%alpha%" {
		t.Errorf("args = %v", args)
	}
}

func TestSearchStatement_FoldFunction(t *testing.T) {
	s := NewStatements(Question, "fold_lower")
	query, args := s.Search(Query{Subspecies: "ÉLAPHE", Taxa: "Squamata"})

	if strings.Contains(query, "lower(") {
		t.Errorf("default fold used in %q", query)
	}
	for _, want := range []string{"fold_lower(r.subspecies_1)", "fold_lower(r.subspecies_2)", "fold_lower(t.value)"} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}
	if args[0] != "%élaphe%" {
		t.Errorf("args[0] = %v, want %%élaphe%%", args[0])
	}
}

func TestConstraintError(t *testing.T) {
	cause := errors.New("duplicate key")
	err := fmt.Errorf("insert reptile: %w", &ConstraintError{Constraint: "reptile_subspecies_key", Err: cause})

	if !errors.Is(err, ErrConstraint) {
		t.Error("errors.Is(err, ErrConstraint) = false")
	}
	if !IsConstraint(err) {
		t.Error("IsConstraint() = false")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("constraint error matched ErrNotFound")
	}
	if !strings.Contains(err.Error(), "reptile_subspecies_key") {
		t.Errorf("Error() = %q, want constraint name", err.Error())
	}
}

func TestDataError(t *testing.T) {
	err := fmt.Errorf("insert reptile: %w", &DataError{Code: "22003", Err: errors.New("integer out of range")})

	if !IsInvalidData(err) {
		t.Error("IsInvalidData() = false")
	}
	if IsConstraint(err) {
		t.Error("data error matched ErrConstraint")
	}
	if !strings.Contains(err.Error(), "integer out of range") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDedupeIDs(t *testing.T) {
	got := DedupeIDs([]string{"bib1", "", "bib2", "bib1", "bib3", "bib2"})
	want := []string{"bib1", "bib2", "bib3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeIDs() = %v, want %v", got, want)
	}
}
