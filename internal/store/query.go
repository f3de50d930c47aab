package store

import (
	"strings"

	"github.com/JonMunkholm/reptiledb/internal/reptile"
)

const (
	// DefaultSearchLimit applies when a query sets no limit.
	DefaultSearchLimit = 100
	// MaxSearchLimit caps any requested limit.
	MaxSearchLimit = 1000
)

// Query holds the search predicates. Set fields are ANDed; text fields match
// case-insensitive substrings.
type Query struct {
	Text         string // Subspecies names or any synonym
	Subspecies   string // Either subspecies name
	Finder       string
	Year         *int // Exact match
	Taxa         string
	Synonym      string
	CommonName   string
	Distribution string
	Comment      string
	Limit        int
}

// Empty reports whether no predicate is set.
func (q Query) Empty() bool {
	return q.Text == "" && q.Subspecies == "" && q.Finder == "" && q.Year == nil &&
		q.Taxa == "" && q.Synonym == "" && q.CommonName == "" &&
		q.Distribution == "" && q.Comment == ""
}

// EffectiveLimit returns the limit clamped to (0, MaxSearchLimit].
func (q Query) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultSearchLimit
	case q.Limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return q.Limit
	}
}

// EscapeLike escapes the LIKE wildcards of s using backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func containsPattern(s string) string {
	return "%" + EscapeLike(strings.ToLower(s)) + "%"
}

const likeExpr = ` LIKE ? ESCAPE '\'`

// DefaultFold is the SQL function that lowercases a column for matching.
const DefaultFold = "lower"

// where renders the predicates with "?" placeholders. fold names the SQL
// function applied to each matched column; it must lowercase the same way
// strings.ToLower does.
func (q Query) where(fold string) (string, []any) {
	var (
		conds []string
		args  []any
	)

	like := func(column string) string {
		return fold + "(" + column + ")" + likeExpr
	}
	child := func(kind reptile.ChildKind) string {
		return "EXISTS (SELECT 1 FROM " + kind.Table() + " c WHERE c.reptile_id = r.id AND " + like("c.value") + ")"
	}

	if q.Text != "" {
		p := containsPattern(q.Text)
		conds = append(conds, "("+like("r.subspecies_1")+" OR "+like("r.subspecies_2")+" OR "+child(reptile.KindSynonym)+")")
		args = append(args, p, p, p)
	}
	if q.Subspecies != "" {
		p := containsPattern(q.Subspecies)
		conds = append(conds, "("+like("r.subspecies_1")+" OR "+like("r.subspecies_2")+")")
		args = append(args, p, p)
	}
	if q.Finder != "" {
		conds = append(conds, like("r.subspecies_finder"))
		args = append(args, containsPattern(q.Finder))
	}
	if q.Year != nil {
		conds = append(conds, "r.subspecies_year = ?")
		args = append(args, *q.Year)
	}
	if q.Taxa != "" {
		conds = append(conds, like("t.value"))
		args = append(args, containsPattern(q.Taxa))
	}

	for _, c := range []struct {
		kind  reptile.ChildKind
		value string
	}{
		{reptile.KindSynonym, q.Synonym},
		{reptile.KindCommonName, q.CommonName},
		{reptile.KindDistribution, q.Distribution},
		{reptile.KindComment, q.Comment},
	} {
		if c.value == "" {
			continue
		}
		conds = append(conds, child(c.kind))
		args = append(args, containsPattern(c.value))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
