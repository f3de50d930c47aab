package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/reptiledb/internal/reptile"
)

// Placeholder selects the bind parameter syntax of a driver.
type Placeholder int

const (
	Question Placeholder = iota // ?, ?, ?
	Dollar                      // $1, $2, $3
)

// Rebind rewrites "?" placeholders for the given style. Statements in this
// package never contain a literal question mark.
func Rebind(ph Placeholder, query string) string {
	if ph == Question {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// ReptileColumns are selected, in order, by GetReptile.
const ReptileColumns = `r.id, r.subspecies_1, r.subspecies_2, r.subspecies_finder, r.subspecies_year,
	r.note, r.extra, r.code_16, r.code_17, r.reproduction, t.id, t.value`

// Statements is the SQL shared by the backends, rendered for one placeholder
// style.
type Statements struct {
	ph   Placeholder
	fold string

	ClearReptiles string
	FindTaxa      string
	CreateTaxa    string
	FindBiblio    string
	UpsertBiblio  string
	InsertReptile string
	UpdateReptile string
	DeleteReptile string
	GetReptile    string
	LinkBiblio    string
	LinkedBiblio  string
	FindAdmin     string
	CreateAdmin   string
	Stats         string

	InsertChild    map[reptile.ChildKind]string
	SelectChildren map[reptile.ChildKind]string
	DeleteChildren map[reptile.ChildKind]string
}

// NewStatements renders every statement for ph. Search lowercases columns
// with fold, or with DefaultFold when fold is empty.
func NewStatements(ph Placeholder, fold string) Statements {
	r := func(q string) string { return Rebind(ph, q) }
	if fold == "" {
		fold = DefaultFold
	}

	s := Statements{
		ph:   ph,
		fold: fold,

		ClearReptiles: `DELETE FROM reptile`,
		FindTaxa:      r(`SELECT id, value FROM taxa WHERE value = ?`),
		CreateTaxa:    r(`INSERT INTO taxa (value) VALUES (?) RETURNING id`),
		FindBiblio:    r(`SELECT bib_id, authors, year, title, journal, url FROM biblio WHERE bib_id = ?`),
		UpsertBiblio: r(`INSERT INTO biblio (bib_id, authors, year, title, journal, url)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (bib_id) DO UPDATE SET
				authors = excluded.authors,
				year = excluded.year,
				title = excluded.title,
				journal = excluded.journal,
				url = excluded.url`),
		InsertReptile: r(`INSERT INTO reptile (subspecies_1, subspecies_2, subspecies_finder, subspecies_year,
				note, extra, code_16, code_17, reproduction, taxa_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		UpdateReptile: r(`UPDATE reptile SET subspecies_1 = ?, subspecies_2 = ?, subspecies_finder = ?,
				subspecies_year = ?, note = ?, extra = ?, code_16 = ?, code_17 = ?, reproduction = ?,
				taxa_id = ?
			WHERE id = ?`),
		DeleteReptile: r(`DELETE FROM reptile WHERE id = ?`),
		GetReptile: r(`SELECT ` + ReptileColumns + `
			FROM reptile r LEFT JOIN taxa t ON t.id = r.taxa_id
			WHERE r.id = ?`),
		LinkBiblio: r(`INSERT INTO reptile_biblio (reptile_id, biblio_id) VALUES (?, ?)
			ON CONFLICT (reptile_id, biblio_id) DO NOTHING`),
		LinkedBiblio: r(`SELECT b.bib_id, b.authors, b.year, b.title, b.journal, b.url
			FROM reptile_biblio rb JOIN biblio b ON b.bib_id = rb.biblio_id
			WHERE rb.reptile_id = ?
			ORDER BY b.bib_id`),
		FindAdmin:   r(`SELECT id, username, password_hash FROM admin_user WHERE username = ?`),
		CreateAdmin: r(`INSERT INTO admin_user (username, password_hash) VALUES (?, ?) RETURNING id`),
		Stats: `SELECT
			(SELECT count(*) FROM reptile),
			(SELECT count(*) FROM taxa),
			(SELECT count(*) FROM biblio),
			(SELECT count(*) FROM reptile_biblio),
			(SELECT count(*) FROM admin_user)`,

		InsertChild:    make(map[reptile.ChildKind]string, len(reptile.ChildKinds)),
		SelectChildren: make(map[reptile.ChildKind]string, len(reptile.ChildKinds)),
		DeleteChildren: make(map[reptile.ChildKind]string, len(reptile.ChildKinds)),
	}

	for _, kind := range reptile.ChildKinds {
		table := kind.Table()
		s.InsertChild[kind] = r(fmt.Sprintf(`INSERT INTO %s (reptile_id, position, value) VALUES (?, ?, ?)`, table))
		s.SelectChildren[kind] = r(fmt.Sprintf(`SELECT id, position, value FROM %s WHERE reptile_id = ? ORDER BY position, id`, table))
		s.DeleteChildren[kind] = r(fmt.Sprintf(`DELETE FROM %s WHERE reptile_id = ?`, table))
	}

	return s
}

// Search renders the search statement and its arguments.
func (s Statements) Search(q Query) (string, []any) {
	where, args := q.where(s.fold)
	query := `SELECT r.id FROM reptile r LEFT JOIN taxa t ON t.id = r.taxa_id` + where + ` ORDER BY r.id LIMIT ?`
	args = append(args, q.EffectiveLimit())
	return Rebind(s.ph, query), args
}

// NullableTaxaID returns the taxa id column value of r.
func NullableTaxaID(r *reptile.Reptile) any {
	if r.Taxa == nil {
		return nil
	}
	return r.Taxa.ID
}

// ReptileArgs returns the scalar insert arguments in InsertReptile order.
func ReptileArgs(r *reptile.Reptile) []any {
	return []any{
		r.Subspecies1, r.Subspecies2, r.Finder, r.Year,
		r.Note, r.Extra, r.Code16, r.Code17, r.Reproduction,
		NullableTaxaID(r),
	}
}

// DedupeIDs drops repeated and empty ids, keeping first-occurrence order.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
