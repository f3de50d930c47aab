// Package reptile defines the reptile aggregate, its owned child values and
// the reference entities it links to, and builds aggregates from dump rows.
package reptile

import "github.com/JonMunkholm/reptiledb/internal/dump"

// ChildKind identifies one of the owned multi-valued collections.
type ChildKind string

const (
	KindSynonym      ChildKind = "synonyms"
	KindComment      ChildKind = "comments"
	KindCommonName   ChildKind = "common_names"
	KindDistribution ChildKind = "distributions"
	KindDiagnosis    ChildKind = "diagnoses"
	KindExternalLink ChildKind = "external_links"
	KindSpecimen     ChildKind = "specimens"
	KindEtymology    ChildKind = "etymologies"
)

// ChildKinds lists every child collection in a stable order.
var ChildKinds = []ChildKind{
	KindSynonym,
	KindComment,
	KindCommonName,
	KindDistribution,
	KindDiagnosis,
	KindExternalLink,
	KindSpecimen,
	KindEtymology,
}

// Table returns the storage table holding values of this kind.
func (k ChildKind) Table() string {
	return string(k)
}

// Column returns the dump column the kind is read from.
func (k ChildKind) Column() string {
	return childColumns[k]
}

// MaxLen returns the maximum characters kept per value.
func (k ChildKind) MaxLen() int {
	return dump.ReptileSchema.Field(childColumns[k]).MaxLen
}

// Valid reports whether k names a known child collection.
func (k ChildKind) Valid() bool {
	_, ok := childColumns[k]
	return ok
}

var childColumns = map[ChildKind]string{
	KindSynonym:      dump.ColSynonyms,
	KindComment:      dump.ColComments,
	KindCommonName:   dump.ColCommonNames,
	KindDistribution: dump.ColDistributions,
	KindDiagnosis:    dump.ColDiagnoses,
	KindExternalLink: dump.ColExternalLinks,
	KindSpecimen:     dump.ColSpecimens,
	KindEtymology:    dump.ColEtymologies,
}

// Child is a single owned value. Position preserves emission order.
type Child struct {
	ID        int64
	ReptileID int64
	Kind      ChildKind
	Position  int
	Value     string
}

// Taxa is a deduplicated higher-taxon reference.
type Taxa struct {
	ID    int64
	Value string
}

// Biblio is a bibliography entry keyed by its citation id.
type Biblio struct {
	ID      string
	Authors string
	Year    string
	Title   string
	Journal string
	URL     string
}

// Reptile is the aggregate root.
type Reptile struct {
	ID           int64
	Subspecies1  string
	Subspecies2  string
	Finder       string
	Year         int
	Note         []byte // UTF-16 encoded
	Extra        []byte // UTF-16 encoded
	Code16       string
	Code17       string
	Reproduction string

	// TaxaValue is the higher-taxon name read from the row; Taxa is set once
	// it has been resolved.
	TaxaValue string
	Taxa      *Taxa

	// BiblioIDs are the citation ids read from the row; Bibliography holds
	// the entries that were linked.
	BiblioIDs    []string
	Bibliography []Biblio

	Children map[ChildKind][]Child
}

// Values returns the values of one child collection in order.
func (r *Reptile) Values(kind ChildKind) []string {
	children := r.Children[kind]
	if len(children) == 0 {
		return nil
	}
	values := make([]string, len(children))
	for i, c := range children {
		values[i] = c.Value
	}
	return values
}

// SetValues replaces a child collection, clamping each non-empty value to the
// kind's maximum length. IDs are assigned by storage.
func (r *Reptile) SetValues(kind ChildKind, values []string) {
	if r.Children == nil {
		r.Children = make(map[ChildKind][]Child)
	}

	children := make([]Child, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		children = append(children, Child{
			ReptileID: r.ID,
			Kind:      kind,
			Position:  len(children),
			Value:     Clamp(v, kind.MaxLen()),
		})
	}
	r.Children[kind] = children
}

// Link records a linked bibliography entry on the aggregate. Storage records
// the same association as one link row, read from either side.
func (r *Reptile) Link(b Biblio) {
	for _, existing := range r.Bibliography {
		if existing.ID == b.ID {
			return
		}
	}
	r.Bibliography = append(r.Bibliography, b)
}

// NoteText returns the decoded note field.
func (r *Reptile) NoteText() string {
	return DecodeOpaque(r.Note)
}

// ExtraText returns the decoded extra field.
func (r *Reptile) ExtraText() string {
	return DecodeOpaque(r.Extra)
}
