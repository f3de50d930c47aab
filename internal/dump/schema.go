package dump

import "fmt"

// FieldKind describes how a dump column is interpreted.
type FieldKind int

const (
	KindText   FieldKind = iota // Single text value
	KindInt                     // Integer value
	KindOpaque                  // Free text stored as opaque bytes
	KindPacked                  // Multi-value column (U+001D / U+000B)
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindOpaque:
		return "opaque"
	case KindPacked:
		return "packed"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// FieldSpec describes a single positional column of a dump file.
type FieldSpec struct {
	Name     string    // Stable column name
	Kind     FieldKind // How the raw value is interpreted
	MaxLen   int       // Maximum characters kept (per entry for packed columns); 0 = unlimited
	Required bool      // Value must be present (and valid for KindInt)
}

// Schema is a named, versioned, ordered list of field descriptors.
// Column positions are the indices into Fields.
type Schema struct {
	Name    string
	Version string
	Fields  []FieldSpec

	index map[string]int
}

// NewSchema builds a schema and validates its field list.
// Panics on an empty field list or duplicate names so that ordering mistakes
// surface when the package is initialised.
func NewSchema(name, version string, fields []FieldSpec) *Schema {
	if len(fields) == 0 {
		panic(fmt.Sprintf("schema %s: no fields", name))
	}

	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			panic(fmt.Sprintf("schema %s: field %d has no name", name, i))
		}
		if _, dup := idx[f.Name]; dup {
			panic(fmt.Sprintf("schema %s: duplicate field %q", name, f.Name))
		}
		idx[f.Name] = i
	}

	return &Schema{
		Name:    name,
		Version: version,
		Fields:  fields,
		index:   idx,
	}
}

// Width returns the number of columns a row must have.
func (s *Schema) Width() int {
	return len(s.Fields)
}

// Position returns the column index of the named field.
func (s *Schema) Position(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Field returns the descriptor of the named field.
// Panics if the field is unknown: callers name fields by constant.
func (s *Schema) Field(name string) FieldSpec {
	i, ok := s.index[name]
	if !ok {
		panic(fmt.Sprintf("schema %s: unknown field %q", s.Name, name))
	}
	return s.Fields[i]
}

// Reptile dump column names.
const (
	ColHigherTaxa      = "higher_taxa"
	ColSubspecies1     = "subspecies_1"
	ColSubspecies2     = "subspecies_2"
	ColFinder          = "subspecies_finder"
	ColYear            = "subspecies_year"
	ColNote            = "note"
	ColSynonyms        = "synonyms"
	ColExtra           = "extra"
	ColCommonNames     = "common_names"
	ColDistributions   = "distributions"
	ColComments        = "comments"
	ColDiagnoses       = "diagnoses"
	ColSpecimens       = "specimens"
	ColExternalLinks   = "external_links"
	ColBibliographyIDs = "bibliography_ids"
	ColEtymologies     = "etymologies"
	ColCode16          = "code_16"
	ColCode17          = "code_17"
	ColReproduction    = "reproduction"
)

// ReptileSchema is the 19-column layout of the reptile dump (2023-09 export).
var ReptileSchema = NewSchema("reptiles", "2023-09", []FieldSpec{
	{Name: ColHigherTaxa, Kind: KindText, MaxLen: 255},
	{Name: ColSubspecies1, Kind: KindText, MaxLen: 255},
	{Name: ColSubspecies2, Kind: KindText, MaxLen: 255},
	{Name: ColFinder, Kind: KindText, MaxLen: 255},
	{Name: ColYear, Kind: KindInt, Required: true},
	{Name: ColNote, Kind: KindOpaque, MaxLen: 255},
	{Name: ColSynonyms, Kind: KindPacked, MaxLen: 4096},
	{Name: ColExtra, Kind: KindOpaque, MaxLen: 65000},
	{Name: ColCommonNames, Kind: KindPacked, MaxLen: 4096},
	{Name: ColDistributions, Kind: KindPacked, MaxLen: 4096},
	{Name: ColComments, Kind: KindPacked, MaxLen: 8192},
	{Name: ColDiagnoses, Kind: KindPacked, MaxLen: 65336},
	{Name: ColSpecimens, Kind: KindPacked, MaxLen: 9000},
	{Name: ColExternalLinks, Kind: KindPacked, MaxLen: 4096},
	{Name: ColBibliographyIDs, Kind: KindPacked, MaxLen: 30},
	{Name: ColEtymologies, Kind: KindPacked, MaxLen: 4096},
	{Name: ColCode16, Kind: KindText, MaxLen: 255},
	{Name: ColCode17, Kind: KindText, MaxLen: 255},
	{Name: ColReproduction, Kind: KindText, MaxLen: 2048},
})

// Bibliography dump column names.
const (
	ColBibID      = "bib_id"
	ColBibAuthors = "bib_authors"
	ColBibYear    = "bib_year"
	ColBibTitle   = "bib_title"
	ColBibJournal = "bib_journal"
	ColBibURL     = "bib_url"
)

// BiblioSchema is the 6-column layout of the bibliography dump.
var BiblioSchema = NewSchema("bibliography", "2023-09", []FieldSpec{
	{Name: ColBibID, Kind: KindText, MaxLen: 30, Required: true},
	{Name: ColBibAuthors, Kind: KindText, MaxLen: 5000},
	{Name: ColBibYear, Kind: KindText, MaxLen: 255},
	{Name: ColBibTitle, Kind: KindText, MaxLen: 65536},
	{Name: ColBibJournal, Kind: KindText, MaxLen: 512},
	{Name: ColBibURL, Kind: KindText, MaxLen: 2048},
})
