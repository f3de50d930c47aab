package catalog

import (
	"github.com/JonMunkholm/reptiledb/internal/reptile"
)

// BiblioView is a linked bibliography entry.
type BiblioView struct {
	ID      string `json:"id"`
	Authors string `json:"authors,omitempty"`
	Year    string `json:"year,omitempty"`
	Title   string `json:"title,omitempty"`
	Journal string `json:"journal,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ReptileView is the read model of one reptile.
type ReptileView struct {
	ID           int64   `json:"id"`
	Subspecies1  string  `json:"subspecies_1"`
	Subspecies2  string  `json:"subspecies_2"`
	Finder       string  `json:"subspecies_finder"`
	Year         int     `json:"subspecies_year"`
	Note         string  `json:"note"`
	Extra        string  `json:"extra"`
	Code16       string  `json:"code_16"`
	Code17       string  `json:"code_17"`
	Reproduction string  `json:"reproduction"`
	Taxa         *string `json:"higher_taxa"`

	Synonyms      []string `json:"synonyms"`
	Comments      []string `json:"comments"`
	CommonNames   []string `json:"common_names"`
	Distributions []string `json:"distributions"`
	Diagnoses     []string `json:"diagnoses"`
	ExternalLinks []string `json:"external_links"`
	Specimens     []string `json:"specimens"`
	Etymologies   []string `json:"etymologies"`

	Bibliography []BiblioView `json:"bibliography"`
}

// Values returns the deduplicated values of one child collection.
func (v *ReptileView) Values(kind reptile.ChildKind) []string {
	switch kind {
	case reptile.KindSynonym:
		return v.Synonyms
	case reptile.KindComment:
		return v.Comments
	case reptile.KindCommonName:
		return v.CommonNames
	case reptile.KindDistribution:
		return v.Distributions
	case reptile.KindDiagnosis:
		return v.Diagnoses
	case reptile.KindExternalLink:
		return v.ExternalLinks
	case reptile.KindSpecimen:
		return v.Specimens
	case reptile.KindEtymology:
		return v.Etymologies
	}
	return nil
}

// NewView builds the read model of an aggregate. Child values are
// deduplicated by equality, keeping the first occurrence. Collections are
// never nil so that they encode as empty lists.
func NewView(r *reptile.Reptile) ReptileView {
	v := ReptileView{
		ID:           r.ID,
		Subspecies1:  r.Subspecies1,
		Subspecies2:  r.Subspecies2,
		Finder:       r.Finder,
		Year:         r.Year,
		Note:         r.NoteText(),
		Extra:        r.ExtraText(),
		Code16:       r.Code16,
		Code17:       r.Code17,
		Reproduction: r.Reproduction,

		Synonyms:      dedupe(r.Values(reptile.KindSynonym)),
		Comments:      dedupe(r.Values(reptile.KindComment)),
		CommonNames:   dedupe(r.Values(reptile.KindCommonName)),
		Distributions: dedupe(r.Values(reptile.KindDistribution)),
		Diagnoses:     dedupe(r.Values(reptile.KindDiagnosis)),
		ExternalLinks: dedupe(r.Values(reptile.KindExternalLink)),
		Specimens:     dedupe(r.Values(reptile.KindSpecimen)),
		Etymologies:   dedupe(r.Values(reptile.KindEtymology)),

		Bibliography: make([]BiblioView, 0, len(r.Bibliography)),
	}
	if r.Taxa != nil {
		value := r.Taxa.Value
		v.Taxa = &value
	}
	for _, b := range r.Bibliography {
		v.Bibliography = append(v.Bibliography, BiblioView(b))
	}
	return v
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
