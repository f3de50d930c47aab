package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/reptiledb/internal/catalog"
	"github.com/JonMunkholm/reptiledb/internal/dump"
	"github.com/JonMunkholm/reptiledb/internal/logging"
)

// handleHello answers a liveness check.
func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, "Hello!")
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Ping(r.Context()); err != nil {
		respondErrorStatus(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin checks admin credentials sent as JSON.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondErrorJSON(w, catalog.UserMessage{
			Message: "Missing username or password",
			Action:  "Send both username and password",
			Code:    "API003",
		}, http.StatusBadRequest)
		return
	}

	user, err := s.catalog.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if isUnauthorized(err) {
			s.httpMetrics().RecordAuthFailure()
		}
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("admin login", "username", user.Username)
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Login successful"})
}

// handleGetReptile returns one reptile.
func (s *Server) handleGetReptile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handleSearchReptiles returns the reptiles matching the query parameters.
// No match is an empty list.
func (s *Server) handleSearchReptiles(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	views, err := s.catalog.Search(r.Context(), q)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"results": views,
		"count":   len(views),
		"limit":   q.EffectiveLimit(),
	})
}

// createRequest is a new reptile, either as raw dump columns or as named
// fields.
type createRequest struct {
	Columns []string `json:"columns"`

	Taxa         string `json:"higher_taxa"`
	Subspecies1  string `json:"subspecies_1"`
	Subspecies2  string `json:"subspecies_2"`
	Finder       string `json:"subspecies_finder"`
	Year         *int   `json:"subspecies_year"`
	Note         string `json:"note"`
	Extra        string `json:"extra"`
	Code16       string `json:"code_16"`
	Code17       string `json:"code_17"`
	Reproduction string `json:"reproduction"`

	Synonyms        []string `json:"synonyms"`
	CommonNames     []string `json:"common_names"`
	Distributions   []string `json:"distributions"`
	Comments        []string `json:"comments"`
	Diagnoses       []string `json:"diagnoses"`
	Specimens       []string `json:"specimens"`
	ExternalLinks   []string `json:"external_links"`
	BibliographyIDs []string `json:"bibliography_ids"`
	Etymologies     []string `json:"etymologies"`
}

// row renders the request as dump columns.
func (c createRequest) row() []string {
	if len(c.Columns) > 0 {
		return c.Columns
	}

	year := ""
	if c.Year != nil {
		year = strconv.Itoa(*c.Year)
	}
	values := map[string]string{
		dump.ColHigherTaxa:      c.Taxa,
		dump.ColSubspecies1:     c.Subspecies1,
		dump.ColSubspecies2:     c.Subspecies2,
		dump.ColFinder:          c.Finder,
		dump.ColYear:            year,
		dump.ColNote:            c.Note,
		dump.ColExtra:           c.Extra,
		dump.ColCode16:          c.Code16,
		dump.ColCode17:          c.Code17,
		dump.ColReproduction:    c.Reproduction,
		dump.ColSynonyms:        pack(c.Synonyms),
		dump.ColCommonNames:     pack(c.CommonNames),
		dump.ColDistributions:   pack(c.Distributions),
		dump.ColComments:        pack(c.Comments),
		dump.ColDiagnoses:       pack(c.Diagnoses),
		dump.ColSpecimens:       pack(c.Specimens),
		dump.ColExternalLinks:   pack(c.ExternalLinks),
		dump.ColBibliographyIDs: pack(c.BibliographyIDs),
		dump.ColEtymologies:     pack(c.Etymologies),
	}

	cols := make([]string, dump.ReptileSchema.Width())
	for i, f := range dump.ReptileSchema.Fields {
		cols[i] = values[f.Name]
	}
	return cols
}

func pack(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return dump.Pack(values)
}

// handleCreateReptile adds one reptile.
func (s *Server) handleCreateReptile(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.catalog.Create(r.Context(), req.row())
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/reptiles/"+strconv.FormatInt(view.ID, 10))
	writeJSON(w, r, http.StatusCreated, view)
}

// handleUpdateReptile applies a partial update.
func (s *Server) handleUpdateReptile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req catalog.UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.catalog.Update(r.Context(), id, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handleDeleteReptile removes one reptile.
func (s *Server) handleDeleteReptile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.catalog.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
