package web

// handlers_common.go contains shared request parsing and response helpers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/reptiledb/internal/catalog"
	"github.com/JonMunkholm/reptiledb/internal/logging"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

// MaxBodySize is the maximum accepted request body (1MB).
const MaxBodySize = 1 << 20

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseID parses the {id} route parameter.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &catalog.InvalidError{Err: fmt.Errorf("invalid reptile id %q", raw)}
	}
	return id, nil
}

// parseQuery builds a search query from URL parameters.
func parseQuery(r *http.Request) (store.Query, error) {
	v := r.URL.Query()
	q := store.Query{
		Text:         strings.TrimSpace(v.Get("q")),
		Subspecies:   strings.TrimSpace(v.Get("subspecies")),
		Finder:       strings.TrimSpace(v.Get("finder")),
		Taxa:         strings.TrimSpace(v.Get("taxa")),
		Synonym:      strings.TrimSpace(v.Get("synonym")),
		CommonName:   strings.TrimSpace(v.Get("common_name")),
		Distribution: strings.TrimSpace(v.Get("distribution")),
		Comment:      strings.TrimSpace(v.Get("comment")),
		Limit:        parseIntParam(r, "limit", store.DefaultSearchLimit),
	}

	if raw := strings.TrimSpace(v.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return store.Query{}, &catalog.InvalidError{Err: fmt.Errorf("year %q is not an integer", raw)}
		}
		q.Year = &year
	}
	return q, nil
}

// decodeJSON decodes a size-limited JSON body into v. Unknown fields are
// rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &catalog.InvalidError{Err: fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)}
		}
		return &catalog.InvalidError{Err: fmt.Errorf("invalid request body: %w", err)}
	}
	return nil
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
