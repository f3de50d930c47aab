package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/reptiledb/internal/catalog"
	"github.com/JonMunkholm/reptiledb/internal/config"
	"github.com/JonMunkholm/reptiledb/internal/metrics"
	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "reptiles.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	u, err := reptile.NewAdminUser("admin", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.CreateAdmin(ctx, &u); err != nil {
		t.Fatal(err)
	}
	if err := tx.UpsertBiblio(ctx, reptile.Biblio{ID: "bib1", Title: "A review"}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	m, err := metrics.New()
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Minute},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	return NewServer(catalog.New(s), cfg, m)
}

// do sends a request through the router. A non-nil body is JSON encoded.
func do(t *testing.T, srv *Server, method, path string, body any, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.SetBasicAuth("admin", "secret")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func createReptile(t *testing.T, srv *Server, body map[string]any) catalog.ReptileView {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/reptiles", body, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[catalog.ReptileView](t, rec)
}

func TestHello(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/hello", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `"Hello!"` {
		t.Errorf("body = %s", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestCreateGetDelete(t *testing.T) {
	srv := newTestServer(t)

	created := createReptile(t, srv, map[string]any{
		"higher_taxa":      "Squamata",
		"subspecies_1":     "alpha",
		"subspecies_2":     "beta",
		"subspecies_year":  1990,
		"synonyms":         []string{"syn1", "syn1", "syn2"},
		"bibliography_ids": []string{"bib1"},
	})

	rec := do(t, srv, http.MethodGet, "/api/reptiles/"+itoa(created.ID), nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[catalog.ReptileView](t, rec)
	if got.Subspecies1 != "alpha" || got.Year != 1990 {
		t.Errorf("got %+v", got)
	}
	if len(got.Synonyms) != 2 {
		t.Errorf("Synonyms = %v, want deduplicated", got.Synonyms)
	}
	if got.Taxa == nil || *got.Taxa != "Squamata" {
		t.Errorf("Taxa = %v", got.Taxa)
	}
	if len(got.Bibliography) != 1 {
		t.Errorf("Bibliography = %v", got.Bibliography)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/reptiles/"+itoa(created.ID), nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/reptiles/"+itoa(created.ID), nil, false); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestCreateErrors(t *testing.T) {
	srv := newTestServer(t)
	createReptile(t, srv, map[string]any{"subspecies_1": "alpha", "subspecies_year": 1990})

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"duplicate", map[string]any{"subspecies_1": "alpha", "subspecies_year": 1990}, http.StatusConflict, "DB001"},
		{"missing year", map[string]any{"subspecies_1": "gamma"}, http.StatusBadRequest, "ROW002"},
		{"short columns", map[string]any{"columns": []string{"a", "b"}}, http.StatusBadRequest, "ROW001"},
		{"unknown field", map[string]any{"wings": 2}, http.StatusBadRequest, "API003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/reptiles", tt.body, true)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestWritesRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/reptiles", map[string]any{"subspecies_1": "alpha"}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/reptiles/1", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
}

func TestUpdate(t *testing.T) {
	srv := newTestServer(t)
	created := createReptile(t, srv, map[string]any{
		"subspecies_1":    "alpha",
		"subspecies_year": 1990,
		"common_names":    []string{"kept"},
	})

	rec := do(t, srv, http.MethodPut, "/api/reptiles/"+itoa(created.ID), map[string]any{
		"subspecies_finder": "Jones",
		"children":          map[string][]string{"synonyms": {"new"}},
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	got := decode[catalog.ReptileView](t, rec)
	if got.Finder != "Jones" {
		t.Errorf("Finder = %q", got.Finder)
	}
	if len(got.Synonyms) != 1 || got.Synonyms[0] != "new" {
		t.Errorf("Synonyms = %v", got.Synonyms)
	}
	if len(got.CommonNames) != 1 {
		t.Errorf("CommonNames = %v, want untouched", got.CommonNames)
	}

	rec = do(t, srv, http.MethodPut, "/api/reptiles/9999", map[string]any{}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing reptile status = %d, want 404", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	createReptile(t, srv, map[string]any{"subspecies_1": "Python", "subspecies_2": "regius", "subspecies_year": 1802})
	createReptile(t, srv, map[string]any{"subspecies_1": "Boa", "subspecies_2": "constrictor", "subspecies_year": 1758})

	tests := []struct {
		query      string
		wantStatus int
		wantCount  int
	}{
		{"q=python", http.StatusOK, 1},
		{"year=1758", http.StatusOK, 1},
		{"subspecies=o&limit=1", http.StatusOK, 1},
		{"finder=nobody", http.StatusOK, 0},
		{"year=old", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/reptiles/search?"+tt.query, nil, false)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			resp := decode[struct {
				Count int `json:"count"`
			}](t, rec)
			if resp.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", resp.Count, tt.wantCount)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"valid", map[string]string{"username": "admin", "password": "secret"}, http.StatusOK},
		{"wrong password", map[string]string{"username": "admin", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "root", "password": "secret"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"username": "admin"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/login", tt.body, false)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestInvalidID(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/reptiles/abc", nil, false)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/api/hello", nil, false)

	rec := do(t, srv, http.MethodGet, "/metrics", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `reptiledb_http_requests_total{method="GET",route="/api/hello",status_code="200"} 1`) {
		t.Errorf("request counter missing from /metrics output")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
