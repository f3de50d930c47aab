package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/reptiledb/internal/metrics"
	"github.com/JonMunkholm/reptiledb/internal/reptile"
)

// Authenticator checks admin credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (reptile.AdminUser, error)
}

type adminKey struct{}

// AdminFromContext returns the admin authenticated by BasicAuth.
func AdminFromContext(ctx context.Context) (reptile.AdminUser, bool) {
	u, ok := ctx.Value(adminKey{}).(reptile.AdminUser)
	return u, ok
}

// BasicAuth returns middleware that requires HTTP basic credentials of the
// admin account. isUnauthorized classifies the Authenticator's errors.
func BasicAuth(auth Authenticator, isUnauthorized func(error) bool, m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				slog.Warn("auth: missing credentials",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				m.RecordAuthFailure()
				unauthorized(w, `{"error":"missing credentials","code":"API002"}`)
				return
			}

			user, err := auth.Authenticate(r.Context(), username, password)
			if err != nil {
				if isUnauthorized(err) {
					slog.Warn("auth: invalid credentials",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
						"username", username,
					)
					m.RecordAuthFailure()
					unauthorized(w, `{"error":"invalid credentials","code":"API002"}`)
					return
				}
				slog.Error("auth: lookup failed", "path", r.URL.Path, "error", err)
				writeJSONError(w, http.StatusInternalServerError, `{"error":"authentication unavailable","code":"ERR000"}`)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, user)))
		})
	}
}

func unauthorized(w http.ResponseWriter, body string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="reptiledb", charset="UTF-8"`)
	writeJSONError(w, http.StatusUnauthorized, body)
}

func writeJSONError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
