package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/worklog/importer/internal/config"
	"github.com/worklog/importer/internal/logging"
)

// APIKeyAuth validates the X-API-Key header against the configured keys.
// When RequireAPIKey is false every request passes through. When it is true
// and no keys are configured, every request is rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				logging.FromContext(r.Context()).Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			}

			if !matchesAnyKey(key, cfg.APIKeys) {
				logging.FromContext(r.Context()).Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchesAnyKey compares against every configured key in constant time so
// the comparison cost does not reveal which key matched.
func matchesAnyKey(key string, validKeys []string) bool {
	valid := 0
	for _, vk := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(vk))
	}
	return valid == 1
}
