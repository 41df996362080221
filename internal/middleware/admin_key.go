package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	pkghttp "github.com/launchboxhq/launchbox/pkg/http"
)

// RequireAdminKey guards management endpoints (token issuance, bulk
// revocation) behind a shared admin key. Only the bcrypt hash of the
// key is configured; the plaintext never touches disk or logs. An
// empty hash disables the endpoints entirely rather than leaving them
// open.
func RequireAdminKey(keyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				pkghttp.WriteUnauthorized(w, "Management endpoints are disabled")
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" {
				pkghttp.WriteUnauthorized(w, "Admin key required")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				logger.Warn("admin key rejected", slog.String("remote_addr", r.RemoteAddr))
				pkghttp.WriteUnauthorized(w, "Admin key required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
