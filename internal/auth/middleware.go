package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/launchboxhq/launchbox/internal/models"
	pkghttp "github.com/launchboxhq/launchbox/pkg/http"
)

type contextKey string

const ownerContextKey contextKey = "token_owner"

// TokenLookup resolves a stored token record by its identifier.
type TokenLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.BearerToken, error)
}

// RequireBearerToken verifies the Authorization bearer token and checks
// the stored record, so that revocation (a collapsed stored window) is
// honored even while the signed exp claim is still in the future. Every
// failure produces the same 401 response; the reason is only logged.
func RequireBearerToken(signer *TokenSigner, repo TokenLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				pkghttp.WriteUnauthorized(w, "Invalid token")
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims, err := signer.VerifyAndDecode(tokenString)
			if err != nil {
				logger.Warn("token verification failed",
					slog.String("token", models.MaskToken(tokenString)),
					slog.Any("error", err))
				pkghttp.WriteUnauthorized(w, "Invalid token")
				return
			}

			id, err := TokenID(claims)
			if err != nil {
				logger.Warn("malformed jti claim", slog.Any("error", err))
				pkghttp.WriteUnauthorized(w, "Invalid token")
				return
			}

			record, err := repo.GetByID(r.Context(), id)
			if err != nil {
				logger.Warn("token record lookup failed",
					slog.String("jti", claims.ID),
					slog.Any("error", err))
				pkghttp.WriteUnauthorized(w, "Invalid token")
				return
			}

			if record.IsExpired() {
				logger.Info("rejected revoked or expired token", slog.String("jti", claims.ID))
				pkghttp.WriteUnauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ownerContextKey, record.Owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerFromContext returns the owner of the verified token, if any.
func OwnerFromContext(ctx context.Context) (models.OwnerRef, bool) {
	owner, ok := ctx.Value(ownerContextKey).(models.OwnerRef)
	return owner, ok
}
