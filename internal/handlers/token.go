package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/launchboxhq/launchbox/internal/auth"
	"github.com/launchboxhq/launchbox/internal/models"
	pkghttp "github.com/launchboxhq/launchbox/pkg/http"
	"github.com/launchboxhq/launchbox/pkg/shortid"
)

// TokenServiceInterface is the token lifecycle surface the handler uses.
type TokenServiceInterface interface {
	Generate(ctx context.Context, owner models.OwnerRef, ttl time.Duration) (*models.BearerToken, error)
	Sign(token *models.BearerToken) (string, error)
	VerifyAndDecode(tokenString string) (*jwt.RegisteredClaims, error)
	Get(ctx context.Context, id uuid.UUID) (*models.BearerToken, error)
	Lookup(ctx context.Context, claims *jwt.RegisteredClaims) (*models.BearerToken, error)
	Revoke(ctx context.Context, token *models.BearerToken) error
	RevokeAll(ctx context.Context, sel models.TokenSelection) (int64, error)
	Expired(ctx context.Context, sel models.TokenSelection) ([]*models.BearerToken, error)
	Cleanup(ctx context.Context, sel models.TokenSelection) (int64, error)
}

// TokenHandler handles bearer token HTTP requests.
type TokenHandler struct {
	service TokenServiceInterface
	logger  *slog.Logger
}

func NewTokenHandler(service TokenServiceInterface, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{service: service, logger: logger}
}

// IssueTokenRequest is the request body for token issuance.
type IssueTokenRequest struct {
	OwnerKind  string `json:"owner_kind" validate:"required,oneof=application service"`
	OwnerID    string `json:"owner_id" validate:"required,uuid"`
	TTLSeconds int    `json:"ttl_seconds" validate:"gte=0"`
}

// TokenResponse is the representation of an issued token.
type TokenResponse struct {
	ID        string          `json:"id"`
	ShortID   string          `json:"short_id"`
	Token     string          `json:"token,omitempty"`
	Owner     models.OwnerRef `json:"owner"`
	IssuedAt  time.Time       `json:"issued_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func tokenResponse(token *models.BearerToken, signed string) TokenResponse {
	return TokenResponse{
		ID:        token.ID.String(),
		ShortID:   shortid.Encode(token.ID),
		Token:     signed,
		Owner:     token.Owner,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	}
}

// Issue generates and signs a token for an owner.
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid owner id")
		return
	}

	owner := models.OwnerRef{Kind: models.OwnerKind(req.OwnerKind), ID: ownerID}
	token, err := h.service.Generate(r.Context(), owner, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid token owner")
			return
		}
		h.logger.Error("token generation failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to issue token")
		return
	}

	signed, err := h.service.Sign(token)
	if err != nil {
		h.logger.Error("token signing failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse(token, signed))
}

// Verify checks the Authorization bearer token against both its
// signature and its stored record. Expired, revoked and forged tokens
// all produce the same 401; the distinction is logged, never returned.
func (h *TokenHandler) Verify(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		pkghttp.WriteUnauthorized(w, "Invalid token")
		return
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	claims, err := h.service.VerifyAndDecode(tokenString)
	if err != nil {
		h.logger.Info("token rejected",
			slog.String("token", models.MaskToken(tokenString)),
			slog.Any("error", err))
		pkghttp.WriteUnauthorized(w, "Invalid token")
		return
	}

	token, err := h.service.Lookup(r.Context(), claims)
	if err != nil {
		h.logger.Info("token record missing", slog.String("jti", claims.ID))
		pkghttp.WriteUnauthorized(w, "Invalid token")
		return
	}

	if token.IsExpired() {
		h.logger.Info("revoked token rejected", slog.String("jti", claims.ID))
		pkghttp.WriteUnauthorized(w, "Invalid token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse(token, ""))
}

// Revoke collapses a single token's window. The path parameter is the
// token's short id.
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := shortid.Decode(chi.URLParam(r, "shortID"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid token id")
		return
	}

	token, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Token not found")
			return
		}
		h.logger.Error("token lookup failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to revoke token")
		return
	}

	if err := h.service.Revoke(r.Context(), token); err != nil {
		h.logger.Error("token revocation failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to revoke token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeAll revokes every token scoped to one owner.
func (h *TokenHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	kind := models.OwnerKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		pkghttp.WriteBadRequest(w, "Invalid owner kind")
		return
	}

	ownerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid owner id")
		return
	}

	count, err := h.service.RevokeAll(r.Context(), models.TokenSelection{
		OwnerKind: kind,
		OwnerID:   ownerID,
	})
	if err != nil {
		h.logger.Error("bulk revocation failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to revoke tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"revoked": count})
}

// Cleanup deletes all expired token records.
func (h *TokenHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Cleanup(r.Context(), models.TokenSelection{})
	if err != nil {
		h.logger.Error("token cleanup failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to cleanup tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

// WhoAmI echoes the owner of the verified bearer token. It must sit
// behind auth.RequireBearerToken, which places the owner in context.
func (h *TokenHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Invalid token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]models.OwnerRef{"owner": owner})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
