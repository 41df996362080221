package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/launchboxhq/launchbox/internal/auth"
	"github.com/launchboxhq/launchbox/internal/models"
	"github.com/launchboxhq/launchbox/internal/repositories"
)

// TokenService drives the bearer token lifecycle: generation, signing,
// verification, lookup, revocation and the bulk operations over stored
// tokens. It is stateless apart from its injected collaborators.
type TokenService struct {
	repo       repositories.BearerTokenRepository
	signer     *auth.TokenSigner
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewTokenService(
	repo repositories.BearerTokenRepository,
	signer *auth.TokenSigner,
	defaultTTL time.Duration,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		repo:       repo,
		signer:     signer,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate creates and persists a token for the owner. A non-positive
// ttl selects the configured default.
func (s *TokenService) Generate(ctx context.Context, owner models.OwnerRef, ttl time.Duration) (*models.BearerToken, error) {
	if !owner.Kind.Valid() || owner.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid token owner", models.ErrBadRequest)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	token := &models.BearerToken{
		ID:           uuid.New(),
		Owner:        owner,
		ExpiryWindow: models.NewWindow(s.now(), ttl),
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	s.logger.Info("bearer token generated",
		slog.String("token_id", token.ID.String()),
		slog.String("owner_kind", string(owner.Kind)),
		slog.String("owner_id", owner.ID.String()),
	)
	return token, nil
}

// Sign returns the compact signed wire form of a stored token.
func (s *TokenService) Sign(token *models.BearerToken) (string, error) {
	return s.signer.Sign(s.signer.Claims(*token))
}

// VerifyAndDecode checks a compact token's signature and expiry.
func (s *TokenService) VerifyAndDecode(tokenString string) (*jwt.RegisteredClaims, error) {
	return s.signer.VerifyAndDecode(tokenString)
}

// Lookup resolves the stored record named by the claims' jti. A token
// already deleted by cleanup yields models.ErrNotFound.
func (s *TokenService) Lookup(ctx context.Context, claims *jwt.RegisteredClaims) (*models.BearerToken, error) {
	id, err := auth.TokenID(claims)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Get returns the stored record with the given identifier.
func (s *TokenService) Get(ctx context.Context, id uuid.UUID) (*models.BearerToken, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve verifies a compact token and returns its stored record.
func (s *TokenService) Resolve(ctx context.Context, tokenString string) (*models.BearerToken, error) {
	claims, err := s.VerifyAndDecode(tokenString)
	if err != nil {
		return nil, err
	}
	return s.Lookup(ctx, claims)
}

// Revoke collapses the token's window to now and persists it. The
// record's in-memory window is updated as well.
func (s *TokenService) Revoke(ctx context.Context, token *models.BearerToken) error {
	token.ExpiryWindow = token.Revoke(s.now())
	if err := s.repo.UpdateWindow(ctx, token.ID, token.ExpiryWindow); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.logger.Info("bearer token revoked", slog.String("token_id", token.ID.String()))
	return nil
}

// RevokeAll revokes every stored token in the selection with one
// set-wide update and returns the number affected.
func (s *TokenService) RevokeAll(ctx context.Context, sel models.TokenSelection) (int64, error) {
	count, err := s.repo.RevokeAll(ctx, sel, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke selection: %w", err)
	}

	if count > 0 {
		s.logger.Info("bearer tokens revoked",
			slog.Int64("count", count),
			slog.String("owner_kind", string(sel.OwnerKind)),
		)
	}
	return count, nil
}

// Expired returns the tokens in the selection whose expiry has passed.
func (s *TokenService) Expired(ctx context.Context, sel models.TokenSelection) ([]*models.BearerToken, error) {
	return s.repo.Expired(ctx, sel, s.now())
}

// Cleanup deletes the expired tokens in the selection. This is garbage
// collection, not revocation: live tokens are never touched.
func (s *TokenService) Cleanup(ctx context.Context, sel models.TokenSelection) (int64, error) {
	count, err := s.repo.Cleanup(ctx, sel, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup tokens: %w", err)
	}
	return count, nil
}
