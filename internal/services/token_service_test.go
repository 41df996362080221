package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchboxhq/launchbox/internal/auth"
	"github.com/launchboxhq/launchbox/internal/models"
)

const testSecret = "test-signing-secret-32-chars-min"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTokenService(repo *MemoryBearerTokenRepository) *TokenService {
	signer := auth.NewTokenSigner(testSecret, 0)
	return NewTokenService(repo, signer, time.Hour, testLogger())
}

func appOwner() models.OwnerRef {
	return models.OwnerRef{Kind: models.OwnerKindApplication, ID: uuid.New()}
}

func TestTokenService_GenerateSignVerify(t *testing.T) {
	repo := NewMemoryBearerTokenRepository()
	svc := newTokenService(repo)
	ctx := context.Background()

	token, err := svc.Generate(ctx, appOwner(), 0)
	require.NoError(t, err)
	assert.Equal(t, token.IssuedAt.Add(time.Hour), token.ExpiresAt, "default ttl applies")

	signed, err := svc.Sign(token)
	require.NoError(t, err)

	claims, err := svc.VerifyAndDecode(signed)
	require.NoError(t, err)
	assert.Equal(t, token.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, token.IssuedAt.Unix(), claims.IssuedAt.Unix())

	stored, err := svc.Lookup(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, token.ID, stored.ID)
	assert.Equal(t, token.Owner, stored.Owner)
}

func TestTokenService_VerifyAfterExpiry(t *testing.T) {
	repo := NewMemoryBearerTokenRepository()
	svc := newTokenService(repo)

	// Issue in the simulated past so the token is already beyond its
	// one-hour window at real verification time.
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.Generate(context.Background(), appOwner(), time.Hour)
	require.NoError(t, err)

	signed, err := svc.Sign(token)
	require.NoError(t, err)

	_, err = svc.VerifyAndDecode(signed)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestTokenService_GenerateInvalidOwner(t *testing.T) {
	svc := newTokenService(NewMemoryBearerTokenRepository())
	ctx := context.Background()

	_, err := svc.Generate(ctx, models.OwnerRef{Kind: "something", ID: uuid.New()}, 0)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.Generate(ctx, models.OwnerRef{Kind: models.OwnerKindService}, 0)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestTokenService_LookupAfterCleanup(t *testing.T) {
	repo := NewMemoryBearerTokenRepository()
	svc := newTokenService(repo)
	ctx := context.Background()

	token, err := svc.Generate(ctx, appOwner(), time.Hour)
	require.NoError(t, err)

	signed, err := svc.Sign(token)
	require.NoError(t, err)
	claims, err := svc.VerifyAndDecode(signed)
	require.NoError(t, err)

	// Simulate cleanup having deleted the record.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Cleanup(ctx, models.TokenSelection{})
	require.NoError(t, err)

	_, err = svc.Lookup(ctx, claims)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTokenService_Revoke(t *testing.T) {
	repo := NewMemoryBearerTokenRepository()
	svc := newTokenService(repo)
	ctx := context.Background()

	token, err := svc.Generate(ctx, appOwner(), time.Hour)
	require.NoError(t, err)
	require.False(t, token.IsExpired())

	require.NoError(t, svc.Revoke(ctx, token))

	stored, err := repo.GetByID(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, stored.ExpiredAt(time.Now().Add(time.Millisecond)))
	assert.Equal(t, token.IssuedAt, stored.IssuedAt)

	// Revoking again keeps it expired.
	require.NoError(t, svc.Revoke(ctx, token))
	stored, err = repo.GetByID(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, stored.ExpiredAt(time.Now().Add(time.Millisecond)))
}

func TestTokenService_RevokeAll(t *testing.T) {
	repo := NewMemoryBearerTokenRepository()
	svc := newTokenService(repo)
	ctx := context.Background()

	owner := appOwner()
	other := models.OwnerRef{Kind: models.OwnerKindService, ID: uuid.New()}

	for i := 0; i < 3; i++ {
		_, err := svc.Generate(ctx, owner, time.Hour)
		require.NoError(t, err)
	}
	kept, err := svc.Generate(ctx, other, time.Hour)
	require.NoError(t, err)

	count, err := svc.RevokeAll(ctx, models.TokenSelection{OwnerKind: owner.Kind, OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// The unrelated owner's token stays live.
	stored, err := repo.GetByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsExpired())

	expired, err := svc.Expired(ctx, models.TokenSelection{OwnerKind: owner.Kind, OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Len(t, expired, 3)
}

func TestTokenService_RevokeAll_EmptySelection(t *testing.T) {
	svc := newTokenService(NewMemoryBearerTokenRepository())

	count, err := svc.RevokeAll(context.Background(), models.TokenSelection{
		OwnerKind: models.OwnerKindApplication,
		OwnerID:   uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTokenService_Cleanup_DeletesOnlyExpired(t *testing.T) {
	repo := NewMemoryBearerTokenRepository()
	svc := newTokenService(repo)
	ctx := context.Background()

	base := time.Now()
	svc.now = func() time.Time { return base.Add(-2 * time.Hour) }
	for i := 0; i < 2; i++ {
		_, err := svc.Generate(ctx, appOwner(), time.Hour)
		require.NoError(t, err)
	}

	svc.now = func() time.Time { return base }
	live, err := svc.Generate(ctx, appOwner(), time.Hour)
	require.NoError(t, err)

	count, err := svc.Cleanup(ctx, models.TokenSelection{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 1, repo.Len())

	stored, err := repo.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsExpired())
}
