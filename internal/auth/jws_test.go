package auth

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchboxhq/launchbox/internal/models"
)

const testSecret = "test-signing-secret-32-chars-min"

func newToken(issuedAt time.Time, ttl time.Duration) models.BearerToken {
	return models.BearerToken{
		ID:           uuid.New(),
		Owner:        models.OwnerRef{Kind: models.OwnerKindApplication, ID: uuid.New()},
		ExpiryWindow: models.NewWindow(issuedAt, ttl),
	}
}

func TestTokenSigner_SignAndVerify(t *testing.T) {
	signer := NewTokenSigner(testSecret, 0)
	token := newToken(time.Now(), time.Hour)

	claims := signer.Claims(token)
	assert.Equal(t, hex.EncodeToString(token.ID[:]), claims.ID)
	assert.Len(t, claims.ID, 32)

	signed, err := signer.Sign(claims)
	require.NoError(t, err)

	decoded, err := signer.VerifyAndDecode(signed)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, decoded.ID)
	assert.Equal(t, claims.ExpiresAt.Unix(), decoded.ExpiresAt.Unix())
	assert.Equal(t, claims.IssuedAt.Unix(), decoded.IssuedAt.Unix())
}

func TestTokenSigner_VerifyExpired(t *testing.T) {
	signer := NewTokenSigner(testSecret, 0)
	token := newToken(time.Now().Add(-2*time.Hour), time.Hour)

	signed, err := signer.Sign(signer.Claims(token))
	require.NoError(t, err)

	_, err = signer.VerifyAndDecode(signed)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestTokenSigner_VerifyExpired_WithinLeeway(t *testing.T) {
	// A token 30s past expiry still verifies when the configured
	// clock-skew leeway covers the gap.
	signer := NewTokenSigner(testSecret, time.Minute)
	token := newToken(time.Now().Add(-time.Hour), time.Hour-30*time.Second)

	signed, err := signer.Sign(signer.Claims(token))
	require.NoError(t, err)

	_, err = signer.VerifyAndDecode(signed)
	assert.NoError(t, err)
}

func TestTokenSigner_VerifyTampered(t *testing.T) {
	signer := NewTokenSigner(testSecret, 0)
	token := newToken(time.Now(), time.Hour)

	signed, err := signer.Sign(signer.Claims(token))
	require.NoError(t, err)

	tampered := signed + "x"
	_, err = signer.VerifyAndDecode(tampered)
	assert.ErrorIs(t, err, models.ErrSignatureInvalid)
}

func TestTokenSigner_VerifyWrongSecret(t *testing.T) {
	token := newToken(time.Now(), time.Hour)

	signed, err := NewTokenSigner(testSecret, 0).Sign(NewTokenSigner(testSecret, 0).Claims(token))
	require.NoError(t, err)

	_, err = NewTokenSigner("another-secret-of-sufficient-len", 0).VerifyAndDecode(signed)
	assert.ErrorIs(t, err, models.ErrSignatureInvalid)
}

func TestTokenSigner_VerifyGarbage(t *testing.T) {
	signer := NewTokenSigner(testSecret, 0)

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		_, err := signer.VerifyAndDecode(input)
		assert.ErrorIs(t, err, models.ErrSignatureInvalid, "input %q", input)
	}
}

func TestTokenID_RoundTrip(t *testing.T) {
	signer := NewTokenSigner(testSecret, 0)
	token := newToken(time.Now(), time.Hour)

	claims := signer.Claims(token)
	id, err := TokenID(&claims)
	require.NoError(t, err)
	assert.Equal(t, token.ID, id)
}

func TestTokenID_Malformed(t *testing.T) {
	signer := NewTokenSigner(testSecret, 0)
	token := newToken(time.Now(), time.Hour)
	claims := signer.Claims(token)

	for _, jti := range []string{"", "zz", "deadbeef", claims.ID + "00"} {
		claims.ID = jti
		_, err := TokenID(&claims)
		assert.ErrorIs(t, err, models.ErrSignatureInvalid, "jti %q", jti)
	}
}
