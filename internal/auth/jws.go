package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/launchboxhq/launchbox/internal/models"
)

// TokenSigner produces and verifies the signed wire form of bearer
// tokens: a compact HS256 JWS carrying exp, iat and jti. The signing
// secret is process-wide configuration injected at construction; there
// is no key versioning, so rotating the secret invalidates every token
// issued before the rotation.
type TokenSigner struct {
	secret []byte
	leeway time.Duration
}

// NewTokenSigner creates a TokenSigner. leeway is the clock-skew
// tolerance applied during verification (zero disables it).
func NewTokenSigner(secret string, leeway time.Duration) *TokenSigner {
	return &TokenSigner{
		secret: []byte(secret),
		leeway: leeway,
	}
}

// Claims builds the wire payload for a stored token. The jti claim
// carries the raw identifier as 32 hex characters, not the short id.
func (s *TokenSigner) Claims(token models.BearerToken) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        hex.EncodeToString(token.ID[:]),
		ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
	}
}

// Sign produces the compact signed form of the given claims.
func (s *TokenSigner) Sign(claims jwt.RegisteredClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyAndDecode checks the signature and expiry of a compact token
// and returns its claims. It returns models.ErrTokenExpired when the
// token is past its window and models.ErrSignatureInvalid for any other
// verification failure, including algorithm mismatch.
func (s *TokenSigner) VerifyAndDecode(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(s.leeway))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", models.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrSignatureInvalid, err)
	}
	if !token.Valid {
		return nil, models.ErrSignatureInvalid
	}

	return claims, nil
}

// TokenID recovers the stored record identifier from the jti claim.
func TokenID(claims *jwt.RegisteredClaims) (uuid.UUID, error) {
	raw, err := hex.DecodeString(claims.ID)
	if err != nil || len(raw) != 16 {
		return uuid.Nil, fmt.Errorf("%w: malformed jti claim", models.ErrSignatureInvalid)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed jti claim", models.ErrSignatureInvalid)
	}
	return id, nil
}
