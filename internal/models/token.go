package models

import (
	"strings"

	"github.com/google/uuid"
)

// OwnerKind names the resource kind a bearer token is scoped to.
type OwnerKind string

const (
	OwnerKindApplication OwnerKind = "application"
	OwnerKindService     OwnerKind = "service"
)

// Valid reports whether the kind is one of the known owner kinds.
func (k OwnerKind) Valid() bool {
	return k == OwnerKindApplication || k == OwnerKindService
}

// OwnerRef identifies the resource a bearer token belongs to.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// BearerToken is a stored, time-bounded credential record. The signed
// wire form is derived from it on demand; the record itself never holds
// the signed string.
type BearerToken struct {
	ID    uuid.UUID `json:"id"`
	Owner OwnerRef  `json:"owner"`
	ExpiryWindow
}

// TokenSelection filters stored tokens for bulk operations. Zero-value
// fields are not applied, so the zero selection matches every token.
type TokenSelection struct {
	OwnerKind OwnerKind
	OwnerID   uuid.UUID
}

// MaskToken returns a display-safe form of a signed token: the first
// eight characters followed by stars.
func MaskToken(jws string) string {
	if len(jws) <= 8 {
		return strings.Repeat("*", len(jws))
	}
	return jws[:8] + strings.Repeat("*", len(jws)-8)
}
