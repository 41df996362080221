// Package shortid converts 128-bit identifiers to and from a compact,
// URL-safe text form: unpadded lowercase base32, always 26 characters.
package shortid

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EncodedLen is the length of every encoded short id (16 bytes of UUID
// in base32 without padding).
const EncodedLen = 26

// ErrDecode indicates a malformed short id (wrong length or alphabet).
var ErrDecode = errors.New("shortid: malformed short id")

// Encode returns the short id for the given identifier.
func Encode(id uuid.UUID) string {
	encoded := base32.StdEncoding.EncodeToString(id[:])
	return strings.ToLower(strings.TrimRight(encoded, "="))
}

// Decode parses a short id back into the identifier it encodes.
// It returns ErrDecode when the input does not decode to exactly 16 bytes.
func Decode(s string) (uuid.UUID, error) {
	// Restore the padding stripped by Encode before decoding.
	padded := strings.ToUpper(s)
	if rem := len(padded) % 8; rem != 0 {
		padded += strings.Repeat("=", 8-rem)
	}

	raw, err := base32.StdEncoding.DecodeString(padded)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) != 16 {
		return uuid.Nil, fmt.Errorf("%w: decoded %d bytes, want 16", ErrDecode, len(raw))
	}

	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return id, nil
}
