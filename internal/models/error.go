package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Credential verification errors. Callers react differently to each:
	// re-issue on expiry, reject on a bad signature, and log the latter
	// as a possible tampering attempt.
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")

	// ErrAmbiguousMatch means a refresh-or-generate lookup matched more
	// than one record; the matching attributes must identify exactly one.
	ErrAmbiguousMatch = errors.New("matching attributes are ambiguous")
)
