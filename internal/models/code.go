package models

import (
	"github.com/google/uuid"
)

// OneTimeCode is a stored credential record for short-lived codes sent
// to a recipient. Its text code and numeric OTP are derived from the
// identifier and issue time, never stored. Codes are invalidated by
// expiry only; there is no revoke path.
type OneTimeCode struct {
	ID        uuid.UUID `json:"id"`
	Purpose   string    `json:"purpose"`
	Recipient string    `json:"recipient"`
	ExpiryWindow
}

// CodeSelection filters stored one-time codes for bulk operations.
// Zero-value fields are not applied.
type CodeSelection struct {
	Purpose   string
	Recipient string
}
