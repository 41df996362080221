package models

import "time"

// ExpiryWindow is the issued/expires timestamp pair shared by every
// credential kind. It is a plain value; callers supply the clock so that
// expiry logic stays deterministic under test.
type ExpiryWindow struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewWindow returns a window issued at now and expiring after ttl.
func NewWindow(now time.Time, ttl time.Duration) ExpiryWindow {
	return ExpiryWindow{
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// ExpiredAt reports whether the window has expired as of the given
// instant. The boundary is exclusive: at == ExpiresAt is not yet expired.
func (w ExpiryWindow) ExpiredAt(at time.Time) bool {
	return at.After(w.ExpiresAt)
}

// IsExpired reports whether the window has expired as of now.
func (w ExpiryWindow) IsExpired() bool {
	return w.ExpiredAt(time.Now())
}

// Refresh re-issues both timestamps exactly as NewWindow does; it does
// not extend from the old expiry.
func (w ExpiryWindow) Refresh(now time.Time, ttl time.Duration) ExpiryWindow {
	return NewWindow(now, ttl)
}

// Revoke collapses the expiry to now, leaving the issue time untouched.
// Revoking an already-expired window keeps it expired.
func (w ExpiryWindow) Revoke(now time.Time) ExpiryWindow {
	return ExpiryWindow{
		IssuedAt:  w.IssuedAt,
		ExpiresAt: now,
	}
}
