package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchboxhq/launchbox/internal/models"
	"github.com/launchboxhq/launchbox/pkg/shortid"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func newCode(issuedAt time.Time, ttl time.Duration) models.OneTimeCode {
	return models.OneTimeCode{
		ID:           uuid.New(),
		Purpose:      "login",
		Recipient:    "user@example.com",
		ExpiryWindow: models.NewWindow(issuedAt, ttl),
	}
}

// frozen pins the manager's clock for deterministic expiry checks.
func frozen(m *OTPManager, at time.Time) {
	m.now = func() time.Time { return at }
}

func TestOTPManager_Code(t *testing.T) {
	m := NewOTPManager(0)
	code := newCode(time.Now(), 10*time.Minute)

	assert.Equal(t, shortid.Encode(code.ID), m.Code(code))
	assert.Len(t, m.Code(code), shortid.EncodedLen)
}

func TestOTPManager_OTP_Format(t *testing.T) {
	m := NewOTPManager(0)
	code := newCode(time.Now(), 10*time.Minute)

	passcode, err := m.OTP(code)
	require.NoError(t, err)
	assert.Regexp(t, sixDigits, passcode)
}

func TestOTPManager_OTP_Deterministic(t *testing.T) {
	m := NewOTPManager(0)
	code := newCode(time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC), 10*time.Minute)

	first, err := m.OTP(code)
	require.NoError(t, err)
	second, err := m.OTP(code)
	require.NoError(t, err)

	// Pure function of (id, issued_at): repeated calls agree regardless
	// of the wall clock.
	assert.Equal(t, first, second)
}

func TestOTPManager_OTP_ChangesWithIssueTime(t *testing.T) {
	m := NewOTPManager(0)
	issued := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	code := newCode(issued, 10*time.Minute)

	// A refresh moves issued_at to a new time step, so the OTP moves
	// too while the text code stays put.
	seen := map[string]bool{}
	for step := 0; step < 4; step++ {
		refreshed := code
		refreshed.ExpiryWindow = code.Refresh(issued.Add(time.Duration(step)*otpPeriod), 10*time.Minute)

		passcode, err := m.OTP(refreshed)
		require.NoError(t, err)
		seen[passcode] = true

		assert.Equal(t, m.Code(code), m.Code(refreshed))
	}
	assert.Greater(t, len(seen), 1)
}

func TestOTPManager_ValidateCode(t *testing.T) {
	m := NewOTPManager(0)
	issued := time.Now()
	code := newCode(issued, 10*time.Minute)
	frozen(m, issued.Add(time.Minute))

	correct := m.Code(code)
	altered := "a" + correct[1:]
	if altered == correct {
		altered = "b" + correct[1:]
	}

	assert.True(t, m.ValidateCode(code, correct))
	assert.False(t, m.ValidateCode(code, altered))
	assert.False(t, m.ValidateCode(code, ""))
}

func TestOTPManager_ValidateCode_Expired(t *testing.T) {
	m := NewOTPManager(0)
	issued := time.Now()
	code := newCode(issued, 10*time.Minute)
	frozen(m, issued.Add(11*time.Minute))

	// The correct code is still refused once the window has lapsed.
	assert.False(t, m.ValidateCode(code, m.Code(code)))
}

func TestOTPManager_ValidateCode_Leeway(t *testing.T) {
	m := NewOTPManager(time.Minute)
	issued := time.Now()
	code := newCode(issued, 10*time.Minute)
	frozen(m, issued.Add(10*time.Minute+30*time.Second))

	assert.True(t, m.ValidateCode(code, m.Code(code)))
}

func TestOTPManager_ValidateOTP(t *testing.T) {
	m := NewOTPManager(0)
	issued := time.Now()
	code := newCode(issued, 10*time.Minute)
	frozen(m, issued.Add(time.Minute))

	passcode, err := m.OTP(code)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == passcode {
		wrong = "000001"
	}

	assert.True(t, m.ValidateOTP(code, passcode))
	assert.False(t, m.ValidateOTP(code, wrong))

	frozen(m, issued.Add(time.Hour))
	assert.False(t, m.ValidateOTP(code, passcode))
}
