package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/launchboxhq/launchbox/internal/models"
	"github.com/launchboxhq/launchbox/pkg/shortid"
)

const (
	otpPeriod = 30 * time.Second
	otpDigits = otp.DigitsSix
)

// OTPManager derives and validates the two secrets of a one-time code
// record: the long base32 code (suitable for links) and the six-digit
// OTP. Both are pure functions of the record's identifier and issue
// time, so nothing secret is ever stored.
type OTPManager struct {
	leeway time.Duration
	now    func() time.Time
}

// NewOTPManager creates an OTPManager. leeway is the clock-skew
// tolerance applied to expiry checks (zero disables it).
func NewOTPManager(leeway time.Duration) *OTPManager {
	return &OTPManager{
		leeway: leeway,
		now:    time.Now,
	}
}

// SetClock overrides the manager's clock. Intended for tests that need
// deterministic expiry checks.
func (m *OTPManager) SetClock(now func() time.Time) {
	m.now = now
}

// Code returns the record's text code: the short id of its identifier.
func (m *OTPManager) Code(code models.OneTimeCode) string {
	return shortid.Encode(code.ID)
}

// OTP returns the record's six-digit one-time password. The TOTP time
// step is anchored at issued_at rather than the current time, so the
// value is stable for the lifetime of the record.
func (m *OTPManager) OTP(code models.OneTimeCode) (string, error) {
	secret := strings.ToUpper(m.Code(code))

	passcode, err := totp.GenerateCodeCustom(secret, code.IssuedAt, totp.ValidateOpts{
		Period:    uint(otpPeriod / time.Second),
		Skew:      0,
		Digits:    otpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to derive otp: %w", err)
	}
	return passcode, nil
}

// ValidateCode reports whether input matches the record's code and the
// record is still live. All failure modes collapse to false; this is a
// user-facing boolean check by design.
func (m *OTPManager) ValidateCode(code models.OneTimeCode, input string) bool {
	if m.expired(code) {
		return false
	}
	return constantTimeEqual(m.Code(code), input)
}

// ValidateOTP reports whether input matches the record's six-digit OTP
// and the record is still live.
func (m *OTPManager) ValidateOTP(code models.OneTimeCode, input string) bool {
	if m.expired(code) {
		return false
	}
	expected, err := m.OTP(code)
	if err != nil {
		return false
	}
	return constantTimeEqual(expected, input)
}

func (m *OTPManager) expired(code models.OneTimeCode) bool {
	return code.ExpiredAt(m.now().Add(-m.leeway))
}

// constantTimeEqual compares two strings without leaking where they
// diverge through timing.
func constantTimeEqual(expected, input string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(input)) == 1
}
