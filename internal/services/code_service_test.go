package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchboxhq/launchbox/internal/auth"
	"github.com/launchboxhq/launchbox/internal/models"
)

func newCodeService(repo *MemoryOneTimeCodeRepository, email EmailSender) *CodeService {
	return NewCodeService(repo, auth.NewOTPManager(0), email, 10*time.Minute, testLogger())
}

func TestCodeService_Generate(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	svc := newCodeService(repo, nil)
	ctx := context.Background()

	code, err := svc.Generate(ctx, "login", "user@example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, code.IssuedAt.Add(10*time.Minute), code.ExpiresAt, "default ttl applies")
	assert.Len(t, svc.Code(code), 26)

	passcode, err := svc.OTP(code)
	require.NoError(t, err)
	assert.Len(t, passcode, 6)
}

func TestCodeService_Generate_MissingAttrs(t *testing.T) {
	svc := newCodeService(NewMemoryOneTimeCodeRepository(), nil)
	ctx := context.Background()

	_, err := svc.Generate(ctx, "", "user@example.com", 0)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.Generate(ctx, "login", "", 0)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestCodeService_RefreshOrGenerate_KeepsIdentity(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	svc := newCodeService(repo, nil)
	ctx := context.Background()

	first, err := svc.RefreshOrGenerate(ctx, "login", "user@example.com", time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return first.IssuedAt.Add(30 * time.Second) }
	second, err := svc.RefreshOrGenerate(ctx, "login", "user@example.com", time.Minute)
	require.NoError(t, err)

	// Same record and same code; only the window moved.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, svc.Code(first), svc.Code(second))
	assert.True(t, second.IssuedAt.After(first.IssuedAt))
	assert.Equal(t, 1, repo.Len())

	// The OTP is keyed to issued_at, so it may change across a refresh
	// even though the code does not; both remain six digits.
	firstOTP, err := svc.OTP(first)
	require.NoError(t, err)
	secondOTP, err := svc.OTP(second)
	require.NoError(t, err)
	assert.Len(t, firstOTP, 6)
	assert.Len(t, secondOTP, 6)
}

func TestCodeService_RefreshOrGenerate_DistinctPairs(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	svc := newCodeService(repo, nil)
	ctx := context.Background()

	a, err := svc.RefreshOrGenerate(ctx, "login", "a@example.com", 0)
	require.NoError(t, err)
	b, err := svc.RefreshOrGenerate(ctx, "login", "b@example.com", 0)
	require.NoError(t, err)
	c, err := svc.RefreshOrGenerate(ctx, "recovery", "a@example.com", 0)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, 3, repo.Len())
}

func TestCodeService_RefreshOrGenerate_Concurrent(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	svc := newCodeService(repo, nil)
	ctx := context.Background()

	const callers = 32
	ids := make([]string, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := svc.RefreshOrGenerate(ctx, "login", "user@example.com", time.Minute)
			if assert.NoError(t, err) {
				ids[i] = code.ID.String()
			}
		}(i)
	}
	wg.Wait()

	// All callers converge on a single stored record.
	assert.Equal(t, 1, repo.Len())
	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestCodeService_ValidateCode(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	svc := newCodeService(repo, nil)
	ctx := context.Background()

	code, err := svc.Generate(ctx, "login", "user@example.com", 10*time.Minute)
	require.NoError(t, err)
	correct := svc.Code(code)

	ok, err := svc.ValidateCode(ctx, "login", "user@example.com", correct)
	require.NoError(t, err)
	assert.True(t, ok)

	altered := "a" + correct[1:]
	if altered == correct {
		altered = "b" + correct[1:]
	}
	ok, err = svc.ValidateCode(ctx, "login", "user@example.com", altered)
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown pair collapses to false rather than an error.
	ok, err = svc.ValidateCode(ctx, "login", "stranger@example.com", correct)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCodeService_ValidateCode_Expired(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	otp := auth.NewOTPManager(0)
	svc := NewCodeService(repo, otp, nil, 10*time.Minute, testLogger())
	ctx := context.Background()

	code, err := svc.Generate(ctx, "login", "user@example.com", 10*time.Minute)
	require.NoError(t, err)

	// Past the window the correct code no longer validates.
	otp.SetClock(func() time.Time { return code.ExpiresAt.Add(time.Second) })
	ok, err := svc.ValidateCode(ctx, "login", "user@example.com", svc.Code(code))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCodeService_ValidateOTP(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	svc := newCodeService(repo, nil)
	ctx := context.Background()

	code, err := svc.Generate(ctx, "login", "user@example.com", 10*time.Minute)
	require.NoError(t, err)

	passcode, err := svc.OTP(code)
	require.NoError(t, err)

	ok, err := svc.ValidateOTP(ctx, "login", "user@example.com", passcode)
	require.NoError(t, err)
	assert.True(t, ok)

	wrong := "000000"
	if wrong == passcode {
		wrong = "000001"
	}
	ok, err = svc.ValidateOTP(ctx, "login", "user@example.com", wrong)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCodeService_Deliver(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	sender := &MockEmailSender{}
	svc := newCodeService(repo, sender)
	ctx := context.Background()

	code, err := svc.Generate(ctx, "login", "user@example.com", 10*time.Minute)
	require.NoError(t, err)
	require.NoError(t, svc.Deliver(ctx, code))

	require.Len(t, sender.Sent, 1)
	sent := sender.Sent[0]
	assert.Equal(t, "user@example.com", sent.Recipient)
	assert.Equal(t, svc.Code(code), sent.Code)
	assert.Len(t, sent.OTP, 6)
	assert.Equal(t, code.ExpiresAt, sent.ExpiresAt)
}

func TestCodeService_Cleanup_DeletesOnlyExpired(t *testing.T) {
	repo := NewMemoryOneTimeCodeRepository()
	svc := newCodeService(repo, nil)
	ctx := context.Background()

	base := time.Now()
	svc.now = func() time.Time { return base.Add(-time.Hour) }
	_, err := svc.Generate(ctx, "login", "old@example.com", time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return base }
	_, err = svc.Generate(ctx, "login", "new@example.com", time.Hour)
	require.NoError(t, err)

	count, err := svc.Cleanup(ctx, models.CodeSelection{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, repo.Len())
}
