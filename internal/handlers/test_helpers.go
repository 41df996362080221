package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/launchboxhq/launchbox/internal/models"
	pkghttp "github.com/launchboxhq/launchbox/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockTokenService implements TokenServiceInterface for testing
type MockTokenService struct {
	GenerateFunc        func(ctx context.Context, owner models.OwnerRef, ttl time.Duration) (*models.BearerToken, error)
	SignFunc            func(token *models.BearerToken) (string, error)
	VerifyAndDecodeFunc func(tokenString string) (*jwt.RegisteredClaims, error)
	GetFunc             func(ctx context.Context, id uuid.UUID) (*models.BearerToken, error)
	LookupFunc          func(ctx context.Context, claims *jwt.RegisteredClaims) (*models.BearerToken, error)
	RevokeFunc          func(ctx context.Context, token *models.BearerToken) error
	RevokeAllFunc       func(ctx context.Context, sel models.TokenSelection) (int64, error)
	ExpiredFunc         func(ctx context.Context, sel models.TokenSelection) ([]*models.BearerToken, error)
	CleanupFunc         func(ctx context.Context, sel models.TokenSelection) (int64, error)
}

func (m *MockTokenService) Generate(ctx context.Context, owner models.OwnerRef, ttl time.Duration) (*models.BearerToken, error) {
	if m.GenerateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.GenerateFunc(ctx, owner, ttl)
}

func (m *MockTokenService) Sign(token *models.BearerToken) (string, error) {
	if m.SignFunc == nil {
		return "signed-token", nil
	}
	return m.SignFunc(token)
}

func (m *MockTokenService) VerifyAndDecode(tokenString string) (*jwt.RegisteredClaims, error) {
	if m.VerifyAndDecodeFunc == nil {
		return nil, models.ErrSignatureInvalid
	}
	return m.VerifyAndDecodeFunc(tokenString)
}

func (m *MockTokenService) Get(ctx context.Context, id uuid.UUID) (*models.BearerToken, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockTokenService) Lookup(ctx context.Context, claims *jwt.RegisteredClaims) (*models.BearerToken, error) {
	if m.LookupFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.LookupFunc(ctx, claims)
}

func (m *MockTokenService) Revoke(ctx context.Context, token *models.BearerToken) error {
	if m.RevokeFunc == nil {
		return nil
	}
	return m.RevokeFunc(ctx, token)
}

func (m *MockTokenService) RevokeAll(ctx context.Context, sel models.TokenSelection) (int64, error) {
	if m.RevokeAllFunc == nil {
		return 0, nil
	}
	return m.RevokeAllFunc(ctx, sel)
}

func (m *MockTokenService) Expired(ctx context.Context, sel models.TokenSelection) ([]*models.BearerToken, error) {
	if m.ExpiredFunc == nil {
		return nil, nil
	}
	return m.ExpiredFunc(ctx, sel)
}

func (m *MockTokenService) Cleanup(ctx context.Context, sel models.TokenSelection) (int64, error) {
	if m.CleanupFunc == nil {
		return 0, nil
	}
	return m.CleanupFunc(ctx, sel)
}

// MockCodeService implements CodeServiceInterface for testing
type MockCodeService struct {
	RefreshOrGenerateFunc func(ctx context.Context, purpose, recipient string, ttl time.Duration) (*models.OneTimeCode, error)
	DeliverFunc           func(ctx context.Context, code *models.OneTimeCode) error
	ValidateCodeFunc      func(ctx context.Context, purpose, recipient, input string) (bool, error)
	ValidateOTPFunc       func(ctx context.Context, purpose, recipient, input string) (bool, error)
	ConfirmByCodeFunc     func(ctx context.Context, purpose, input string) (bool, error)
	CleanupFunc           func(ctx context.Context, sel models.CodeSelection) (int64, error)
}

func (m *MockCodeService) RefreshOrGenerate(ctx context.Context, purpose, recipient string, ttl time.Duration) (*models.OneTimeCode, error) {
	if m.RefreshOrGenerateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RefreshOrGenerateFunc(ctx, purpose, recipient, ttl)
}

func (m *MockCodeService) Deliver(ctx context.Context, code *models.OneTimeCode) error {
	if m.DeliverFunc == nil {
		return nil
	}
	return m.DeliverFunc(ctx, code)
}

func (m *MockCodeService) ValidateCode(ctx context.Context, purpose, recipient, input string) (bool, error) {
	if m.ValidateCodeFunc == nil {
		return false, nil
	}
	return m.ValidateCodeFunc(ctx, purpose, recipient, input)
}

func (m *MockCodeService) ValidateOTP(ctx context.Context, purpose, recipient, input string) (bool, error) {
	if m.ValidateOTPFunc == nil {
		return false, nil
	}
	return m.ValidateOTPFunc(ctx, purpose, recipient, input)
}

func (m *MockCodeService) ConfirmByCode(ctx context.Context, purpose, input string) (bool, error) {
	if m.ConfirmByCodeFunc == nil {
		return false, nil
	}
	return m.ConfirmByCodeFunc(ctx, purpose, input)
}

func (m *MockCodeService) Cleanup(ctx context.Context, sel models.CodeSelection) (int64, error) {
	if m.CleanupFunc == nil {
		return 0, nil
	}
	return m.CleanupFunc(ctx, sel)
}
