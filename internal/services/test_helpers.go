package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchboxhq/launchbox/internal/models"
)

// MemoryBearerTokenRepository implements BearerTokenRepository in
// memory for testing. Bulk operations apply under one lock to mirror
// the set-wide atomicity of the SQL statements.
type MemoryBearerTokenRepository struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]models.BearerToken
}

func NewMemoryBearerTokenRepository() *MemoryBearerTokenRepository {
	return &MemoryBearerTokenRepository{tokens: make(map[uuid.UUID]models.BearerToken)}
}

func (m *MemoryBearerTokenRepository) Create(ctx context.Context, token *models.BearerToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tokens[token.ID]; exists {
		return models.ErrConflict
	}
	m.tokens[token.ID] = *token
	return nil
}

func (m *MemoryBearerTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BearerToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &token, nil
}

func (m *MemoryBearerTokenRepository) UpdateWindow(ctx context.Context, id uuid.UUID, window models.ExpiryWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok {
		return models.ErrNotFound
	}
	token.ExpiryWindow = window
	m.tokens[id] = token
	return nil
}

func (m *MemoryBearerTokenRepository) matches(token models.BearerToken, sel models.TokenSelection) bool {
	if sel.OwnerKind != "" && token.Owner.Kind != sel.OwnerKind {
		return false
	}
	if sel.OwnerID != uuid.Nil && token.Owner.ID != sel.OwnerID {
		return false
	}
	return true
}

func (m *MemoryBearerTokenRepository) RevokeAll(ctx context.Context, sel models.TokenSelection, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, token := range m.tokens {
		if m.matches(token, sel) {
			token.ExpiryWindow = token.Revoke(at)
			m.tokens[id] = token
			count++
		}
	}
	return count, nil
}

func (m *MemoryBearerTokenRepository) Expired(ctx context.Context, sel models.TokenSelection, at time.Time) ([]*models.BearerToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expired := make([]*models.BearerToken, 0)
	for _, token := range m.tokens {
		token := token
		if m.matches(token, sel) && !token.ExpiresAt.After(at) {
			expired = append(expired, &token)
		}
	}
	return expired, nil
}

func (m *MemoryBearerTokenRepository) Cleanup(ctx context.Context, sel models.TokenSelection, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, token := range m.tokens {
		if m.matches(token, sel) && !token.ExpiresAt.After(at) {
			delete(m.tokens, id)
			count++
		}
	}
	return count, nil
}

// Len reports the number of stored tokens.
func (m *MemoryBearerTokenRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// MemoryOneTimeCodeRepository implements OneTimeCodeRepository in
// memory. Upsert holds the lock for the whole find-or-create, matching
// the atomicity of the SQL ON CONFLICT upsert.
type MemoryOneTimeCodeRepository struct {
	mu    sync.Mutex
	codes map[uuid.UUID]models.OneTimeCode
}

func NewMemoryOneTimeCodeRepository() *MemoryOneTimeCodeRepository {
	return &MemoryOneTimeCodeRepository{codes: make(map[uuid.UUID]models.OneTimeCode)}
}

func (m *MemoryOneTimeCodeRepository) Create(ctx context.Context, code *models.OneTimeCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.codes {
		if existing.Purpose == code.Purpose && existing.Recipient == code.Recipient {
			return models.ErrConflict
		}
	}
	m.codes[code.ID] = *code
	return nil
}

func (m *MemoryOneTimeCodeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &code, nil
}

func (m *MemoryOneTimeCodeRepository) FindOne(ctx context.Context, purpose, recipient string) (*models.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findOneLocked(purpose, recipient)
}

func (m *MemoryOneTimeCodeRepository) findOneLocked(purpose, recipient string) (*models.OneTimeCode, error) {
	var found *models.OneTimeCode
	for _, code := range m.codes {
		code := code
		if code.Purpose == purpose && code.Recipient == recipient {
			if found != nil {
				return nil, models.ErrAmbiguousMatch
			}
			found = &code
		}
	}
	if found == nil {
		return nil, models.ErrNotFound
	}
	return found, nil
}

func (m *MemoryOneTimeCodeRepository) Upsert(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.findOneLocked(code.Purpose, code.Recipient)
	switch err {
	case nil:
		existing.ExpiryWindow = code.ExpiryWindow
		m.codes[existing.ID] = *existing
		return existing, nil
	case models.ErrNotFound:
		m.codes[code.ID] = *code
		stored := *code
		return &stored, nil
	default:
		return nil, err
	}
}

func (m *MemoryOneTimeCodeRepository) matches(code models.OneTimeCode, sel models.CodeSelection) bool {
	if sel.Purpose != "" && code.Purpose != sel.Purpose {
		return false
	}
	if sel.Recipient != "" && code.Recipient != sel.Recipient {
		return false
	}
	return true
}

func (m *MemoryOneTimeCodeRepository) Expired(ctx context.Context, sel models.CodeSelection, at time.Time) ([]*models.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expired := make([]*models.OneTimeCode, 0)
	for _, code := range m.codes {
		code := code
		if m.matches(code, sel) && !code.ExpiresAt.After(at) {
			expired = append(expired, &code)
		}
	}
	return expired, nil
}

func (m *MemoryOneTimeCodeRepository) Cleanup(ctx context.Context, sel models.CodeSelection, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, code := range m.codes {
		if m.matches(code, sel) && !code.ExpiresAt.After(at) {
			delete(m.codes, id)
			count++
		}
	}
	return count, nil
}

// Len reports the number of stored codes.
func (m *MemoryOneTimeCodeRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

// MockEmailSender records deliveries for testing.
type MockEmailSender struct {
	mu   sync.Mutex
	Sent []CodeDelivery
	Err  error
}

func (m *MockEmailSender) SendOneTimeCode(ctx context.Context, delivery CodeDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, delivery)
	return nil
}
