package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/launchboxhq/launchbox/internal/auth"
	"github.com/launchboxhq/launchbox/internal/models"
	"github.com/launchboxhq/launchbox/internal/repositories"
	pkglogger "github.com/launchboxhq/launchbox/pkg/logger"
	"github.com/launchboxhq/launchbox/pkg/shortid"
)

// CodeDelivery carries everything an email sender needs to deliver a
// one-time code to its recipient.
type CodeDelivery struct {
	Recipient string
	Purpose   string
	Code      string
	OTP       string
	ExpiresAt time.Time
}

// EmailSender delivers generated codes. Nil disables delivery.
type EmailSender interface {
	SendOneTimeCode(ctx context.Context, delivery CodeDelivery) error
}

// CodeService drives the one-time code lifecycle. Codes carry no stored
// secret: both the text code and the numeric OTP are derived from the
// record on demand.
type CodeService struct {
	repo       repositories.OneTimeCodeRepository
	otp        *auth.OTPManager
	email      EmailSender
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewCodeService(
	repo repositories.OneTimeCodeRepository,
	otp *auth.OTPManager,
	email EmailSender,
	defaultTTL time.Duration,
	logger *slog.Logger,
) *CodeService {
	return &CodeService{
		repo:       repo,
		otp:        otp,
		email:      email,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate creates and persists a fresh code for the (purpose,
// recipient) pair. A non-positive ttl selects the configured default.
func (s *CodeService) Generate(ctx context.Context, purpose, recipient string, ttl time.Duration) (*models.OneTimeCode, error) {
	if purpose == "" || recipient == "" {
		return nil, fmt.Errorf("%w: purpose and recipient are required", models.ErrBadRequest)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	code := &models.OneTimeCode{
		ID:           uuid.New(),
		Purpose:      purpose,
		Recipient:    recipient,
		ExpiryWindow: models.NewWindow(s.now(), ttl),
	}

	if err := s.repo.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to persist code: %w", err)
	}

	s.logger.Info("one-time code generated",
		slog.String("purpose", purpose),
		slog.String("recipient", pkglogger.SanitizedEmail(recipient)),
	)
	return code, nil
}

// RefreshOrGenerate returns the single code for the pair, re-issuing
// its window; if none exists one is created. The upsert is atomic, so
// concurrent callers for the same pair converge on one record with one
// identity and therefore one text code.
func (s *CodeService) RefreshOrGenerate(ctx context.Context, purpose, recipient string, ttl time.Duration) (*models.OneTimeCode, error) {
	if purpose == "" || recipient == "" {
		return nil, fmt.Errorf("%w: purpose and recipient are required", models.ErrBadRequest)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	candidate := &models.OneTimeCode{
		ID:           uuid.New(),
		Purpose:      purpose,
		Recipient:    recipient,
		ExpiryWindow: models.NewWindow(s.now(), ttl),
	}

	code, err := s.repo.Upsert(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh or generate code: %w", err)
	}

	s.logger.Info("one-time code issued",
		slog.String("purpose", purpose),
		slog.String("recipient", pkglogger.SanitizedEmail(recipient)),
		slog.Bool("refreshed", code.ID != candidate.ID),
	)
	return code, nil
}

// Code returns the record's long text code.
func (s *CodeService) Code(code *models.OneTimeCode) string {
	return s.otp.Code(*code)
}

// OTP returns the record's six-digit one-time password.
func (s *CodeService) OTP(code *models.OneTimeCode) (string, error) {
	return s.otp.OTP(*code)
}

// Deliver emails the code and OTP to the recipient, when delivery is
// configured.
func (s *CodeService) Deliver(ctx context.Context, code *models.OneTimeCode) error {
	if s.email == nil {
		return nil
	}

	passcode, err := s.OTP(code)
	if err != nil {
		return err
	}

	err = s.email.SendOneTimeCode(ctx, CodeDelivery{
		Recipient: code.Recipient,
		Purpose:   code.Purpose,
		Code:      s.Code(code),
		OTP:       passcode,
		ExpiresAt: code.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to deliver code: %w", err)
	}
	return nil
}

// ValidateCode checks input against the stored code for the pair. A
// missing record or any mismatch yields false; only ambiguity and
// storage failures surface as errors.
func (s *CodeService) ValidateCode(ctx context.Context, purpose, recipient, input string) (bool, error) {
	code, err := s.find(ctx, purpose, recipient)
	if err != nil || code == nil {
		return false, err
	}
	return s.otp.ValidateCode(*code, input), nil
}

// ValidateOTP checks input against the stored record's six-digit OTP.
func (s *CodeService) ValidateOTP(ctx context.Context, purpose, recipient, input string) (bool, error) {
	code, err := s.find(ctx, purpose, recipient)
	if err != nil || code == nil {
		return false, err
	}
	return s.otp.ValidateOTP(*code, input), nil
}

// ConfirmByCode validates a bare code arriving from a link, where the
// recipient is not known up front. The code itself names the record; a
// malformed or unknown code, a purpose mismatch, or a lapsed window all
// collapse to false.
func (s *CodeService) ConfirmByCode(ctx context.Context, purpose, input string) (bool, error) {
	id, err := shortid.Decode(input)
	if err != nil {
		return false, nil
	}

	code, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if code.Purpose != purpose {
		return false, nil
	}
	return s.otp.ValidateCode(*code, input), nil
}

func (s *CodeService) find(ctx context.Context, purpose, recipient string) (*models.OneTimeCode, error) {
	code, err := s.repo.FindOne(ctx, purpose, recipient)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return code, nil
}

// Expired returns the codes in the selection whose expiry has passed.
func (s *CodeService) Expired(ctx context.Context, sel models.CodeSelection) ([]*models.OneTimeCode, error) {
	return s.repo.Expired(ctx, sel, s.now())
}

// Cleanup deletes the expired codes in the selection.
func (s *CodeService) Cleanup(ctx context.Context, sel models.CodeSelection) (int64, error) {
	count, err := s.repo.Cleanup(ctx, sel, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup codes: %w", err)
	}
	return count, nil
}
