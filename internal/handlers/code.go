package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/launchboxhq/launchbox/internal/models"
	pkghttp "github.com/launchboxhq/launchbox/pkg/http"
	pkglogger "github.com/launchboxhq/launchbox/pkg/logger"
)

// CodeServiceInterface is the one-time code surface the handler uses.
type CodeServiceInterface interface {
	RefreshOrGenerate(ctx context.Context, purpose, recipient string, ttl time.Duration) (*models.OneTimeCode, error)
	Deliver(ctx context.Context, code *models.OneTimeCode) error
	ValidateCode(ctx context.Context, purpose, recipient, input string) (bool, error)
	ValidateOTP(ctx context.Context, purpose, recipient, input string) (bool, error)
	ConfirmByCode(ctx context.Context, purpose, input string) (bool, error)
	Cleanup(ctx context.Context, sel models.CodeSelection) (int64, error)
}

// CodeHandler handles one-time code HTTP requests.
type CodeHandler struct {
	service  CodeServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

func NewCodeHandler(service CodeServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *CodeHandler {
	return &CodeHandler{service: service, ipConfig: ipConfig, logger: logger}
}

// RequestCodeRequest asks for a code to be (re-)issued and delivered.
type RequestCodeRequest struct {
	Purpose    string `json:"purpose" validate:"required,min=1,max=64"`
	Recipient  string `json:"recipient" validate:"required,email"`
	TTLSeconds int    `json:"ttl_seconds" validate:"gte=0"`
}

// ValidateCodeRequest carries a candidate code or OTP for validation.
// Exactly one of code and otp must be set.
type ValidateCodeRequest struct {
	Purpose   string `json:"purpose" validate:"required"`
	Recipient string `json:"recipient" validate:"required,email"`
	Code      string `json:"code"`
	OTP       string `json:"otp"`
}

// Request issues (or refreshes) the code for a (purpose, recipient)
// pair and delivers it out of band. The code itself is never returned
// in the response.
func (h *CodeHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Recipient = strings.ToLower(strings.TrimSpace(req.Recipient))

	code, err := h.service.RefreshOrGenerate(r.Context(), req.Purpose, req.Recipient,
		time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid code request")
			return
		}
		h.logger.Error("code issuance failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to issue code")
		return
	}

	if err := h.service.Deliver(r.Context(), code); err != nil {
		h.logger.Error("code delivery failed",
			slog.String("recipient", pkglogger.SanitizedEmail(req.Recipient)),
			slog.String("client_ip", pkghttp.ExtractClientIP(r, h.ipConfig)),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to deliver code")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"purpose":    code.Purpose,
		"expires_at": code.ExpiresAt,
	})
}

// Validate checks a submitted code or OTP. The response is a plain
// boolean; expired, unknown and mismatched inputs are indistinguishable.
func (h *CodeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if (req.Code == "") == (req.OTP == "") {
		pkghttp.WriteBadRequest(w, "Provide exactly one of code and otp")
		return
	}

	req.Recipient = strings.ToLower(strings.TrimSpace(req.Recipient))

	var (
		valid bool
		err   error
	)
	if req.Code != "" {
		valid, err = h.service.ValidateCode(r.Context(), req.Purpose, req.Recipient, req.Code)
	} else {
		valid, err = h.service.ValidateOTP(r.Context(), req.Purpose, req.Recipient, req.OTP)
	}
	if err != nil {
		if errors.Is(err, models.ErrAmbiguousMatch) {
			pkghttp.WriteConflict(w, "Multiple codes match; contact support")
			return
		}
		h.logger.Error("code validation failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to validate code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// Confirm validates a bare code arriving from an emailed link.
func (h *CodeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	purpose := r.URL.Query().Get("purpose")
	input := r.URL.Query().Get("code")
	if purpose == "" || input == "" {
		pkghttp.WriteBadRequest(w, "purpose and code are required")
		return
	}

	valid, err := h.service.ConfirmByCode(r.Context(), purpose, input)
	if err != nil {
		h.logger.Error("code confirmation failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to confirm code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// Cleanup deletes all expired code records.
func (h *CodeHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Cleanup(r.Context(), models.CodeSelection{})
	if err != nil {
		h.logger.Error("code cleanup failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to cleanup codes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}
