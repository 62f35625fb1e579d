package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/threatpulse/securesoc/internal/config"
	"github.com/threatpulse/securesoc/internal/mfa"
	"github.com/threatpulse/securesoc/internal/middleware"
	"github.com/threatpulse/securesoc/internal/queue"
	"github.com/threatpulse/securesoc/internal/repository"
)

// MFAHandler exposes second-factor enrollment for the signed-in account.
type MFAHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
	MFA      *repository.MFARepo
	Audit    *queue.Publisher
}

func NewMFAHandler(cfg config.Config, a *repository.AccountRepo, m *repository.MFARepo, p *queue.Publisher) *MFAHandler {
	return &MFAHandler{Cfg: cfg, Accounts: a, MFA: m, Audit: p}
}

type enrollResp struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
}
type activateReq struct {
	Code string `json:"code"`
}
type activateResp struct {
	BackupCodes []string `json:"backup_codes"`
}

// BeginEnroll issues a fresh shared secret and its provisioning URI. Every
// call regenerates: reopening the enrollment dialog discards any uncompleted
// state, and a prior secret is never reused.
func (h *MFAHandler) BeginEnroll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accountID := middleware.AccountID(c)
	acc, err := h.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load account failed"})
	}

	secret, err := mfa.NewSecret()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate secret failed"})
	}
	if err := h.MFA.BeginEnrollment(ctx, accountID, secret); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save enrollment failed"})
	}

	return c.JSON(http.StatusOK, enrollResp{
		Secret:     secret,
		OtpauthURL: mfa.ProvisioningURI(secret, acc.Email),
	})
}

// ActivateEnroll verifies an authenticator code against the pending secret
// and, on success, enables MFA and returns the recovery codes. The codes are
// returned exactly once; afterwards they are only regenerable by disabling
// and re-enrolling.
func (h *MFAHandler) ActivateEnroll(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	// Local format check; no verification is attempted for malformed input.
	if !mfa.ValidCodeFormat(mfa.NormalizeCode(req.Code)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code must be 6 digits"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accountID := middleware.AccountID(c)
	enrollment, err := h.MFA.Get(ctx, accountID)
	if err == repository.ErrNotEnrolled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no pending enrollment"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !mfa.VerifyTOTP(enrollment.Secret, req.Code) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}

	codes, err := mfa.NewBackupCodes()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate codes failed"})
	}
	if err := h.MFA.Activate(ctx, accountID, codes); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
	}

	if acc, err := h.Accounts.GetByID(ctx, accountID); err == nil {
		h.publishAudit(acc.ID, acc.Email, queue.ActionMFAEnabled, "second factor enabled")
	}
	return c.JSON(http.StatusOK, activateResp{BackupCodes: codes})
}

// Disable clears the enrollment, secret and remaining recovery codes.
func (h *MFAHandler) Disable(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accountID := middleware.AccountID(c)
	if err := h.MFA.Disable(ctx, accountID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "disable failed"})
	}
	if acc, err := h.Accounts.GetByID(ctx, accountID); err == nil {
		h.publishAudit(acc.ID, acc.Email, queue.ActionMFADisabled, "second factor disabled")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MFAHandler) publishAudit(accountID, email, action, detail string) {
	ev := queue.AuditEvent{
		AccountID:  accountID,
		ActorEmail: email,
		Action:     action,
		Detail:     detail,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Audit.Publish(ctx, ev)
	}()
}
