package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/threatpulse/securesoc/internal/config"
	"github.com/threatpulse/securesoc/internal/mfa"
	"github.com/threatpulse/securesoc/internal/middleware"
	"github.com/threatpulse/securesoc/internal/model"
	"github.com/threatpulse/securesoc/internal/permission"
	"github.com/threatpulse/securesoc/internal/queue"
	"github.com/threatpulse/securesoc/internal/repository"
	"github.com/threatpulse/securesoc/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
	Sessions *repository.SessionRepo
	MFA      *repository.MFARepo
	Audit    *queue.Publisher
}

func NewAuthHandler(cfg config.Config, a *repository.AccountRepo, s *repository.SessionRepo, m *repository.MFARepo, p *queue.Publisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: a, Sessions: s, MFA: m, Audit: p}
}

// ----- DTOs -----

type signUpReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type mfaVerifyReq struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
	IsRecovery     bool   `json:"is_recovery"`
}

type sessionPart struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
type authResp struct {
	User    model.Identity `json:"user"`
	Session sessionPart    `json:"session"`
}
type mfaRequiredResp struct {
	MFARequired    bool   `json:"mfa_required"`
	ChallengeToken string `json:"challenge_token"`
}

// SignUp creates an account and signs it in immediately. New accounts get the
// least privileged role; only an admin can promote them afterwards.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password/name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Accounts.Create(ctx, req.Email, req.Password, req.Name, permission.RoleAnalyst, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
	}

	acc, err := h.Accounts.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load account failed"})
	}

	resp, err := h.issueSession(ctx, acc)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	h.publishAudit(acc, queue.ActionSignUp, "account created")
	return c.JSON(http.StatusCreated, resp)
}

// SignIn verifies credentials and either issues a session or, when the
// account has MFA enabled, returns a short-lived challenge token. Unknown
// email and wrong password produce the same response, so the endpoint cannot
// be used to enumerate accounts.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(acc.PasswordHash, req.Password) || !acc.IsActive {
		h.publishAudit(acc, queue.ActionSignInFailed, "invalid credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	// A credential row without a resolvable role is a data-integrity problem,
	// not a credential problem; surface it distinctly.
	if !permission.ValidRole(acc.Role) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user profile not found"})
	}

	enabled, err := h.MFA.Enabled(ctx, acc.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if enabled {
		// No session exists yet. If the second factor is never completed the
		// sign-in evaporates with the challenge token.
		challenge, err := utils.NewMFAChallengeToken(h.Cfg.JWTSecret, acc.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue challenge failed"})
		}
		return c.JSON(http.StatusOK, mfaRequiredResp{MFARequired: true, ChallengeToken: challenge})
	}

	resp, err := h.issueSession(ctx, acc)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	h.publishAudit(acc, queue.ActionSignIn, "signed in")
	return c.JSON(http.StatusOK, resp)
}

// VerifyMFA completes an MFA-pending sign-in. The challenge token proves the
// password step succeeded; the code is checked server-side against the shared
// secret (TOTP) or the stored recovery codes. Both checks fail with the same
// generic response.
func (h *AuthHandler) VerifyMFA(c echo.Context) error {
	var req mfaVerifyReq
	if err := c.Bind(&req); err != nil || req.ChallengeToken == "" || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "challenge_token and code required"})
	}

	accountID, err := utils.VerifyMFAChallengeToken(h.Cfg.JWTSecret, req.ChallengeToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired challenge"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.GetByID(ctx, accountID)
	if err != nil || !acc.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired challenge"})
	}

	ok, err := h.verifySecondFactor(ctx, acc.ID, req.Code, req.IsRecovery)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}

	resp, err := h.issueSession(ctx, acc)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	h.publishAudit(acc, queue.ActionSignIn, "signed in with second factor")
	return c.JSON(http.StatusOK, resp)
}

// SignOut revokes the caller's sessions. Idempotent: signing out an already
// dead session is still a 204.
func (h *AuthHandler) SignOut(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accountID := middleware.AccountID(c)
	if err := h.Sessions.RevokeAllForAccount(ctx, accountID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signout failed"})
	}
	if acc, err := h.Accounts.GetByID(ctx, accountID); err == nil {
		h.publishAudit(acc, queue.ActionSignOut, "signed out")
	}
	return c.NoContent(http.StatusNoContent)
}

// verifySecondFactor checks a recovery code or a TOTP code. Recovery codes
// are matched case-insensitively and consumed atomically; reuse fails.
func (h *AuthHandler) verifySecondFactor(ctx context.Context, accountID, code string, isRecovery bool) (bool, error) {
	if isRecovery {
		return h.MFA.ConsumeBackupCode(ctx, accountID, mfa.NormalizeCode(code))
	}
	enrollment, err := h.MFA.Get(ctx, accountID)
	if err == repository.ErrNotEnrolled {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !enrollment.Enabled {
		return false, nil
	}
	return mfa.VerifyTOTP(enrollment.Secret, code), nil
}

// issueSession mints a bearer token, replaces the account's session row and
// stamps last_login. One active session per account: signing in on a second
// device signs the first one out.
func (h *AuthHandler) issueSession(ctx context.Context, acc model.Account) (authResp, error) {
	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, acc.ID)
	if err != nil {
		return authResp{}, err
	}
	issued := time.Now().UTC()
	if err := h.Sessions.Create(ctx, acc.ID, utils.HashToken(tok.Token), issued, tok.Exp); err != nil {
		return authResp{}, err
	}
	if err := h.Accounts.TouchLastLogin(ctx, acc.ID); err != nil {
		return authResp{}, err
	}
	now := issued
	acc.LastLogin = &now
	return authResp{
		User:    model.IdentityOf(acc),
		Session: sessionPart{Token: tok.Token, ExpiresAt: tok.Exp},
	}, nil
}

// publishAudit emits an audit event without blocking the request. The
// publisher handles broker outages; a lost audit event never fails sign-in.
func (h *AuthHandler) publishAudit(acc model.Account, action, detail string) {
	ev := queue.AuditEvent{
		AccountID:  acc.ID,
		ActorEmail: acc.Email,
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
