package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/threatpulse/securesoc/internal/middleware"
	"github.com/threatpulse/securesoc/internal/model"
	"github.com/threatpulse/securesoc/internal/permission"
	"github.com/threatpulse/securesoc/internal/queue"
	"github.com/threatpulse/securesoc/internal/repository"
)

// ProfileHandler serves the signed-in account's own identity and settings.
type ProfileHandler struct {
	Accounts *repository.AccountRepo
	Audit    *queue.Publisher
}

func NewProfileHandler(a *repository.AccountRepo, p *queue.Publisher) *ProfileHandler {
	return &ProfileHandler{Accounts: a, Audit: p}
}

type updateProfileReq struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// Me returns the caller's identity, freshly loaded from the database.
func (h *ProfileHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.GetByID(ctx, middleware.AccountID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load account failed"})
	}
	return c.JSON(http.StatusOK, model.IdentityOf(acc))
}

// Permissions returns the capability set resolved from the caller's current
// role. Clients must call this fresh after any identity change instead of
// caching a stale set.
func (h *ProfileHandler) Permissions(c echo.Context) error {
	return c.JSON(http.StatusOK, permission.Resolve(middleware.Role(c)))
}

// UpdateMe edits the caller's display name and avatar.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accountID := middleware.AccountID(c)
	if err := h.Accounts.UpdateProfile(ctx, accountID, req.Name, req.AvatarURL); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	acc, err := h.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load account failed"})
	}
	go func(ev queue.AuditEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Audit.Publish(ctx, ev)
	}(queue.AuditEvent{
		AccountID:  acc.ID,
		ActorEmail: acc.Email,
		Action:     queue.ActionProfileUpdate,
		Detail:     "profile updated",
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, model.IdentityOf(acc))
}
