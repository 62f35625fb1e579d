package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/threatpulse/securesoc/internal/middleware"
	"github.com/threatpulse/securesoc/internal/model"
	"github.com/threatpulse/securesoc/internal/permission"
	"github.com/threatpulse/securesoc/internal/queue"
	"github.com/threatpulse/securesoc/internal/repository"
)

// UsersHandler implements administrative user management. Routes are gated by
// the manageUsers capability in the router.
type UsersHandler struct {
	Accounts *repository.AccountRepo
	Sessions *repository.SessionRepo
	Audit    *queue.Publisher
}

func NewUsersHandler(a *repository.AccountRepo, s *repository.SessionRepo, p *queue.Publisher) *UsersHandler {
	return &UsersHandler{Accounts: a, Sessions: s, Audit: p}
}

type updateUserReq struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// List returns all accounts as identity projections.
func (h *UsersHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accounts, err := h.Accounts.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]model.Identity, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, model.IdentityOf(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// Update changes an account's role and/or active flag. Deactivating revokes
// the account's sessions so the change takes effect immediately.
func (h *UsersHandler) Update(c echo.Context) error {
	id := c.Param("id")
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role == nil && req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	if req.Role != nil && !permission.ValidRole(*req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	target, err := h.Accounts.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Role != nil {
		if err := h.Accounts.UpdateRole(ctx, id, *req.Role); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	if req.IsActive != nil {
		if err := h.Accounts.SetActive(ctx, id, *req.IsActive); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		if !*req.IsActive {
			_ = h.Sessions.RevokeAllForAccount(ctx, id)
		}
	}

	h.publishAudit(c, queue.ActionUserUpdated, "updated account "+target.Email)

	acc, err := h.Accounts.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load account failed"})
	}
	return c.JSON(http.StatusOK, model.IdentityOf(acc))
}

// Delete permanently removes an account. The soft path is deactivation via
// Update; this one is irreversible.
func (h *UsersHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == middleware.AccountID(c) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete own account"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	target, err := h.Accounts.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Accounts.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	h.publishAudit(c, queue.ActionUserDeleted, "deleted account "+target.Email)
	return c.NoContent(http.StatusNoContent)
}

// publishAudit records the acting admin, not the target, as the actor.
func (h *UsersHandler) publishAudit(c echo.Context, action, detail string) {
	actorID := middleware.AccountID(c)
	ev := queue.AuditEvent{
		AccountID:  actorID,
		Action:     action,
		Detail:     detail,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if acc, err := h.Accounts.GetByID(ctx, actorID); err == nil {
			ev.ActorEmail = acc.Email
		}
		_ = h.Audit.Publish(ctx, ev)
	}()
}
