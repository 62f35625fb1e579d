package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/threatpulse/securesoc/internal/middleware"
	"github.com/threatpulse/securesoc/internal/queue"
	"github.com/threatpulse/securesoc/internal/repository"
)

// AuditHandler serves the audit log fed by the queue consumer. Listing is
// gated by viewAuditLog and purging by deleteAuditLog in the router.
type AuditHandler struct {
	Audits   *repository.AuditRepo
	Accounts *repository.AccountRepo
	Audit    *queue.Publisher
}

func NewAuditHandler(r *repository.AuditRepo, a *repository.AccountRepo, p *queue.Publisher) *AuditHandler {
	return &AuditHandler{Audits: r, Accounts: a, Audit: p}
}

// List returns the newest audit events. ?limit= caps the page, default 100.
func (h *AuditHandler) List(c echo.Context) error {
	limit := 100
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be 1-1000"})
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Audits.List(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Purge deletes the entire audit trail and records who did it.
func (h *AuditHandler) Purge(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Audits.Purge(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "purge failed"})
	}

	actorID := middleware.AccountID(c)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ev := queue.AuditEvent{
			AccountID:  actorID,
			Action:     queue.ActionAuditPurged,
			Detail:     "audit log purged",
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		}
		if acc, err := h.Accounts.GetByID(ctx, actorID); err == nil {
			ev.ActorEmail = acc.Email
		}
		_ = h.Audit.Publish(ctx, ev)
	}()
	return c.NoContent(http.StatusNoContent)
}
