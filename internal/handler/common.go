// Package handler contains the HTTP handlers for the inventory API.
// Responses wrap payloads as {"data": ...}; errors carry a stable
// "error" code string plus an optional human-readable "message".
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/middleware"
	"github.com/saga-lims/saga-store/internal/queue"
	"github.com/saga-lims/saga-store/internal/service"
)

// dbTimeout bounds every database round trip made from a handler.
const dbTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func dataResponse(c echo.Context, status int, v any) error {
	return c.JSON(status, echo.Map{"data": v})
}

func errResponse(c echo.Context, status int, code string) error {
	return c.JSON(status, echo.Map{"error": code})
}

func errResponseMsg(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}

func internalError(c echo.Context, logger *zap.Logger, where string, err error) error {
	if logger != nil {
		logger.Error(where, zap.Error(err))
	}
	return errResponseMsg(c, http.StatusInternalServerError, "internal_server_error", err.Error())
}

// auditEvent builds the skeleton of an audit event attributed to the
// current caller.
func auditEvent(c echo.Context, entityType, entityID, entityName, action string) queue.AuditEvent {
	return queue.AuditEvent{
		UserInitials: middleware.CallerInitials(c),
		UserName:     middleware.CallerName(c),
		EntityType:   entityType,
		EntityID:     entityID,
		EntityName:   entityName,
		Action:       action,
		OccurredAt:   time.Now().UTC(),
	}
}

// record writes an audit event when a recorder is wired.  Handlers
// never fail because of audit problems.
func record(c echo.Context, rec *service.AuditRecorder, ev queue.AuditEvent) {
	if rec != nil {
		rec.Record(c.Request().Context(), ev)
	}
}
