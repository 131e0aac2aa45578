package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
)

// AuditHandler serves the read side of the audit trail.
type AuditHandler struct {
	Audit  *repository.AuditRepo
	Logger *zap.Logger
}

func NewAuditHandler(audit *repository.AuditRepo, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{Audit: audit, Logger: logger}
}

// List handles GET /api/audit with optional entity_type, entity_name,
// action, user and limit query filters.  Rows come back newest first.
func (h *AuditHandler) List(c echo.Context) error {
	f := repository.AuditFilter{
		EntityType: c.QueryParam("entity_type"),
		EntityName: c.QueryParam("entity_name"),
		Action:     c.QueryParam("action"),
		User:       c.QueryParam("user"),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return errResponse(c, http.StatusBadRequest, "invalid_payload")
		}
		f.Limit = n
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	logs, err := h.Audit.List(ctx, f)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return dataResponse(c, http.StatusOK, logs)
}
