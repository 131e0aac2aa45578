package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
	"github.com/saga-lims/saga-store/internal/service"
)

// UserStore is the authorized-user surface the handler needs.
// *repository.UserRepo satisfies it.
type UserStore interface {
	List(ctx context.Context) ([]model.AuthorizedUser, error)
	Create(ctx context.Context, initials, name string) (model.AuthorizedUser, error)
	Delete(ctx context.Context, id, initials, token string) error
}

// UserHandler manages the authorized_users table.  Listing never
// exposes tokens; the token is returned exactly once, from Create.
type UserHandler struct {
	Users  UserStore
	Audit  *service.AuditRecorder
	Logger *zap.Logger
}

func NewUserHandler(users UserStore, audit *service.AuditRecorder, logger *zap.Logger) *UserHandler {
	return &UserHandler{Users: users, Audit: audit, Logger: logger}
}

// List handles GET /api/admin_users (and /api/authorized_users).
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if users == nil {
		users = []model.AuthorizedUser{}
	}
	return dataResponse(c, http.StatusOK, users)
}

// Create handles POST /api/admin_users.  The response includes the
// generated token so the admin can hand it to the new user.
func (h *UserHandler) Create(c echo.Context) error {
	var body struct {
		Initials string `json:"initials"`
		Name     string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	body.Initials = strings.ToUpper(strings.TrimSpace(body.Initials))
	if body.Initials == "" {
		return errResponse(c, http.StatusBadRequest, "missing_initials")
	}
	if strings.TrimSpace(body.Name) == "" {
		return errResponse(c, http.StatusBadRequest, "missing_name")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.Create(ctx, body.Initials, strings.TrimSpace(body.Name))
	if errors.Is(err, repository.ErrDuplicate) {
		return errResponseMsg(c, http.StatusConflict, "duplicate_initials", "initials already registered")
	}
	if err != nil {
		return internalError(c, h.Logger, "create user", err)
	}

	ev := auditEvent(c, model.EntityUser, u.ID, u.Initials, "created")
	ev.Description = fmt.Sprintf("Added authorized user %s (%s)", u.Initials, u.Name)
	record(c, h.Audit, ev)

	return c.JSON(http.StatusCreated, echo.Map{"data": echo.Map{
		"id":         u.ID,
		"initials":   u.Initials,
		"name":       u.Name,
		"token":      u.Token,
		"created_at": u.CreatedAt,
	}})
}

// Delete handles DELETE /api/admin_users.  The target user is matched
// by whichever identifier the body carries.
func (h *UserHandler) Delete(c echo.Context) error {
	var body struct {
		ID       string `json:"id"`
		Initials string `json:"initials"`
		Token    string `json:"token"`
	}
	if err := c.Bind(&body); err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	if body.ID == "" && body.Initials == "" && body.Token == "" {
		return errResponse(c, http.StatusBadRequest, "missing_id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	err := h.Users.Delete(ctx, body.ID, body.Initials, body.Token)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusNotFound, "not_found")
	}
	if err != nil {
		return internalError(c, h.Logger, "delete user", err)
	}

	name := body.Initials
	if name == "" {
		name = body.ID
	}
	ev := auditEvent(c, model.EntityUser, body.ID, name, "deleted")
	ev.Description = fmt.Sprintf("Removed authorized user %s", name)
	record(c, h.Audit, ev)

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
