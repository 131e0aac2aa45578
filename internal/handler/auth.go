package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/repository"
)

// AuthHandler serves sign-in for lab members.
type AuthHandler struct {
	Users  *repository.UserRepo
	Logger *zap.Logger
}

func NewAuthHandler(users *repository.UserRepo, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Logger: logger}
}

// Signin handles POST /api/auth/signin.  The caller presents their
// initials; a case-insensitive match in authorized_users returns the
// stored token.  There is nothing secret about initials, so failed
// lookups get a flat 401 without detail.
func (h *AuthHandler) Signin(c echo.Context) error {
	var body struct {
		Initials string `json:"initials"`
	}
	if err := c.Bind(&body); err != nil {
		return errResponse(c, http.StatusBadRequest, "missing_initials")
	}
	initials := strings.TrimSpace(body.Initials)
	if initials == "" {
		return errResponse(c, http.StatusBadRequest, "missing_initials")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	user, err := h.Users.GetByInitials(ctx, initials)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusUnauthorized, "invalid_initials")
	}
	if err != nil {
		return internalError(c, h.Logger, "signin lookup", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"token":    user.Token,
		"initials": user.Initials,
		"name":     user.Name,
	})
}
