package middleware // reusable HTTP middleware for the inventory API

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/saga-lims/saga-store/internal/model"
)

// Context keys set by Identity and RequireAdmin.
const (
	CtxInitials = "initials"
	CtxUserName = "user_name"
)

// TokenStore looks up an authorized user by their bearer token.
// *repository.UserRepo satisfies it.
type TokenStore interface {
	GetByToken(ctx context.Context, token string) (model.AuthorizedUser, error)
}

// Identity copies the caller-supplied identity headers into the
// request context so handlers and the audit trail can attribute
// actions.  The headers are informational, not authentication; actual
// auth happens in RequireAdmin.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if v := strings.TrimSpace(c.Request().Header.Get("x-user-initials")); v != "" {
				c.Set(CtxInitials, strings.ToUpper(v))
			}
			if v := strings.TrimSpace(c.Request().Header.Get("x-user-name")); v != "" {
				c.Set(CtxUserName, v)
			}
			return next(c)
		}
	}
}

// RequireAdmin gates mutating routes.  A request passes when it
// carries the shared admin secret in the x-admin-secret header, or a
// bearer token matching a row in authorized_users.  Token matches also
// fill in the caller's initials and name from the matched row so
// clients using tokens do not have to send identity headers.
func RequireAdmin(adminSecret string, users TokenStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret := c.Request().Header.Get("x-admin-secret"); secret != "" {
				if adminSecret != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(adminSecret)) == 1 {
					return next(c)
				}
				return unauthorized(c)
			}

			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   "missing_admin_credentials",
					"message": "provide x-admin-secret or a bearer token",
				})
			}
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			user, err := users.GetByToken(ctx, token)
			if err != nil {
				return unauthorized(c)
			}
			c.Set(CtxInitials, user.Initials)
			c.Set(CtxUserName, user.Name)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error":   "missing_admin_credentials",
		"message": "invalid credentials",
	})
}

// CallerInitials returns the initials stored in context, or "unknown".
func CallerInitials(c echo.Context) string {
	if v, ok := c.Get(CtxInitials).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// CallerName returns the display name stored in context, if any.
func CallerName(c echo.Context) string {
	if v, ok := c.Get(CtxUserName).(string); ok {
		return v
	}
	return ""
}
