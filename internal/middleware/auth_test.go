package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
)

type fakeTokenStore struct {
	users map[string]model.AuthorizedUser
}

func (f *fakeTokenStore) GetByToken(_ context.Context, token string) (model.AuthorizedUser, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return model.AuthorizedUser{}, repository.ErrNotFound
}

func adminTestContext(headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/containers", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func runRequireAdmin(c echo.Context, store TokenStore) (called bool, err error) {
	mw := RequireAdmin("topsecret", store)
	err = mw(func(echo.Context) error {
		called = true
		return nil
	})(c)
	return called, err
}

func TestRequireAdminSecret(t *testing.T) {
	c, _ := adminTestContext(map[string]string{"x-admin-secret": "topsecret"})
	called, err := runRequireAdmin(c, &fakeTokenStore{})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRequireAdminWrongSecret(t *testing.T) {
	c, rec := adminTestContext(map[string]string{"x-admin-secret": "nope"})
	called, err := runRequireAdmin(c, &fakeTokenStore{})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminMissingCredentials(t *testing.T) {
	c, rec := adminTestContext(nil)
	called, err := runRequireAdmin(c, &fakeTokenStore{})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_admin_credentials")
}

func TestRequireAdminBearerTokenFillsIdentity(t *testing.T) {
	store := &fakeTokenStore{users: map[string]model.AuthorizedUser{
		"tok123": {Initials: "AB", Name: "Alice Brown"},
	}}
	c, _ := adminTestContext(map[string]string{"Authorization": "Bearer tok123"})
	called, err := runRequireAdmin(c, store)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "AB", CallerInitials(c))
	assert.Equal(t, "Alice Brown", CallerName(c))
}

func TestRequireAdminUnknownToken(t *testing.T) {
	c, rec := adminTestContext(map[string]string{"Authorization": "Bearer bogus"})
	called, err := runRequireAdmin(c, &fakeTokenStore{})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentityHeaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/samples", nil)
	req.Header.Set("x-user-initials", "cd")
	req.Header.Set("x-user-name", "Carol Doe")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Identity()(func(echo.Context) error { return nil })(c)
	require.NoError(t, err)
	assert.Equal(t, "CD", CallerInitials(c))
	assert.Equal(t, "Carol Doe", CallerName(c))
}

func TestCallerDefaults(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "unknown", CallerInitials(c))
	assert.Equal(t, "", CallerName(c))
}
