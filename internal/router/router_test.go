package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/handler"
	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
)

type fakeUserStore struct {
	users []model.AuthorizedUser
}

func (f *fakeUserStore) List(context.Context) ([]model.AuthorizedUser, error) {
	return f.users, nil
}

func (f *fakeUserStore) Create(_ context.Context, initials, name string) (model.AuthorizedUser, error) {
	u := model.AuthorizedUser{ID: "u-new", Initials: initials, Name: name, Token: "tok-new"}
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeUserStore) Delete(context.Context, string, string, string) error { return nil }

func (f *fakeUserStore) GetByToken(_ context.Context, token string) (model.AuthorizedUser, error) {
	for _, u := range f.users {
		if u.Token == token {
			return u, nil
		}
	}
	return model.AuthorizedUser{}, repository.ErrNotFound
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := &fakeUserStore{users: []model.AuthorizedUser{
		{ID: "u1", Initials: "AB", Name: "Alice Brown", Token: "tok-ab"},
	}}
	h := Handlers{
		Auth:       &handler.AuthHandler{},
		Containers: &handler.ContainerHandler{},
		Samples:    &handler.SampleHandler{},
		Imports:    &handler.ImportHandler{},
		Users:      handler.NewUserHandler(store, nil, zap.NewNop()),
		Types:      &handler.TypeHandler{},
		Storage:    &handler.StorageHandler{},
		Audit:      &handler.AuditHandler{},
		Backups:    &handler.BackupHandler{},
	}
	e := echo.New()
	Register(e, h, "topsecret", store, nil)
	return e
}

// The signin page fetches the user list before any credential exists,
// so the lookup must work without headers and must not leak tokens.
func TestAuthorizedUsersListIsPublic(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/authorized_users", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"initials":"AB"`)
	assert.NotContains(t, rec.Body.String(), "tok-ab")
}

func TestAdminUserMutationsStayGated(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin_users",
		strings.NewReader(`{"initials":"cd","name":"Carol Diaz"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_admin_credentials")
}

func TestAdminUserListRequiresCredentials(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin_users", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin_users", nil)
	req.Header.Set("x-admin-secret", "topsecret")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
