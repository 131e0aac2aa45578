package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/utils"
)

// UserRepo provides data access to the authorized_users table.  Tokens
// are opaque random hex strings generated at creation; possession of a
// token is the whole authorization model.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// List returns all users ordered by initials.  Tokens are loaded but
// the model hides them from JSON serialization.
func (r *UserRepo) List(ctx context.Context) ([]model.AuthorizedUser, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, initials, name, token, created_at FROM authorized_users ORDER BY initials ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AuthorizedUser
	for rows.Next() {
		var u model.AuthorizedUser
		if err := rows.Scan(&u.ID, &u.Initials, &u.Name, &u.Token, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetByToken resolves a bearer token to its user, or ErrNotFound.
func (r *UserRepo) GetByToken(ctx context.Context, token string) (model.AuthorizedUser, error) {
	var u model.AuthorizedUser
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, initials, name, token, created_at FROM authorized_users WHERE token=$1 LIMIT 1`,
		token).Scan(&u.ID, &u.Initials, &u.Name, &u.Token, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return model.AuthorizedUser{}, ErrNotFound
	}
	return u, err
}

// GetByInitials performs a case-insensitive initials lookup.
func (r *UserRepo) GetByInitials(ctx context.Context, initials string) (model.AuthorizedUser, error) {
	var u model.AuthorizedUser
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, initials, name, token, created_at FROM authorized_users
		 WHERE lower(initials)=lower($1) LIMIT 1`,
		strings.TrimSpace(initials)).Scan(&u.ID, &u.Initials, &u.Name, &u.Token, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return model.AuthorizedUser{}, ErrNotFound
	}
	return u, err
}

// Create inserts a new authorized user with a freshly generated token.
// Initials must be unique case-insensitively; ErrDuplicate otherwise.
func (r *UserRepo) Create(ctx context.Context, initials, name string) (model.AuthorizedUser, error) {
	initials = strings.TrimSpace(initials)
	if _, err := r.GetByInitials(ctx, initials); err == nil {
		return model.AuthorizedUser{}, ErrDuplicate
	} else if err != ErrNotFound {
		return model.AuthorizedUser{}, err
	}
	token, err := utils.RandomToken(32)
	if err != nil {
		return model.AuthorizedUser{}, err
	}
	u := model.AuthorizedUser{
		ID:        uuid.NewString(),
		Initials:  initials,
		Name:      name,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO authorized_users (id, initials, name, token, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Initials, u.Name, u.Token, u.CreatedAt)
	if err != nil {
		return model.AuthorizedUser{}, err
	}
	return u, nil
}

// Delete removes a user matched by id, initials or token (first
// non-empty identifier wins).
func (r *UserRepo) Delete(ctx context.Context, id, initials, token string) error {
	var (
		res sql.Result
		err error
	)
	switch {
	case id != "":
		res, err = r.DB.ExecContext(ctx, `DELETE FROM authorized_users WHERE id=$1`, id)
	case initials != "":
		res, err = r.DB.ExecContext(ctx,
			`DELETE FROM authorized_users WHERE lower(initials)=lower($1)`, strings.TrimSpace(initials))
	default:
		res, err = r.DB.ExecContext(ctx, `DELETE FROM authorized_users WHERE token=$1`, token)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
