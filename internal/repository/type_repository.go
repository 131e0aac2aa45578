package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saga-lims/saga-store/internal/model"
)

// TypeRepo provides data access to the sample_types and container_types
// reference tables, which replaced the hard-coded front-end constants.
type TypeRepo struct{ DB *sql.DB }

func NewTypeRepo(db *sql.DB) *TypeRepo { return &TypeRepo{DB: db} }

// ListSampleTypes returns all sample types ordered by name.
func (r *TypeRepo) ListSampleTypes(ctx context.Context) ([]model.SampleType, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, created_at FROM sample_types ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SampleType
	for rows.Next() {
		var t model.SampleType
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateSampleType inserts a new sample type.  Duplicate names are
// rejected with ErrDuplicate.
func (r *TypeRepo) CreateSampleType(ctx context.Context, name string) (model.SampleType, error) {
	t := model.SampleType{ID: uuid.NewString(), Name: strings.TrimSpace(name), CreatedAt: time.Now().UTC()}
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sample_types WHERE lower(name)=lower($1))`, t.Name).
		Scan(&exists); err != nil {
		return model.SampleType{}, err
	}
	if exists {
		return model.SampleType{}, ErrDuplicate
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sample_types (id, name, created_at) VALUES ($1,$2,$3)`,
		t.ID, t.Name, t.CreatedAt)
	return t, err
}

// ListContainerTypes returns all container types ordered by name.
func (r *TypeRepo) ListContainerTypes(ctx context.Context) ([]model.ContainerType, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, layout, created_at FROM container_types ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ContainerType
	for rows.Next() {
		var t model.ContainerType
		if err := rows.Scan(&t.ID, &t.Name, &t.Layout, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateContainerType inserts a new container type with its default
// layout.
func (r *TypeRepo) CreateContainerType(ctx context.Context, name, layout string) (model.ContainerType, error) {
	t := model.ContainerType{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Layout:    strings.TrimSpace(layout),
		CreatedAt: time.Now().UTC(),
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM container_types WHERE lower(name)=lower($1))`, t.Name).
		Scan(&exists); err != nil {
		return model.ContainerType{}, err
	}
	if exists {
		return model.ContainerType{}, ErrDuplicate
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO container_types (id, name, layout, created_at) VALUES ($1,$2,$3,$4)`,
		t.ID, t.Name, t.Layout, t.CreatedAt)
	return t, err
}
