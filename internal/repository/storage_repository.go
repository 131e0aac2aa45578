package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/saga-lims/saga-store/internal/model"
)

// StorageRepo provides data access to the cold_storage_units and racks
// tables.  Both are small reference tables managed from the admin
// dashboard.
type StorageRepo struct{ DB *sql.DB }

func NewStorageRepo(db *sql.DB) *StorageRepo { return &StorageRepo{DB: db} }

// ListColdStorage returns all cold storage units ordered by name.
func (r *StorageRepo) ListColdStorage(ctx context.Context) ([]model.ColdStorageUnit, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, location, temperature, created_at FROM cold_storage_units ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ColdStorageUnit
	for rows.Next() {
		var u model.ColdStorageUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.Location, &u.Temperature, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateColdStorage inserts a new cold storage unit.
func (r *StorageRepo) CreateColdStorage(ctx context.Context, u *model.ColdStorageUnit) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO cold_storage_units (id, name, location, temperature, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Name, u.Location, u.Temperature, u.CreatedAt)
	return err
}

// ListRacks returns all racks ordered by name.
func (r *StorageRepo) ListRacks(ctx context.Context) ([]model.Rack, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, cold_storage_id, capacity, created_at FROM racks ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Rack
	for rows.Next() {
		var (
			rk  model.Rack
			csu sql.NullString
		)
		if err := rows.Scan(&rk.ID, &rk.Name, &csu, &rk.Capacity, &rk.CreatedAt); err != nil {
			return nil, err
		}
		rk.ColdStorageID = nullStr(csu)
		out = append(out, rk)
	}
	return out, rows.Err()
}

// CreateRack inserts a new rack.
func (r *StorageRepo) CreateRack(ctx context.Context, rk *model.Rack) error {
	if rk.ID == "" {
		rk.ID = uuid.NewString()
	}
	rk.CreatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO racks (id, name, cold_storage_id, capacity, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		rk.ID, rk.Name, strNull(rk.ColdStorageID), rk.Capacity, rk.CreatedAt)
	return err
}
