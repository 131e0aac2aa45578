package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/saga-lims/saga-store/internal/model"
)

const containerColumns = `id, name, location, layout, type, sample_type, temperature,
	archived, training, cold_storage_id, rack_id, rack_position, created_at, updated_at`

// ContainerRepo provides data access to the containers table.
type ContainerRepo struct{ DB *sql.DB }

func NewContainerRepo(db *sql.DB) *ContainerRepo { return &ContainerRepo{DB: db} }

func scanContainer(row interface{ Scan(...any) error }) (model.Container, error) {
	var (
		c                          model.Container
		sampleType                 sql.NullString
		coldStorage, rack, rackPos sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &c.Location, &c.Layout, &c.Type, &sampleType,
		&c.Temperature, &c.Archived, &c.Training, &coldStorage, &rack, &rackPos,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Container{}, err
	}
	c.SampleType = sampleType.String
	c.ColdStorageID = nullStr(coldStorage)
	c.RackID = nullStr(rack)
	c.RackPosition = nullStr(rackPos)
	return c, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func strNull(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// List returns containers filtered by the archived flag, most recently
// updated first, each annotated with its active sample count.
func (r *ContainerRepo) List(ctx context.Context, archived bool) ([]model.Container, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+containerColumns+` FROM containers WHERE archived=$1 ORDER BY updated_at DESC`,
		archived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Container
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.fillUsedCounts(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// fillUsedCounts annotates containers with their active sample counts.
func (r *ContainerRepo) fillUsedCounts(ctx context.Context, containers []model.Container) error {
	if len(containers) == 0 {
		return nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT container_id, COUNT(*) FROM samples
		 WHERE container_id IS NOT NULL AND is_archived=false
		 GROUP BY container_id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range containers {
		containers[i].Used = counts[containers[i].ID]
	}
	return nil
}

// GetByID fetches a single container.  Returns ErrNotFound when no row
// matches.
func (r *ContainerRepo) GetByID(ctx context.Context, id string) (model.Container, error) {
	c, err := scanContainer(r.DB.QueryRowContext(ctx,
		`SELECT `+containerColumns+` FROM containers WHERE id=$1 LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return model.Container{}, ErrNotFound
	}
	return c, err
}

// NamesByIDs resolves container IDs to display names in one query.
// Unknown IDs are simply absent from the result map.
func (r *ContainerRepo) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name FROM containers WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}

// Create inserts a new container.  An empty ID is replaced with a
// generated uuid so that imports may carry their own identifiers.
func (r *ContainerRepo) Create(ctx context.Context, c *model.Container) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO containers
		 (id, name, location, layout, type, sample_type, temperature, archived, training,
		  cold_storage_id, rack_id, rack_position, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.ID, c.Name, c.Location, c.Layout, c.Type, c.SampleType, c.Temperature,
		c.Archived, c.Training, strNull(c.ColdStorageID), strNull(c.RackID),
		strNull(c.RackPosition), c.CreatedAt, c.UpdatedAt)
	return err
}

// Update overwrites the mutable fields of a container row and bumps
// updated_at.  Returns ErrNotFound when the row does not exist.
func (r *ContainerRepo) Update(ctx context.Context, c *model.Container) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE containers SET
		 name=$2, location=$3, layout=$4, type=$5, sample_type=$6, temperature=$7,
		 archived=$8, training=$9, cold_storage_id=$10, rack_id=$11, rack_position=$12,
		 updated_at=$13
		 WHERE id=$1`,
		c.ID, c.Name, c.Location, c.Layout, c.Type, c.SampleType, c.Temperature,
		c.Archived, c.Training, strNull(c.ColdStorageID), strNull(c.RackID),
		strNull(c.RackPosition), c.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCascade removes a container and every sample stored in it, and
// returns the number of deleted samples.  Samples go first so the
// foreign key never dangles.
func (r *ContainerRepo) DeleteCascade(ctx context.Context, id string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM samples WHERE container_id=$1`, id)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	del, err := r.DB.ExecContext(ctx, `DELETE FROM containers WHERE id=$1`, id)
	if err != nil {
		return int(n), err
	}
	if affected, _ := del.RowsAffected(); affected == 0 {
		return int(n), ErrNotFound
	}
	return int(n), nil
}
