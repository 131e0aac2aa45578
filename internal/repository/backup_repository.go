package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/saga-lims/saga-store/internal/model"
)

// BackupRepo stores generated CSV snapshots.  Old snapshots are pruned
// on every insert so the table never grows past the retention window.
type BackupRepo struct{ DB *sql.DB }

func NewBackupRepo(db *sql.DB) *BackupRepo { return &BackupRepo{DB: db} }

// Retention window for stored backups.
const backupRetention = 7 * 24 * time.Hour

// Insert stores a snapshot and prunes rows older than the retention
// window.  Prune failures are ignored; retention is opportunistic.
func (r *BackupRepo) Insert(ctx context.Context, b *model.Backup) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO backups (id, filename, data, created_by, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		b.ID, b.Filename, b.Data, b.CreatedBy, b.CreatedAt)
	if err != nil {
		return err
	}
	cutoff := b.CreatedAt.Add(-backupRetention)
	_, _ = r.DB.ExecContext(ctx, `DELETE FROM backups WHERE created_at < $1`, cutoff)
	return nil
}

// List returns backup metadata (no CSV payloads), newest first.
func (r *BackupRepo) List(ctx context.Context) ([]model.Backup, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, filename, created_by, created_at FROM backups ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Backup
	for rows.Next() {
		var b model.Backup
		if err := rows.Scan(&b.ID, &b.Filename, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByFilename fetches a full snapshot including its CSV payload.
func (r *BackupRepo) GetByFilename(ctx context.Context, filename string) (model.Backup, error) {
	var b model.Backup
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, filename, data, created_by, created_at FROM backups WHERE filename=$1 LIMIT 1`,
		filename).Scan(&b.ID, &b.Filename, &b.Data, &b.CreatedBy, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Backup{}, ErrNotFound
	}
	return b, err
}
