package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/saga-lims/saga-store/internal/model"
)

// AuditFilter narrows audit log listings.  Zero values mean "no
// filter"; Limit defaults to 100.
type AuditFilter struct {
	EntityType string
	EntityName string
	Action     string
	User       string
	Limit      int
}

// AuditRepo provides data access to the append-only audit_logs table.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert appends one audit row.  Callers treat failures as
// best-effort; this method just reports them.
func (r *AuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO audit_logs
		 (id, user_initials, user_name, entity_type, entity_id, action, entity_name,
		  changes, metadata, description, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		entry.ID, entry.UserInitials, entry.UserName, entry.EntityType, entry.EntityID,
		entry.Action, entry.EntityName, changes, metadata, entry.Description,
		entry.CreatedAt)
	return err
}

// List returns audit rows newest first, honoring the filter.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditLog, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id, user_initials, user_name, entity_type, entity_id, action,
	      entity_name, changes, metadata, description, created_at
	      FROM audit_logs WHERE 1=1`
	args := []any{}
	add := func(cond string, v string) {
		if v != "" {
			args = append(args, v)
			q += cond + "$" + strconv.Itoa(len(args))
		}
	}
	add(" AND entity_type=", f.EntityType)
	add(" AND entity_name=", f.EntityName)
	add(" AND action=", f.Action)
	add(" AND user_initials=", f.User)
	args = append(args, limit)
	q += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AuditLog
	for rows.Next() {
		var (
			e                 model.AuditLog
			changes, metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.UserInitials, &e.UserName, &e.EntityType,
			&e.EntityID, &e.Action, &e.EntityName, &changes, &metadata,
			&e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			_ = json.Unmarshal(changes, &e.Changes)
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &e.Metadata)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
