package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/saga-lims/saga-store/internal/model"
)

const sampleColumns = `id, sample_id, container_id, position, is_archived, is_training,
	is_checked_out, checked_out_by, checked_out_at, previous_container_id,
	previous_position, data, created_at, updated_at`

// SampleRepo provides data access to the samples table.  All sample_id
// and position values are stored normalized (trimmed, upper-cased);
// callers are expected to normalize before querying.
type SampleRepo struct{ DB *sql.DB }

func NewSampleRepo(db *sql.DB) *SampleRepo { return &SampleRepo{DB: db} }

func scanSample(row interface{ Scan(...any) error }) (model.Sample, error) {
	var (
		s                      model.Sample
		containerID, position  sql.NullString
		checkedOutBy           sql.NullString
		checkedOutAt           sql.NullTime
		prevContainer, prevPos sql.NullString
		data                   []byte
	)
	err := row.Scan(&s.ID, &s.SampleID, &containerID, &position, &s.IsArchived,
		&s.IsTraining, &s.IsCheckedOut, &checkedOutBy, &checkedOutAt,
		&prevContainer, &prevPos, &data, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Sample{}, err
	}
	s.ContainerID = nullStr(containerID)
	s.Position = nullStr(position)
	s.CheckedOutBy = nullStr(checkedOutBy)
	if checkedOutAt.Valid {
		t := checkedOutAt.Time
		s.CheckedOutAt = &t
	}
	s.PreviousContainerID = nullStr(prevContainer)
	s.PreviousPosition = nullStr(prevPos)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.Data); err != nil {
			return model.Sample{}, err
		}
	}
	return s, nil
}

func (r *SampleRepo) queryMany(ctx context.Context, q string, args ...any) ([]model.Sample, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// List returns samples filtered by archive state and optionally by
// container, newest first.
func (r *SampleRepo) List(ctx context.Context, containerID string, archived bool) ([]model.Sample, error) {
	if containerID != "" {
		return r.queryMany(ctx,
			`SELECT `+sampleColumns+` FROM samples
			 WHERE container_id=$1 AND is_archived=$2 ORDER BY created_at DESC`,
			containerID, archived)
	}
	return r.queryMany(ctx,
		`SELECT `+sampleColumns+` FROM samples WHERE is_archived=$1 ORDER BY created_at DESC`,
		archived)
}

// ListAll returns every sample row regardless of state.  Used by the
// backup snapshot.
func (r *SampleRepo) ListAll(ctx context.Context) ([]model.Sample, error) {
	return r.queryMany(ctx, `SELECT `+sampleColumns+` FROM samples ORDER BY created_at ASC`)
}

// GetByID fetches a sample row by primary key.
func (r *SampleRepo) GetByID(ctx context.Context, id string) (model.Sample, error) {
	s, err := scanSample(r.DB.QueryRowContext(ctx,
		`SELECT `+sampleColumns+` FROM samples WHERE id=$1 LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return model.Sample{}, ErrNotFound
	}
	return s, err
}

// FindActiveBySampleID returns the oldest non-archived row carrying the
// normalized sample ID, or ErrNotFound.  At most one such row should
// exist; when duplicates sneak in the earliest-created row wins, which
// keeps behavior deterministic without pretending the invariant is
// enforced here.
func (r *SampleRepo) FindActiveBySampleID(ctx context.Context, sampleID string) (model.Sample, error) {
	s, err := scanSample(r.DB.QueryRowContext(ctx,
		`SELECT `+sampleColumns+` FROM samples
		 WHERE sample_id=$1 AND is_archived=false
		 ORDER BY created_at ASC LIMIT 1`, sampleID))
	if err == sql.ErrNoRows {
		return model.Sample{}, ErrNotFound
	}
	return s, err
}

// FindActiveAtPosition returns the non-archived sample occupying the
// given cell, or ErrNotFound when the cell is free.
func (r *SampleRepo) FindActiveAtPosition(ctx context.Context, containerID, position string) (model.Sample, error) {
	s, err := scanSample(r.DB.QueryRowContext(ctx,
		`SELECT `+sampleColumns+` FROM samples
		 WHERE container_id=$1 AND upper(position)=$2 AND is_archived=false
		 ORDER BY created_at ASC LIMIT 1`, containerID, position))
	if err == sql.ErrNoRows {
		return model.Sample{}, ErrNotFound
	}
	return s, err
}

// Insert creates a new sample row.  An empty ID is replaced with a
// generated uuid.
func (r *SampleRepo) Insert(ctx context.Context, s *model.Sample) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	data, err := json.Marshal(s.Data)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO samples
		 (id, sample_id, container_id, position, is_archived, is_training, is_checked_out,
		  checked_out_by, checked_out_at, previous_container_id, previous_position, data,
		  created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		s.ID, s.SampleID, strNull(s.ContainerID), strNull(s.Position), s.IsArchived,
		s.IsTraining, s.IsCheckedOut, strNull(s.CheckedOutBy), timeNull(s.CheckedOutAt),
		strNull(s.PreviousContainerID), strNull(s.PreviousPosition), data,
		s.CreatedAt, s.UpdatedAt)
	return err
}

// Update overwrites the mutable fields of a sample row and bumps
// updated_at.
func (r *SampleRepo) Update(ctx context.Context, s *model.Sample) error {
	s.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(s.Data)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE samples SET
		 sample_id=$2, container_id=$3, position=$4, is_archived=$5, is_training=$6,
		 is_checked_out=$7, checked_out_by=$8, checked_out_at=$9,
		 previous_container_id=$10, previous_position=$11, data=$12, updated_at=$13
		 WHERE id=$1`,
		s.ID, s.SampleID, strNull(s.ContainerID), strNull(s.Position), s.IsArchived,
		s.IsTraining, s.IsCheckedOut, strNull(s.CheckedOutBy), timeNull(s.CheckedOutAt),
		strNull(s.PreviousContainerID), strNull(s.PreviousPosition), data, s.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes a sample row.  Use with caution; archiving is the
// normal removal path.
func (r *SampleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM samples WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func timeNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
