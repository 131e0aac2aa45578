package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
)

// fakeStore keeps sample rows in memory and mimics the repository's
// lookup semantics (active rows only, oldest active row wins).
type fakeStore struct {
	rows    []model.Sample
	updates int
	inserts int
	failOn  string
}

func (f *fakeStore) FindActiveAtPosition(_ context.Context, containerID, position string) (model.Sample, error) {
	for _, r := range f.rows {
		if r.IsArchived || r.ContainerID == nil || r.Position == nil {
			continue
		}
		if *r.ContainerID == containerID && *r.Position == position {
			return r, nil
		}
	}
	return model.Sample{}, repository.ErrNotFound
}

func (f *fakeStore) FindActiveBySampleID(_ context.Context, sampleID string) (model.Sample, error) {
	var found *model.Sample
	for i, r := range f.rows {
		if r.IsArchived || r.SampleID != sampleID {
			continue
		}
		if found == nil || r.CreatedAt.Before(found.CreatedAt) {
			found = &f.rows[i]
		}
	}
	if found == nil {
		return model.Sample{}, repository.ErrNotFound
	}
	return *found, nil
}

func (f *fakeStore) Insert(_ context.Context, s *model.Sample) error {
	if f.failOn == "insert" {
		return errors.New("boom")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	f.inserts++
	f.rows = append(f.rows, *s)
	return nil
}

func (f *fakeStore) Update(_ context.Context, s *model.Sample) error {
	if f.failOn == "update" {
		return errors.New("boom")
	}
	for i, r := range f.rows {
		if r.ID == s.ID {
			f.updates++
			f.rows[i] = *s
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) byID(id string) model.Sample {
	for _, r := range f.rows {
		if r.ID == id {
			return r
		}
	}
	return model.Sample{}
}

func strptr(s string) *string { return &s }

func placedRow(sampleID, containerID, position string, createdAt time.Time) model.Sample {
	return model.Sample{
		ID:          uuid.NewString(),
		SampleID:    sampleID,
		ContainerID: strptr(containerID),
		Position:    strptr(position),
		CreatedAt:   createdAt,
	}
}

func newTestPlacer(store *fakeStore) *Placer {
	p := NewPlacer(store)
	p.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestPlaceInsertsNewSample(t *testing.T) {
	store := &fakeStore{}
	p := newTestPlacer(store)

	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID:    "  s-001  ",
		ContainerID: "box-1",
		Position:    "a1",
		User:        "JD",
		Data:        map[string]any{"note": "fresh"},
	})
	require.NoError(t, err)

	assert.Equal(t, ActionInserted, res.Action)
	assert.Equal(t, "S-001", res.Sample.SampleID)
	require.NotNil(t, res.Sample.Position)
	assert.Equal(t, "A1", *res.Sample.Position)
	require.Len(t, res.Sample.Data.History, 1)
	ev := res.Sample.Data.History[0]
	assert.Equal(t, model.HistoryInserted, ev.Action)
	assert.Equal(t, "JD", ev.User)
	assert.Equal(t, "grid_edit", ev.Source)
	assert.Equal(t, "box-1", ev.ToContainer)
	assert.Equal(t, "A1", ev.ToPosition)
	assert.Equal(t, "fresh", res.Sample.Data.Extra["note"])
	assert.Equal(t, 1, store.inserts)
}

func TestPlaceSamePositionIsUnchanged(t *testing.T) {
	store := &fakeStore{rows: []model.Sample{placedRow("S-001", "box-1", "A1", time.Now())}}
	p := newTestPlacer(store)

	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID: "s-001", ContainerID: "box-1", Position: " a1 ",
	})
	require.NoError(t, err)

	assert.Equal(t, ActionUnchanged, res.Action)
	assert.Zero(t, store.updates)
	assert.Zero(t, store.inserts)
}

func TestPlaceMovesExistingSample(t *testing.T) {
	store := &fakeStore{rows: []model.Sample{placedRow("S-001", "box-1", "A1", time.Now())}}
	p := newTestPlacer(store)

	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID: "S-001", ContainerID: "box-2", Position: "B5", User: "JD",
	})
	require.NoError(t, err)

	assert.Equal(t, ActionMoved, res.Action)
	assert.Equal(t, "box-2", *res.Sample.ContainerID)
	assert.Equal(t, "B5", *res.Sample.Position)
	require.Len(t, res.Sample.Data.History, 1)
	ev := res.Sample.Data.History[0]
	assert.Equal(t, model.HistoryMoved, ev.Action)
	assert.Equal(t, "box-1", ev.FromContainer)
	assert.Equal(t, "A1", ev.FromPosition)
	assert.Equal(t, "box-2", ev.ToContainer)
	assert.Equal(t, "B5", ev.ToPosition)
	assert.Equal(t, 1, store.updates)
	assert.Zero(t, store.inserts)
	assert.Len(t, store.rows, 1)
}

func TestPlaceMoveClearsCheckoutState(t *testing.T) {
	now := time.Now()
	row := placedRow("S-001", "", "", now)
	row.ContainerID = nil
	row.Position = nil
	row.IsCheckedOut = true
	row.CheckedOutBy = strptr("AB")
	row.CheckedOutAt = &now
	row.PreviousContainerID = strptr("box-1")
	row.PreviousPosition = strptr("A1")
	store := &fakeStore{rows: []model.Sample{row}}
	p := newTestPlacer(store)

	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID: "S-001", ContainerID: "box-3", Position: "C2", User: "JD",
	})
	require.NoError(t, err)

	assert.Equal(t, ActionMoved, res.Action)
	assert.False(t, res.Sample.IsCheckedOut)
	assert.Nil(t, res.Sample.CheckedOutBy)
	assert.Nil(t, res.Sample.CheckedOutAt)
	assert.Nil(t, res.Sample.PreviousContainerID)
	assert.Nil(t, res.Sample.PreviousPosition)
}

func TestPlaceConflictWithoutForce(t *testing.T) {
	occupant := placedRow("S-OLD", "box-1", "A1", time.Now())
	store := &fakeStore{rows: []model.Sample{occupant}}
	p := newTestPlacer(store)

	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID: "S-NEW", ContainerID: "box-1", Position: "A1",
	})
	require.ErrorIs(t, err, ErrPositionOccupied)

	require.NotNil(t, res.Conflict)
	assert.Equal(t, "S-OLD", res.Conflict.OccupyingID)
	assert.Equal(t, occupant.ID, res.Conflict.OccupyingRowID)
	assert.Equal(t, "S-NEW", res.Conflict.RequestedID)
	assert.Equal(t, "A1", res.Conflict.Position)

	// Nothing was written.
	assert.Zero(t, store.updates)
	assert.Zero(t, store.inserts)
	assert.False(t, store.rows[0].IsCheckedOut)
}

func TestPlaceForceDisplacesOccupant(t *testing.T) {
	occupant := placedRow("S-OLD", "box-1", "A1", time.Now())
	store := &fakeStore{rows: []model.Sample{occupant}}
	p := newTestPlacer(store)

	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID: "S-NEW", ContainerID: "box-1", Position: "A1",
		Force: true, User: "JD",
	})
	require.NoError(t, err)

	assert.Equal(t, ActionInserted, res.Action)
	require.NotNil(t, res.Displaced)

	old := store.byID(occupant.ID)
	assert.True(t, old.IsCheckedOut)
	assert.Nil(t, old.ContainerID)
	assert.Nil(t, old.Position)
	require.NotNil(t, old.PreviousContainerID)
	assert.Equal(t, "box-1", *old.PreviousContainerID)
	require.NotNil(t, old.PreviousPosition)
	assert.Equal(t, "A1", *old.PreviousPosition)
	require.NotEmpty(t, old.Data.History)
	ev := old.Data.History[len(old.Data.History)-1]
	assert.Equal(t, model.HistoryCheckedOut, ev.Action)
	assert.Equal(t, "overwritten", ev.Reason)
	assert.Equal(t, "box-1", ev.FromContainer)
	assert.Equal(t, "A1", ev.FromPosition)
}

func TestPlaceSameSampleAtOwnPositionWithForce(t *testing.T) {
	store := &fakeStore{rows: []model.Sample{placedRow("S-001", "box-1", "A1", time.Now())}}
	p := newTestPlacer(store)

	// Re-scanning a sample onto its own cell must not displace it,
	// force or not.
	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID: "S-001", ContainerID: "box-1", Position: "A1", Force: true,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, res.Action)
	assert.False(t, store.rows[0].IsCheckedOut)
}

func TestPlaceArchivedRowsDoNotBlock(t *testing.T) {
	archived := placedRow("S-OLD", "box-1", "A1", time.Now().Add(-time.Hour))
	archived.IsArchived = true
	archivedDup := placedRow("S-NEW", "box-9", "C3", time.Now().Add(-time.Hour))
	archivedDup.IsArchived = true
	store := &fakeStore{rows: []model.Sample{archived, archivedDup}}
	p := newTestPlacer(store)

	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID: "S-NEW", ContainerID: "box-1", Position: "A1",
	})
	require.NoError(t, err)

	// The archived occupant does not conflict, and the archived row
	// with the same sample id is not resurrected.
	assert.Equal(t, ActionInserted, res.Action)
	assert.Len(t, store.rows, 3)
	assert.True(t, store.rows[1].IsArchived)
}

func TestPlaceOldestActiveRowWins(t *testing.T) {
	older := placedRow("S-001", "box-1", "A1", time.Now().Add(-2*time.Hour))
	newer := placedRow("S-001", "box-2", "B2", time.Now())
	store := &fakeStore{rows: []model.Sample{newer, older}}
	p := newTestPlacer(store)

	res, err := p.Place(context.Background(), PlacementRequest{
		SampleID: "S-001", ContainerID: "box-3", Position: "C3",
	})
	require.NoError(t, err)

	assert.Equal(t, ActionMoved, res.Action)
	assert.Equal(t, older.ID, res.Sample.ID)
}

func TestPlaceStoreFailureCodes(t *testing.T) {
	t.Run("insert", func(t *testing.T) {
		store := &fakeStore{failOn: "insert"}
		p := newTestPlacer(store)
		_, err := p.Place(context.Background(), PlacementRequest{
			SampleID: "S-1", ContainerID: "box-1", Position: "A1",
		})
		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "insert_failed", se.Code)
	})

	t.Run("displace", func(t *testing.T) {
		store := &fakeStore{
			rows:   []model.Sample{placedRow("S-OLD", "box-1", "A1", time.Now())},
			failOn: "update",
		}
		p := newTestPlacer(store)
		_, err := p.Place(context.Background(), PlacementRequest{
			SampleID: "S-NEW", ContainerID: "box-1", Position: "A1", Force: true,
		})
		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "checkout_failed", se.Code)
	})
}
