// Package service holds the business logic that sits between HTTP
// handlers and repositories.  The placement engine implements the
// move/displace/checkout semantics of putting a sample into a grid
// cell.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saga-lims/saga-store/internal/grid"
	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
)

// Placement actions reported to the client.
const (
	ActionInserted  = "inserted"
	ActionMoved     = "moved"
	ActionUnchanged = "unchanged"
)

// SampleStore is the narrow persistence surface the placement engine
// needs.  *repository.SampleRepo satisfies it; tests plug in fakes.
type SampleStore interface {
	FindActiveAtPosition(ctx context.Context, containerID, position string) (model.Sample, error)
	FindActiveBySampleID(ctx context.Context, sampleID string) (model.Sample, error)
	Insert(ctx context.Context, s *model.Sample) error
	Update(ctx context.Context, s *model.Sample) error
}

// PlacementRequest is a validated, normalized request to put a sample
// at a grid cell.  Source names the workflow that produced it and ends
// up in history events ("grid_edit", "bulk_import", ...).
type PlacementRequest struct {
	SampleID    string
	ContainerID string
	Position    string
	Data        map[string]any
	Force       bool
	User        string
	Source      string
}

// Conflict describes an occupied cell that blocked a placement.
type Conflict struct {
	ContainerID    string `json:"container_id"`
	Position       string `json:"position"`
	OccupyingID    string `json:"occupying_sample_id"`
	OccupyingRowID string `json:"occupying_id"`
	RequestedID    string `json:"requested_sample_id"`
}

// ErrPositionOccupied is returned when the target cell holds a
// different active sample and force was not set.  Handlers map it to
// HTTP 409 position_occupied.
var ErrPositionOccupied = errors.New("position occupied")

// StoreError wraps a failed persistence call with the stable error
// code the HTTP layer should surface (checkout_failed, update_failed,
// insert_failed, database_error).
type StoreError struct {
	Code string
	Err  error
}

func (e *StoreError) Error() string { return e.Code + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// PlacementResult reports what the engine did.
type PlacementResult struct {
	Action    string
	Sample    model.Sample
	Conflict  *Conflict
	Displaced *model.Sample
}

// Placer implements the placement decision logic.  It is deliberately
// free of HTTP concerns; the upsert handler and the bulk importer both
// drive it.
type Placer struct {
	Store SampleStore
	Now   func() time.Time
}

func NewPlacer(store SampleStore) *Placer {
	return &Placer{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// Place resolves a placement request to exactly one of: unchanged,
// moved, inserted, or a position conflict.  The caller must have
// validated that SampleID, ContainerID and Position are non-empty; the
// engine performs normalization itself so every comparison operates on
// canonical values.
//
// The occupancy check and the subsequent write are separate round
// trips; concurrent requests for the same cell are not serialized
// here.  A partial unique index on active (container_id, position)
// rows is the place to close that gap.
func (p *Placer) Place(ctx context.Context, req PlacementRequest) (PlacementResult, error) {
	sampleID := grid.NormalizeSampleID(req.SampleID)
	position := grid.Normalize(req.Position)
	now := p.Now()
	user := req.User
	if user == "" {
		user = "unknown"
	}
	source := req.Source
	if source == "" {
		source = "grid_edit"
	}

	// Step 1: occupancy check on the target cell.
	occupant, err := p.Store.FindActiveAtPosition(ctx, req.ContainerID, position)
	switch {
	case err == nil && grid.NormalizeSampleID(occupant.SampleID) != sampleID:
		if !req.Force {
			return PlacementResult{Conflict: &Conflict{
				ContainerID:    req.ContainerID,
				Position:       position,
				OccupyingID:    occupant.SampleID,
				OccupyingRowID: occupant.ID,
				RequestedID:    sampleID,
			}}, ErrPositionOccupied
		}
		displaced, derr := p.displace(ctx, occupant, user, source, now)
		if derr != nil {
			return PlacementResult{}, derr
		}
		res, perr := p.placeNormalized(ctx, sampleID, req.ContainerID, position, req.Data, user, source, now)
		if perr == nil {
			res.Displaced = &displaced
		}
		return res, perr
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return PlacementResult{}, &StoreError{Code: "database_error", Err: err}
	}

	return p.placeNormalized(ctx, sampleID, req.ContainerID, position, req.Data, user, source, now)
}

// displace checks out the sample occupying a cell that is being
// overwritten: the row keeps existing but loses its location, with the
// previous location stashed for a later check-in.
func (p *Placer) displace(ctx context.Context, occupant model.Sample, user, source string, now time.Time) (model.Sample, error) {
	prevContainer := occupant.ContainerID
	prevPosition := occupant.Position
	occupant.IsCheckedOut = true
	occupant.CheckedOutBy = &user
	occupant.CheckedOutAt = &now
	occupant.PreviousContainerID = prevContainer
	occupant.PreviousPosition = prevPosition
	occupant.ContainerID = nil
	occupant.Position = nil
	occupant.Data.History = append(occupant.Data.History, model.HistoryEvent{
		When:          now,
		Action:        model.HistoryCheckedOut,
		User:          user,
		Source:        source,
		Reason:        "overwritten",
		FromContainer: deref(prevContainer),
		FromPosition:  deref(prevPosition),
	})
	if err := p.Store.Update(ctx, &occupant); err != nil {
		return model.Sample{}, &StoreError{Code: "checkout_failed", Err: err}
	}
	return occupant, nil
}

func (p *Placer) placeNormalized(ctx context.Context, sampleID, containerID, position string, data map[string]any, user, source string, now time.Time) (PlacementResult, error) {
	existing, err := p.Store.FindActiveBySampleID(ctx, sampleID)
	switch {
	case err == nil:
		if existing.PlacedAt(containerID, position) {
			return PlacementResult{Action: ActionUnchanged, Sample: existing}, nil
		}
		fromContainer := deref(existing.ContainerID)
		fromPosition := deref(existing.Position)
		existing.ContainerID = &containerID
		existing.Position = &position
		// A re-scan of a checked-out sample puts it back on the grid.
		existing.IsCheckedOut = false
		existing.CheckedOutBy = nil
		existing.CheckedOutAt = nil
		existing.PreviousContainerID = nil
		existing.PreviousPosition = nil
		existing.Data.Merge(data)
		existing.Data.History = append(existing.Data.History, model.HistoryEvent{
			When:          now,
			Action:        model.HistoryMoved,
			User:          user,
			Source:        source,
			FromContainer: fromContainer,
			FromPosition:  fromPosition,
			ToContainer:   containerID,
			ToPosition:    position,
		})
		if err := p.Store.Update(ctx, &existing); err != nil {
			return PlacementResult{}, &StoreError{Code: "update_failed", Err: err}
		}
		return PlacementResult{Action: ActionMoved, Sample: existing}, nil

	case errors.Is(err, repository.ErrNotFound):
		// Archived rows with the same sample_id may exist; a fresh
		// active row is inserted alongside them.
		s := model.Sample{
			SampleID:    sampleID,
			ContainerID: &containerID,
			Position:    &position,
		}
		s.Data.Merge(data)
		s.Data.History = []model.HistoryEvent{{
			When:        now,
			Action:      model.HistoryInserted,
			User:        user,
			Source:      source,
			ToContainer: containerID,
			ToPosition:  position,
		}}
		if err := p.Store.Insert(ctx, &s); err != nil {
			return PlacementResult{}, &StoreError{Code: "insert_failed", Err: err}
		}
		return PlacementResult{Action: ActionInserted, Sample: s}, nil

	default:
		return PlacementResult{}, &StoreError{Code: "database_error", Err: fmt.Errorf("active lookup: %w", err)}
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
