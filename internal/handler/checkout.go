package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/grid"
	"github.com/saga-lims/saga-store/internal/middleware"
	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
)

// checkoutBody drives both bulk checkout and checkin.  Sample ids are
// the lab-facing identifiers, not row ids; a worklist upload yields
// exactly this list.
type checkoutBody struct {
	SampleIDs    []string `json:"sample_ids"`
	UserInitials string   `json:"user_initials"`
}

// Checkout handles POST /api/samples/checkout.  Each active placed
// sample loses its location (stashed for a later checkin) and gets a
// checked_out history event.  Samples already checked out, archived,
// or unknown are skipped rather than failing the batch.
func (h *SampleHandler) Checkout(c echo.Context) error {
	var body checkoutBody
	if err := c.Bind(&body); err != nil || len(body.SampleIDs) == 0 {
		return errResponse(c, http.StatusBadRequest, "sample_id_required")
	}
	user := body.UserInitials
	if user == "" {
		user = middleware.CallerInitials(c)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	now := time.Now().UTC()
	checkedOut := 0
	var skipped []string
	for _, raw := range body.SampleIDs {
		sampleID := grid.NormalizeSampleID(raw)
		s, err := h.Samples.FindActiveBySampleID(ctx, sampleID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && s.IsCheckedOut) {
			skipped = append(skipped, sampleID)
			continue
		}
		if err != nil {
			return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
		}

		prevContainer, prevPosition := s.ContainerID, s.Position
		s.IsCheckedOut = true
		s.CheckedOutBy = &user
		s.CheckedOutAt = &now
		s.PreviousContainerID = prevContainer
		s.PreviousPosition = prevPosition
		s.ContainerID = nil
		s.Position = nil
		s.Data.History = append(s.Data.History, model.HistoryEvent{
			When:          now,
			Action:        model.HistoryCheckedOut,
			User:          user,
			Source:        "worklist",
			FromContainer: deref(prevContainer),
			FromPosition:  deref(prevPosition),
		})
		if err := h.Samples.Update(ctx, &s); err != nil {
			h.Logger.Warn("checkout update failed",
				zap.String("sample_id", sampleID), zap.Error(err))
			skipped = append(skipped, sampleID)
			continue
		}
		checkedOut++

		ev := auditEvent(c, model.EntitySample, s.ID, s.SampleID, model.HistoryCheckedOut)
		ev.Metadata = map[string]any{
			"container_id": strOrNil(prevContainer),
			"position":     strOrNil(prevPosition),
			"source":       "worklist",
		}
		ev.Description = fmt.Sprintf("Sample %s checked out", s.SampleID)
		record(c, h.Audit, ev)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"checked_out": checkedOut,
		"skipped":     skipped,
	})
}

// Checkin handles POST /api/samples/checkin: the inverse of checkout.
// The stashed previous location is restored and the checkout fields
// cleared.  Samples that are not checked out are skipped.
func (h *SampleHandler) Checkin(c echo.Context) error {
	var body checkoutBody
	if err := c.Bind(&body); err != nil || len(body.SampleIDs) == 0 {
		return errResponse(c, http.StatusBadRequest, "sample_id_required")
	}
	user := body.UserInitials
	if user == "" {
		user = middleware.CallerInitials(c)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	now := time.Now().UTC()
	checkedIn := 0
	var skipped []string
	for _, raw := range body.SampleIDs {
		sampleID := grid.NormalizeSampleID(raw)
		s, err := h.Samples.FindActiveBySampleID(ctx, sampleID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !s.IsCheckedOut) {
			skipped = append(skipped, sampleID)
			continue
		}
		if err != nil {
			return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
		}

		s.ContainerID = s.PreviousContainerID
		s.Position = s.PreviousPosition
		s.IsCheckedOut = false
		s.CheckedOutBy = nil
		s.CheckedOutAt = nil
		s.PreviousContainerID = nil
		s.PreviousPosition = nil
		s.Data.History = append(s.Data.History, model.HistoryEvent{
			When:        now,
			Action:      model.HistoryCheckedIn,
			User:        user,
			Source:      "worklist",
			ToContainer: deref(s.ContainerID),
			ToPosition:  deref(s.Position),
		})
		if err := h.Samples.Update(ctx, &s); err != nil {
			h.Logger.Warn("checkin update failed",
				zap.String("sample_id", sampleID), zap.Error(err))
			skipped = append(skipped, sampleID)
			continue
		}
		checkedIn++

		ev := auditEvent(c, model.EntitySample, s.ID, s.SampleID, model.HistoryCheckedIn)
		ev.Metadata = map[string]any{
			"container_id": strOrNil(s.ContainerID),
			"position":     strOrNil(s.Position),
			"source":       "worklist",
		}
		ev.Description = fmt.Sprintf("Sample %s checked in", s.SampleID)
		record(c, h.Audit, ev)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"checked_in": checkedIn,
		"skipped":    skipped,
	})
}
