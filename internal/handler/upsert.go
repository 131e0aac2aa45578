package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/saga-lims/saga-store/internal/middleware"
	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/service"
)

// upsertBody is the POST /api/samples/upsert payload.
type upsertBody struct {
	SampleID    string         `json:"sample_id"`
	ContainerID string         `json:"container_id"`
	Position    string         `json:"position"`
	Data        map[string]any `json:"data"`
	Force       bool           `json:"force"`
	Source      string         `json:"source"`
}

// Upsert handles POST /api/samples/upsert, the scan-placement
// endpoint.  Exactly one of four things happens: nothing (the sample
// already sits there), a move, a fresh insert, or a 409 conflict when
// the cell is taken and force is not set.
func (h *SampleHandler) Upsert(c echo.Context) error {
	var body upsertBody
	if err := c.Bind(&body); err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	if strings.TrimSpace(body.SampleID) == "" {
		return errResponse(c, http.StatusBadRequest, "sample_id_required")
	}
	if strings.TrimSpace(body.ContainerID) == "" || strings.TrimSpace(body.Position) == "" {
		return errResponse(c, http.StatusBadRequest, "container_id_and_position_required")
	}

	source := body.Source
	if source == "" {
		source = "grid_edit"
	}
	res, err := h.Placer.Place(c.Request().Context(), service.PlacementRequest{
		SampleID:    body.SampleID,
		ContainerID: body.ContainerID,
		Position:    body.Position,
		Data:        body.Data,
		Force:       body.Force,
		User:        middleware.CallerInitials(c),
		Source:      source,
	})
	switch {
	case errors.Is(err, service.ErrPositionOccupied):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "position_occupied",
			"conflict": res.Conflict,
		})
	case err != nil:
		var se *service.StoreError
		if errors.As(err, &se) {
			return errResponseMsg(c, http.StatusInternalServerError, se.Code, se.Err.Error())
		}
		return internalError(c, h.Logger, "upsert", err)
	}

	auditPlacement(c, h.Audit, res, source)
	return c.JSON(http.StatusOK, echo.Map{"data": res.Sample, "action": res.Action})
}

// auditPlacement writes the audit entries a placement produced: one
// for the displaced occupant (if any) and one for the placed sample.
func auditPlacement(c echo.Context, rec *service.AuditRecorder, res service.PlacementResult, source string) {
	if res.Displaced != nil {
		ev := auditEvent(c, model.EntitySample, res.Displaced.ID, res.Displaced.SampleID, model.HistoryCheckedOut)
		ev.Metadata = map[string]any{
			"reason":       "overwritten",
			"container_id": strOrNil(res.Displaced.PreviousContainerID),
			"position":     strOrNil(res.Displaced.PreviousPosition),
			"source":       source,
		}
		ev.Description = fmt.Sprintf("Sample %s checked out (overwritten)", res.Displaced.SampleID)
		record(c, rec, ev)
	}

	if res.Action == service.ActionUnchanged {
		return
	}
	ev := auditEvent(c, model.EntitySample, res.Sample.ID, res.Sample.SampleID, res.Action)
	ev.Metadata = map[string]any{
		"container_id": strOrNil(res.Sample.ContainerID),
		"position":     strOrNil(res.Sample.Position),
		"source":       source,
	}
	ev.Description = fmt.Sprintf("Sample %s %s", res.Sample.SampleID, res.Action)
	record(c, rec, ev)
}
