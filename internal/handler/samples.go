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
	"github.com/saga-lims/saga-store/internal/service"
)

// SampleHandler serves sample listing, mutation, placement and the
// checkout/checkin workflows.
type SampleHandler struct {
	Samples *repository.SampleRepo
	Placer  *service.Placer
	Audit   *service.AuditRecorder
	Logger  *zap.Logger
}

func NewSampleHandler(samples *repository.SampleRepo, placer *service.Placer, audit *service.AuditRecorder, logger *zap.Logger) *SampleHandler {
	return &SampleHandler{Samples: samples, Placer: placer, Audit: audit, Logger: logger}
}

// List handles GET /api/samples with optional container_id and
// archived filters, newest first.
func (h *SampleHandler) List(c echo.Context) error {
	archived := c.QueryParam("archived") == "true"
	containerID := c.QueryParam("container_id")
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Samples.List(ctx, containerID, archived)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if items == nil {
		items = []model.Sample{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "count": len(items)})
}

// Get handles GET /api/samples/:id.
func (h *SampleHandler) Get(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errResponse(c, http.StatusBadRequest, "sample_id_required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Samples.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusNotFound, "sample_not_found")
	}
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	return dataResponse(c, http.StatusOK, s)
}

// sampleUpdateBody is the PATCH/PUT bind target.  Pointer fields keep
// "absent" distinguishable from explicit zero values.
type sampleUpdateBody struct {
	IsArchived  *bool          `json:"is_archived"`
	IsTraining  *bool          `json:"is_training"`
	ContainerID *string        `json:"container_id"`
	Position    *string        `json:"position"`
	Data        map[string]any `json:"data"`
}

// Update handles PUT/PATCH /api/samples/:id: archive state, training
// flag, manual moves, and free-form data merges.  Each kind of change
// appends its history event and writes its audit entry.
func (h *SampleHandler) Update(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errResponse(c, http.StatusBadRequest, "sample_id_required")
	}
	var body sampleUpdateBody
	if err := c.Bind(&body); err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	current, err := h.Samples.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusNotFound, "sample_not_found")
	}
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}

	user := middleware.CallerInitials(c)
	now := time.Now().UTC()
	updated := current

	if body.IsArchived != nil && *body.IsArchived != current.IsArchived {
		updated.IsArchived = *body.IsArchived
		action := model.HistoryUnarchived
		if updated.IsArchived {
			action = model.HistoryArchived
		}
		updated.Data.History = append(updated.Data.History, model.HistoryEvent{
			When:   now,
			Action: action,
			User:   user,
			Source: "manual_edit",
		})
		ev := auditEvent(c, model.EntitySample, id, current.SampleID, action)
		ev.Metadata = map[string]any{
			"container_id": strOrNil(current.ContainerID),
			"position":     strOrNil(current.Position),
		}
		ev.Description = fmt.Sprintf("Sample %s %s", current.SampleID, action)
		record(c, h.Audit, ev)
	}

	if body.IsTraining != nil && *body.IsTraining != current.IsTraining {
		updated.IsTraining = *body.IsTraining
		action := "unmarked_training"
		verb := "unmarked as training"
		if updated.IsTraining {
			action = "marked_training"
			verb = "marked as training"
		}
		ev := auditEvent(c, model.EntitySample, id, current.SampleID, action)
		ev.Metadata = map[string]any{
			"container_id": strOrNil(current.ContainerID),
			"position":     strOrNil(current.Position),
		}
		ev.Description = fmt.Sprintf("Sample %s %s", current.SampleID, verb)
		record(c, h.Audit, ev)
	}

	if body.ContainerID != nil || body.Position != nil {
		event := model.HistoryEvent{
			When:          now,
			Action:        model.HistoryMoved,
			User:          user,
			Source:        "manual_edit",
			FromContainer: deref(current.ContainerID),
			FromPosition:  deref(current.Position),
		}
		if body.ContainerID != nil {
			updated.ContainerID = body.ContainerID
			event.ToContainer = *body.ContainerID
		} else {
			event.ToContainer = deref(current.ContainerID)
		}
		if body.Position != nil {
			pos := grid.Normalize(*body.Position)
			updated.Position = &pos
			event.ToPosition = pos
		} else {
			event.ToPosition = deref(current.Position)
		}
		updated.Data.History = append(updated.Data.History, event)

		ev := auditEvent(c, model.EntitySample, id, current.SampleID, model.HistoryMoved)
		ev.Metadata = map[string]any{
			"from_container": event.FromContainer,
			"from_position":  event.FromPosition,
			"to_container":   event.ToContainer,
			"to_position":    event.ToPosition,
		}
		ev.Description = fmt.Sprintf("Sample %s moved", current.SampleID)
		record(c, h.Audit, ev)
	}

	if body.Data != nil {
		updated.Data.Merge(body.Data)
	}

	if err := h.Samples.Update(ctx, &updated); err != nil {
		return errResponseMsg(c, http.StatusInternalServerError, "update_failed", err.Error())
	}
	return dataResponse(c, http.StatusOK, updated)
}

// Delete handles DELETE /api/samples/:id.  Hard delete; archiving is
// the normal removal path.
func (h *SampleHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errResponse(c, http.StatusBadRequest, "sample_id_required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Samples.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusNotFound, "sample_not_found")
	}
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if err := h.Samples.Delete(ctx, id); err != nil {
		return errResponseMsg(c, http.StatusInternalServerError, "delete_failed", err.Error())
	}

	ev := auditEvent(c, model.EntitySample, id, s.SampleID, "deleted")
	ev.Metadata = map[string]any{
		"container_id": strOrNil(s.ContainerID),
		"position":     strOrNil(s.Position),
	}
	ev.Description = fmt.Sprintf("Sample %s permanently deleted", s.SampleID)
	record(c, h.Audit, ev)

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
