package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/grid"
	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
	"github.com/saga-lims/saga-store/internal/service"
)

// ContainerHandler serves the containers CRUD surface.
type ContainerHandler struct {
	Containers *repository.ContainerRepo
	Samples    *repository.SampleRepo
	Audit      *service.AuditRecorder
	Logger     *zap.Logger
}

func NewContainerHandler(containers *repository.ContainerRepo, samples *repository.SampleRepo, audit *service.AuditRecorder, logger *zap.Logger) *ContainerHandler {
	return &ContainerHandler{Containers: containers, Samples: samples, Audit: audit, Logger: logger}
}

// containerBody is the bind target for create and update requests.
// Pointer fields distinguish "absent" from "set to zero value" so a
// PATCH only touches what the client sent.
type containerBody struct {
	ID           *string `json:"id"`
	Name         *string `json:"name"`
	Location     *string `json:"location"`
	Layout       *string `json:"layout"`
	Type         *string `json:"type"`
	SampleType   *string `json:"sample_type"`
	Temperature  *string `json:"temperature"`
	Archived     *bool   `json:"archived"`
	Training     *bool   `json:"training"`
	ColdStorage  *string `json:"cold_storage_id"`
	RackID       *string `json:"rack_id"`
	RackPosition *string `json:"rack_position"`
}

// List handles GET /api/containers.  archived=true switches to the
// archived set; the default lists active containers, newest updated
// first, with total/used occupancy annotated.
func (h *ContainerHandler) List(c echo.Context) error {
	archived := c.QueryParam("archived") == "true"
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Containers.List(ctx, archived)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	for i := range items {
		annotateCapacity(&items[i])
	}
	if items == nil {
		items = []model.Container{}
	}
	return dataResponse(c, http.StatusOK, items)
}

// Get handles GET /api/containers/:id and returns the container with
// its active samples embedded.
func (h *ContainerHandler) Get(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errResponse(c, http.StatusBadRequest, "missing_id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	container, err := h.Containers.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusNotFound, "not_found")
	}
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	samples, err := h.Samples.List(ctx, id, false)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	container.Samples = samples
	container.Used = len(samples)
	annotateCapacity(&container)
	return dataResponse(c, http.StatusOK, container)
}

// Create handles POST /api/containers.
func (h *ContainerHandler) Create(c echo.Context) error {
	var body containerBody
	if err := c.Bind(&body); err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
		return errResponse(c, http.StatusBadRequest, "missing_name")
	}

	container := model.Container{
		Name:          strings.TrimSpace(*body.Name),
		ColdStorageID: body.ColdStorage,
		RackID:        body.RackID,
		RackPosition:  body.RackPosition,
	}
	if body.ID != nil {
		container.ID = *body.ID
	}
	if body.Location != nil {
		container.Location = *body.Location
	}
	if body.Layout != nil {
		container.Layout = *body.Layout
	}
	if body.Type != nil {
		container.Type = *body.Type
	}
	if body.SampleType != nil {
		container.SampleType = *body.SampleType
	}
	if body.Temperature != nil {
		container.Temperature = *body.Temperature
	}
	if body.Archived != nil {
		container.Archived = *body.Archived
	}
	if body.Training != nil {
		container.Training = *body.Training
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Containers.Create(ctx, &container); err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "insert_failed", err.Error())
	}
	annotateCapacity(&container)

	ev := auditEvent(c, model.EntityContainer, container.ID, container.Name, "created")
	ev.Metadata = map[string]any{
		"location": container.Location,
		"layout":   container.Layout,
		"type":     container.Type,
	}
	ev.Description = fmt.Sprintf("Created container %q", container.Name)
	record(c, h.Audit, ev)

	return dataResponse(c, http.StatusCreated, container)
}

// Update handles PUT/PATCH /api/containers/:id.  The diff against the
// prior row becomes the audit changes object; archiving and
// unarchiving get their own audit actions.
func (h *ContainerHandler) Update(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errResponse(c, http.StatusBadRequest, "missing_id")
	}
	var body containerBody
	if err := c.Bind(&body); err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	original, err := h.Containers.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusNotFound, "not_found")
	}
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}

	updated := original
	if body.Name != nil {
		updated.Name = *body.Name
	}
	if body.Location != nil {
		updated.Location = *body.Location
	}
	if body.Layout != nil {
		updated.Layout = *body.Layout
	}
	if body.Type != nil {
		updated.Type = *body.Type
	}
	if body.SampleType != nil {
		updated.SampleType = *body.SampleType
	}
	if body.Temperature != nil {
		updated.Temperature = *body.Temperature
	}
	if body.Archived != nil {
		updated.Archived = *body.Archived
	}
	if body.Training != nil {
		updated.Training = *body.Training
	}
	if body.ColdStorage != nil {
		updated.ColdStorageID = body.ColdStorage
	}
	if body.RackID != nil {
		updated.RackID = body.RackID
	}
	if body.RackPosition != nil {
		updated.RackPosition = body.RackPosition
	}

	if err := h.Containers.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errResponse(c, http.StatusNotFound, "not_found")
		}
		return errResponseMsg(c, http.StatusBadGateway, "update_failed", err.Error())
	}
	annotateCapacity(&updated)

	changes, changedFields := diffContainers(original, updated)
	if len(changedFields) > 0 {
		action := "updated"
		if updated.Archived && !original.Archived {
			action = "archived"
		} else if !updated.Archived && original.Archived {
			action = "unarchived"
		}
		ev := auditEvent(c, model.EntityContainer, updated.ID, updated.Name, action)
		ev.Changes = changes
		ev.Metadata = map[string]any{
			"location":        updated.Location,
			"layout":          updated.Layout,
			"temperature":     updated.Temperature,
			"type":            updated.Type,
			"cold_storage_id": strOrNil(updated.ColdStorageID),
			"rack_id":         strOrNil(updated.RackID),
			"rack_position":   strOrNil(updated.RackPosition),
		}
		ev.Description = fmt.Sprintf("Updated container %q: %s", updated.Name, strings.Join(changedFields, ", "))
		record(c, h.Audit, ev)
	}

	return dataResponse(c, http.StatusOK, updated)
}

// Delete handles DELETE /api/containers/:id.  Samples in the container
// are deleted first, then the container itself.
func (h *ContainerHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errResponse(c, http.StatusBadRequest, "missing_id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	container, err := h.Containers.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusNotFound, "not_found")
	}
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}

	deleted, err := h.Containers.DeleteCascade(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return errResponseMsg(c, http.StatusBadGateway, "delete_failed", err.Error())
	}

	ev := auditEvent(c, model.EntityContainer, id, container.Name, "deleted")
	ev.Metadata = map[string]any{
		"location":        container.Location,
		"layout":          container.Layout,
		"samples_deleted": deleted,
	}
	ev.Description = fmt.Sprintf("Deleted container %q with %d samples", container.Name, deleted)
	record(c, h.Audit, ev)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "samples_deleted": deleted})
}

// NextFree handles GET /api/containers/:id/next_free.  It returns the
// next unoccupied position in column-first scan order, starting after
// the optional `after` position.  Scan placement uses it to advance
// the cursor between reads.
func (h *ContainerHandler) NextFree(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errResponse(c, http.StatusBadRequest, "missing_id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	container, err := h.Containers.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errResponse(c, http.StatusNotFound, "not_found")
	}
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	samples, err := h.Samples.List(ctx, id, false)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}

	occupied := make(map[string]bool, len(samples))
	for _, s := range samples {
		if s.Position != nil {
			occupied[*s.Position] = true
		}
	}
	g := grid.ParseLayout(container.Layout)
	disabled := grid.DisabledPositions(g, container.Type, container.SampleType)
	after := grid.Normalize(c.QueryParam("after"))
	next := g.NextFreeColumnFirst(after, occupied, disabled)
	if next == "" {
		return errResponse(c, http.StatusConflict, "container_full")
	}
	return dataResponse(c, http.StatusOK, echo.Map{"position": next})
}

// annotateCapacity fills the derived total-capacity field from the
// layout, honoring disabled cells (DP Pools lose I9 on a 9x9 box).
func annotateCapacity(container *model.Container) {
	g := grid.ParseLayout(container.Layout)
	disabled := grid.DisabledPositions(g, container.Type, container.SampleType)
	container.Total = g.Capacity() - len(disabled)
}

// diffContainers builds the audit changes object.  Each changed field
// maps to {from, to}; the returned list names the fields for the
// description line.
func diffContainers(a, b model.Container) (map[string]any, []string) {
	changes := map[string]any{}
	var fields []string
	add := func(field string, from, to any) {
		changes[field] = map[string]any{"from": from, "to": to}
		fields = append(fields, field)
	}
	if a.Name != b.Name {
		add("name", a.Name, b.Name)
	}
	if a.Location != b.Location {
		add("location", a.Location, b.Location)
	}
	if a.Archived != b.Archived {
		label := "unarchived"
		if b.Archived {
			label = "archived"
		}
		changes["archived"] = map[string]any{"from": a.Archived, "to": b.Archived}
		fields = append(fields, label)
	}
	if a.Layout != b.Layout {
		add("layout", a.Layout, b.Layout)
	}
	if a.Temperature != b.Temperature {
		add("temperature", a.Temperature, b.Temperature)
	}
	if a.Type != b.Type {
		add("type", a.Type, b.Type)
	}
	if a.SampleType != b.SampleType {
		add("sample_type", a.SampleType, b.SampleType)
	}
	if a.Training != b.Training {
		add("training", a.Training, b.Training)
	}
	if !ptrEq(a.ColdStorageID, b.ColdStorageID) {
		add("cold_storage_id", strOrNil(a.ColdStorageID), strOrNil(b.ColdStorageID))
	}
	if !ptrEq(a.RackID, b.RackID) {
		add("rack_id", strOrNil(a.RackID), strOrNil(b.RackID))
	}
	if !ptrEq(a.RackPosition, b.RackPosition) {
		add("rack_position", strOrNil(a.RackPosition), strOrNil(b.RackPosition))
	}
	return changes, fields
}

func ptrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
