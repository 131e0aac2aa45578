package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/importer"
	"github.com/saga-lims/saga-store/internal/middleware"
	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/service"
)

// ContainerStore is the container surface the importer needs.
// *repository.ContainerRepo satisfies it.
type ContainerStore interface {
	List(ctx context.Context, archived bool) ([]model.Container, error)
	Create(ctx context.Context, c *model.Container) error
}

// ImportHandler drives bulk loading of containers and samples from
// exported spreadsheets.  Three input shapes are accepted on the same
// route: a JSON item list, a raw CSV body, or an uploaded .csv/.xlsx
// file.  Parsed rows flow through the placement engine one by one, so
// imports observe the same occupancy rules as single upserts.
type ImportHandler struct {
	Containers ContainerStore
	Placer     *service.Placer
	Audit      *service.AuditRecorder
	Logger     *zap.Logger
}

func NewImportHandler(containers ContainerStore, placer *service.Placer, audit *service.AuditRecorder, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{Containers: containers, Placer: placer, Audit: audit, Logger: logger}
}

type importItem struct {
	SampleID    string         `json:"sample_id"`
	ContainerID string         `json:"container_id"`
	Position    string         `json:"position"`
	Data        map[string]any `json:"data"`
}

type importBody struct {
	Items []importItem `json:"items"`
	Text  string       `json:"text"`
	Force bool         `json:"force"`
}

type importConflict struct {
	SampleID string            `json:"sample_id"`
	Conflict *service.Conflict `json:"conflict"`
}

type importError struct {
	SampleID string `json:"sample_id"`
	Error    string `json:"error"`
}

type importSummary struct {
	ContainersCreated int              `json:"containers_created"`
	Inserted          int              `json:"inserted"`
	Moved             int              `json:"moved"`
	Unchanged         int              `json:"unchanged"`
	InvalidRows       int              `json:"invalid_rows"`
	Conflicts         []importConflict `json:"conflicts"`
	Errors            []importError    `json:"errors"`
}

// Import handles POST /api/import.
func (h *ImportHandler) Import(c echo.Context) error {
	ct := c.Request().Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		return h.importUpload(c)
	}
	if strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		var body importBody
		if err := c.Bind(&body); err != nil {
			return errResponse(c, http.StatusBadRequest, "invalid_payload")
		}
		if body.Text != "" {
			return h.importText(c, body.Text, body.Force)
		}
		if len(body.Items) == 0 {
			return errResponse(c, http.StatusBadRequest, "invalid_payload")
		}
		return h.importItems(c, body.Items, body.Force)
	}

	// Anything else is treated as raw CSV text.
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil || len(raw) == 0 {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	return h.importText(c, string(raw), false)
}

func (h *ImportHandler) importUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	f, err := fh.Open()
	if err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
		summary, err := importer.ParseXLSX(f)
		if err != nil {
			return errResponseMsg(c, http.StatusBadRequest, "invalid_payload", err.Error())
		}
		return h.importParsed(c, summary, false)
	}
	raw, err := io.ReadAll(f)
	if err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	return h.importText(c, string(raw), false)
}

func (h *ImportHandler) importText(c echo.Context, text string, force bool) error {
	return h.importParsed(c, importer.Parse(text), force)
}

// importSummary materializes a parsed file: containers referenced by
// name are created when missing, then every item is placed.
func (h *ImportHandler) importParsed(c echo.Context, sum importer.Summary, force bool) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ids, created, err := h.resolveContainers(c, ctx, sum.Containers)
	if err != nil {
		return internalError(c, h.Logger, "import containers", err)
	}

	items := make([]importItem, 0, len(sum.Items))
	invalid := sum.InvalidRows
	for _, it := range sum.Items {
		id, ok := ids[it.ContainerName]
		if !ok {
			invalid++
			continue
		}
		items = append(items, importItem{SampleID: it.SampleID, ContainerID: id, Position: it.Position})
	}

	result := h.placeAll(c, items, force)
	result.ContainersCreated = created
	result.InvalidRows += invalid
	return dataResponse(c, http.StatusOK, result)
}

// Items arriving as JSON already carry container ids, so no name
// resolution happens.
func (h *ImportHandler) importItems(c echo.Context, items []importItem, force bool) error {
	for _, it := range items {
		if strings.TrimSpace(it.SampleID) == "" ||
			strings.TrimSpace(it.ContainerID) == "" ||
			strings.TrimSpace(it.Position) == "" {
			return errResponse(c, http.StatusBadRequest, "invalid_payload")
		}
	}
	return dataResponse(c, http.StatusOK, h.placeAll(c, items, force))
}

func (h *ImportHandler) placeAll(c echo.Context, items []importItem, force bool) importSummary {
	out := importSummary{Conflicts: []importConflict{}, Errors: []importError{}}
	user := middleware.CallerInitials(c)
	for _, it := range items {
		res, err := h.Placer.Place(c.Request().Context(), service.PlacementRequest{
			SampleID:    it.SampleID,
			ContainerID: it.ContainerID,
			Position:    it.Position,
			Data:        it.Data,
			Force:       force,
			User:        user,
			Source:      "bulk_import",
		})
		switch {
		case errors.Is(err, service.ErrPositionOccupied):
			out.Conflicts = append(out.Conflicts, importConflict{SampleID: it.SampleID, Conflict: res.Conflict})
			continue
		case err != nil:
			out.Errors = append(out.Errors, importError{SampleID: it.SampleID, Error: err.Error()})
			continue
		}
		switch res.Action {
		case service.ActionInserted:
			out.Inserted++
		case service.ActionMoved:
			out.Moved++
		case service.ActionUnchanged:
			out.Unchanged++
		}
		auditPlacement(c, h.Audit, res, "bulk_import")
	}
	return out
}

// resolveContainers maps parsed container names to row ids, creating
// the ones that do not exist yet.  Matching is case-insensitive on the
// trimmed name, same as the spreadsheet exports.
func (h *ImportHandler) resolveContainers(c echo.Context, ctx context.Context, parsed []importer.Container) (map[string]string, int, error) {
	existing, err := h.Containers.List(ctx, false)
	if err != nil {
		return nil, 0, err
	}
	byName := make(map[string]string, len(existing))
	for _, cont := range existing {
		byName[strings.ToLower(strings.TrimSpace(cont.Name))] = cont.ID
	}

	ids := make(map[string]string, len(parsed))
	created := 0
	for _, p := range parsed {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if id, ok := byName[key]; ok {
			ids[p.Name] = id
			continue
		}
		layout := p.Layout
		if layout == "" {
			layout = "9x9"
		}
		cont := model.Container{
			Name:     strings.TrimSpace(p.Name),
			Location: p.Location,
			Layout:   layout,
			Type:     fmt.Sprintf("%s-box", layout),
		}
		if err := h.Containers.Create(ctx, &cont); err != nil {
			return nil, created, err
		}
		byName[key] = cont.ID
		ids[p.Name] = cont.ID
		created++

		ev := auditEvent(c, model.EntityContainer, cont.ID, cont.Name, "created")
		ev.Metadata = map[string]any{"location": cont.Location, "layout": cont.Layout, "source": "bulk_import"}
		ev.Description = fmt.Sprintf("Created container %q during import", cont.Name)
		record(c, h.Audit, ev)
	}
	return ids, created, nil
}

// Worklist handles POST /api/import/worklist: it only extracts sample
// ids from an uploaded worklist, it does not touch the database.
func (h *ImportHandler) Worklist(c echo.Context) error {
	text, err := worklistText(c)
	if err != nil {
		return errResponse(c, http.StatusBadRequest, "invalid_payload")
	}
	wl, err := importer.ParseWorklist(text)
	if err != nil {
		return errResponseMsg(c, http.StatusBadRequest, "invalid_payload", err.Error())
	}
	return dataResponse(c, http.StatusOK, wl)
}

func worklistText(c echo.Context) (string, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return "", err
		}
		f, err := fh.Open()
		if err != nil {
			return "", err
		}
		defer f.Close()
		raw, err := io.ReadAll(f)
		return string(raw), err
	}
	if strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.Bind(&body); err != nil {
			return "", err
		}
		if body.Text == "" {
			return "", errors.New("empty worklist")
		}
		return body.Text, nil
	}
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil || len(raw) == 0 {
		return "", errors.New("empty worklist")
	}
	return string(raw), nil
}
