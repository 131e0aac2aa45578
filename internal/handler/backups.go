package handler

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/middleware"
	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
	"github.com/saga-lims/saga-store/internal/service"
)

// backupHeader is the fixed column order of snapshot files.  Existing
// spreadsheets in the lab were built against this layout, so the order
// must not change.
var backupHeader = []string{
	"Container ID", "Container Name", "Location", "Layout", "Temperature",
	"Type", "Archived", "Training", "Sample Position", "Sample ID",
	"Sample Created", "Sample Updated", "Sample Archived", "Checked Out",
	"Checked Out By", "Checked Out At",
}

// BackupHandler generates, stores and serves full-inventory CSV
// snapshots.
type BackupHandler struct {
	Backups    *repository.BackupRepo
	Containers *repository.ContainerRepo
	Samples    *repository.SampleRepo
	Audit      *service.AuditRecorder
	Logger     *zap.Logger
}

func NewBackupHandler(backups *repository.BackupRepo, containers *repository.ContainerRepo, samples *repository.SampleRepo, audit *service.AuditRecorder, logger *zap.Logger) *BackupHandler {
	return &BackupHandler{Backups: backups, Containers: containers, Samples: samples, Audit: audit, Logger: logger}
}

// Create handles POST /api/backups.  The generated CSV is stored for
// later download and also streamed back in the response.  nightly=true
// switches the filename scheme used by the scheduled job.
func (h *BackupHandler) Create(c echo.Context) error {
	nightly := c.QueryParam("nightly") == "true"

	ctx, cancel := reqCtx(c)
	defer cancel()
	active, err := h.Containers.List(ctx, false)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	archived, err := h.Containers.List(ctx, true)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	samples, err := h.Samples.ListAll(ctx)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}

	csv := buildBackupCSV(append(active, archived...), samples)
	now := time.Now().UTC()
	filename := fmt.Sprintf("saga-manual-backup-%s.csv", now.Format("2006-01-02T15-04-05"))
	if nightly {
		filename = fmt.Sprintf("saga-nightly-backup-%s.csv", now.Format("2006-01-02"))
	}

	b := model.Backup{
		Filename:  filename,
		Data:      csv,
		CreatedBy: callerOrSystem(c, nightly),
	}
	if err := h.Backups.Insert(ctx, &b); err != nil {
		return internalError(c, h.Logger, "store backup", err)
	}

	ev := auditEvent(c, model.EntityBackup, b.ID, b.Filename, "created")
	ev.Metadata = map[string]any{"nightly": nightly, "containers": len(active) + len(archived), "samples": len(samples)}
	ev.Description = fmt.Sprintf("Created backup %s", b.Filename)
	record(c, h.Audit, ev)

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "text/csv", []byte(csv))
}

// List handles GET /api/backups.  Without a filename parameter it
// returns snapshot metadata; with one it serves the stored CSV.
func (h *BackupHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if filename := c.QueryParam("filename"); filename != "" {
		b, err := h.Backups.GetByFilename(ctx, filename)
		if errors.Is(err, repository.ErrNotFound) {
			return errResponse(c, http.StatusNotFound, "backup_not_found")
		}
		if err != nil {
			return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename=%q`, b.Filename))
		return c.Blob(http.StatusOK, "text/csv", []byte(b.Data))
	}

	backups, err := h.Backups.List(ctx)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	return dataResponse(c, http.StatusOK, backups)
}

func callerOrSystem(c echo.Context, nightly bool) string {
	if nightly {
		return "system"
	}
	return middleware.CallerInitials(c)
}

// buildBackupCSV renders the full inventory.  Containers come out
// sorted by name with one row per sample (or a single empty row for an
// empty container), followed by a section of checked-out samples under
// the literal container name "CHECKED OUT".
func buildBackupCSV(containers []model.Container, samples []model.Sample) string {
	byContainer := make(map[string][]model.Sample)
	var checkedOut []model.Sample
	for _, s := range samples {
		if s.ContainerID == nil {
			if s.IsCheckedOut {
				checkedOut = append(checkedOut, s)
			}
			continue
		}
		byContainer[*s.ContainerID] = append(byContainer[*s.ContainerID], s)
	}

	sort.Slice(containers, func(i, j int) bool {
		return strings.ToLower(containers[i].Name) < strings.ToLower(containers[j].Name)
	})

	var b strings.Builder
	writeCSVRow(&b, backupHeader)
	for _, cont := range containers {
		rows := byContainer[cont.ID]
		sort.Slice(rows, func(i, j int) bool { return deref(rows[i].Position) < deref(rows[j].Position) })
		if len(rows) == 0 {
			writeCSVRow(&b, containerRow(cont, nil))
			continue
		}
		for i := range rows {
			writeCSVRow(&b, containerRow(cont, &rows[i]))
		}
	}

	sort.Slice(checkedOut, func(i, j int) bool { return checkedOut[i].SampleID < checkedOut[j].SampleID })
	for i := range checkedOut {
		s := &checkedOut[i]
		writeCSVRow(&b, []string{
			"", "CHECKED OUT", "", "", "", "", "", "",
			deref(s.PreviousPosition), s.SampleID,
			s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339),
			yesNo(s.IsArchived), yesNo(true),
			deref(s.CheckedOutBy), timeOrEmpty(s.CheckedOutAt),
		})
	}
	return b.String()
}

func containerRow(cont model.Container, s *model.Sample) []string {
	row := []string{
		cont.ID, cont.Name, cont.Location, cont.Layout, cont.Temperature,
		cont.Type, yesNo(cont.Archived), yesNo(cont.Training),
	}
	if s == nil {
		return append(row, "", "", "", "", "", "", "", "")
	}
	return append(row,
		deref(s.Position), s.SampleID,
		s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339),
		yesNo(s.IsArchived), yesNo(s.IsCheckedOut),
		deref(s.CheckedOutBy), timeOrEmpty(s.CheckedOutAt),
	)
}

func writeCSVRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeCSV(cell))
	}
	b.WriteByte('\n')
}

// escapeCSV quotes a value when it contains a comma, quote or newline,
// doubling embedded quotes.
func escapeCSV(v string) string {
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
