package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/service"
)

// fakeContainerStore backs the import handler's name resolution.
type fakeContainerStore struct {
	containers []model.Container
}

func (f *fakeContainerStore) List(_ context.Context, archived bool) ([]model.Container, error) {
	var out []model.Container
	for _, c := range f.containers {
		if c.Archived == archived {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContainerStore) Create(_ context.Context, c *model.Container) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	f.containers = append(f.containers, *c)
	return nil
}

func newImportHandler(containers *fakeContainerStore, samples *memStore) *ImportHandler {
	return NewImportHandler(containers, service.NewPlacer(samples), nil, zap.NewNop())
}

func postImport(t *testing.T, h *ImportHandler, contentType, body string) (*httptest.ResponseRecorder, importSummary) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Import(e.NewContext(req, rec)))

	var resp struct {
		Data importSummary `json:"data"`
	}
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp.Data
}

func TestImportRawCSVCreatesContainersAndPlaces(t *testing.T) {
	containers := &fakeContainerStore{}
	samples := &memStore{}
	h := newImportHandler(containers, samples)

	csv := "Freezer A,Box Alpha,s-001,a1\n" +
		"Freezer A,Box Alpha,s-002,a2\n"
	rec, sum := postImport(t, h, "text/csv", csv)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, sum.ContainersCreated)
	assert.Equal(t, 2, sum.Inserted)
	assert.Equal(t, 0, sum.InvalidRows)
	assert.Empty(t, sum.Conflicts)
	assert.Empty(t, sum.Errors)

	require.Len(t, containers.containers, 1)
	assert.Equal(t, "Box Alpha", containers.containers[0].Name)
	assert.Equal(t, "9x9", containers.containers[0].Layout)

	require.Len(t, samples.rows, 2)
	assert.Equal(t, "S-001", samples.rows[0].SampleID)
	require.NotNil(t, samples.rows[0].Position)
	assert.Equal(t, "A1", *samples.rows[0].Position)
}

func TestImportRawCSVReusesExistingContainer(t *testing.T) {
	containers := &fakeContainerStore{containers: []model.Container{
		{ID: "c-existing", Name: "Box Alpha", Layout: "9x9"},
	}}
	samples := &memStore{}
	h := newImportHandler(containers, samples)

	rec, sum := postImport(t, h, "text/csv", "Freezer A,box alpha,S-010,B2\n")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 0, sum.ContainersCreated)
	assert.Equal(t, 1, sum.Inserted)
	require.Len(t, samples.rows, 1)
	require.NotNil(t, samples.rows[0].ContainerID)
	assert.Equal(t, "c-existing", *samples.rows[0].ContainerID)
}

func TestImportJSONItems(t *testing.T) {
	h := newImportHandler(&fakeContainerStore{}, &memStore{})

	rec, sum := postImport(t, h, echo.MIMEApplicationJSON,
		`{"items":[{"sample_id":"S-100","container_id":"c1","position":"C3"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sum.Inserted)
}

func TestImportRejectsEmptyPayload(t *testing.T) {
	h := newImportHandler(&fakeContainerStore{}, &memStore{})

	rec, _ := postImport(t, h, echo.MIMEApplicationJSON, `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_payload")
}
