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
	"github.com/saga-lims/saga-store/internal/repository"
	"github.com/saga-lims/saga-store/internal/service"
)

// memStore is an in-memory service.SampleStore for handler tests.
type memStore struct {
	rows []model.Sample
}

func (m *memStore) FindActiveAtPosition(_ context.Context, containerID, position string) (model.Sample, error) {
	for _, r := range m.rows {
		if r.IsArchived || r.ContainerID == nil || r.Position == nil {
			continue
		}
		if *r.ContainerID == containerID && *r.Position == position {
			return r, nil
		}
	}
	return model.Sample{}, repository.ErrNotFound
}

func (m *memStore) FindActiveBySampleID(_ context.Context, sampleID string) (model.Sample, error) {
	for _, r := range m.rows {
		if !r.IsArchived && r.SampleID == sampleID {
			return r, nil
		}
	}
	return model.Sample{}, repository.ErrNotFound
}

func (m *memStore) Insert(_ context.Context, s *model.Sample) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.rows = append(m.rows, *s)
	return nil
}

func (m *memStore) Update(_ context.Context, s *model.Sample) error {
	for i, r := range m.rows {
		if r.ID == s.ID {
			m.rows[i] = *s
			return nil
		}
	}
	return repository.ErrNotFound
}

func newUpsertContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/samples/upsert", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func strptr(s string) *string { return &s }

func TestUpsertInsertsSample(t *testing.T) {
	store := &memStore{}
	h := &SampleHandler{Placer: service.NewPlacer(store), Logger: zap.NewNop()}

	c, rec := newUpsertContext(t, `{"sample_id":"s-001","container_id":"box-1","position":"a1"}`)
	require.NoError(t, h.Upsert(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data   model.Sample `json:"data"`
		Action string       `json:"action"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "inserted", resp.Action)
	assert.Equal(t, "S-001", resp.Data.SampleID)
	require.NotNil(t, resp.Data.Position)
	assert.Equal(t, "A1", *resp.Data.Position)
}

func TestUpsertConflictReturns409(t *testing.T) {
	store := &memStore{rows: []model.Sample{{
		ID:          uuid.NewString(),
		SampleID:    "S-OCC",
		ContainerID: strptr("box-1"),
		Position:    strptr("A1"),
	}}}
	h := &SampleHandler{Placer: service.NewPlacer(store), Logger: zap.NewNop()}

	c, rec := newUpsertContext(t, `{"sample_id":"S-NEW","container_id":"box-1","position":"A1"}`)
	require.NoError(t, h.Upsert(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error    string           `json:"error"`
		Conflict service.Conflict `json:"conflict"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "position_occupied", resp.Error)
	assert.Equal(t, "S-OCC", resp.Conflict.OccupyingID)
	assert.Equal(t, "S-NEW", resp.Conflict.RequestedID)
}

func TestUpsertForceDisplacesOccupant(t *testing.T) {
	occupantID := uuid.NewString()
	store := &memStore{rows: []model.Sample{{
		ID:          occupantID,
		SampleID:    "S-OCC",
		ContainerID: strptr("box-1"),
		Position:    strptr("A1"),
	}}}
	h := &SampleHandler{Placer: service.NewPlacer(store), Logger: zap.NewNop()}

	c, rec := newUpsertContext(t, `{"sample_id":"S-NEW","container_id":"box-1","position":"A1","force":true}`)
	require.NoError(t, h.Upsert(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var displaced model.Sample
	for _, r := range store.rows {
		if r.ID == occupantID {
			displaced = r
		}
	}
	assert.True(t, displaced.IsCheckedOut)
	assert.Nil(t, displaced.ContainerID)
	require.NotNil(t, displaced.PreviousPosition)
	assert.Equal(t, "A1", *displaced.PreviousPosition)
}

func TestUpsertValidation(t *testing.T) {
	h := &SampleHandler{Placer: service.NewPlacer(&memStore{}), Logger: zap.NewNop()}

	c, rec := newUpsertContext(t, `{"container_id":"box-1","position":"A1"}`)
	require.NoError(t, h.Upsert(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "sample_id_required")

	c, rec = newUpsertContext(t, `{"sample_id":"S-1"}`)
	require.NoError(t, h.Upsert(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "container_id_and_position_required")
}
