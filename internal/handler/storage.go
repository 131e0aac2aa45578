package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
)

// StorageHandler serves the cold storage unit and rack reference
// tables.
type StorageHandler struct {
	Storage *repository.StorageRepo
	Logger  *zap.Logger
}

func NewStorageHandler(storage *repository.StorageRepo, logger *zap.Logger) *StorageHandler {
	return &StorageHandler{Storage: storage, Logger: logger}
}

func (h *StorageHandler) ListColdStorage(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	units, err := h.Storage.ListColdStorage(ctx)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if units == nil {
		units = []model.ColdStorageUnit{}
	}
	return dataResponse(c, http.StatusOK, units)
}

func (h *StorageHandler) CreateColdStorage(c echo.Context) error {
	var body struct {
		Name        string `json:"name"`
		Location    string `json:"location"`
		Temperature string `json:"temperature"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		return errResponse(c, http.StatusBadRequest, "missing_name")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u := model.ColdStorageUnit{
		Name:        strings.TrimSpace(body.Name),
		Location:    body.Location,
		Temperature: body.Temperature,
	}
	if err := h.Storage.CreateColdStorage(ctx, &u); err != nil {
		return internalError(c, h.Logger, "create cold storage", err)
	}
	return dataResponse(c, http.StatusCreated, u)
}

func (h *StorageHandler) ListRacks(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	racks, err := h.Storage.ListRacks(ctx)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if racks == nil {
		racks = []model.Rack{}
	}
	return dataResponse(c, http.StatusOK, racks)
}

func (h *StorageHandler) CreateRack(c echo.Context) error {
	var body struct {
		Name          string  `json:"name"`
		ColdStorageID *string `json:"cold_storage_id"`
		Capacity      int     `json:"capacity"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		return errResponse(c, http.StatusBadRequest, "missing_name")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rk := model.Rack{
		Name:          strings.TrimSpace(body.Name),
		ColdStorageID: body.ColdStorageID,
		Capacity:      body.Capacity,
	}
	if err := h.Storage.CreateRack(ctx, &rk); err != nil {
		return internalError(c, h.Logger, "create rack", err)
	}
	return dataResponse(c, http.StatusCreated, rk)
}
