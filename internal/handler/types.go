package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/model"
	"github.com/saga-lims/saga-store/internal/repository"
)

// TypeHandler serves the sample and container type reference lists.
type TypeHandler struct {
	Types  *repository.TypeRepo
	Logger *zap.Logger
}

func NewTypeHandler(types *repository.TypeRepo, logger *zap.Logger) *TypeHandler {
	return &TypeHandler{Types: types, Logger: logger}
}

func (h *TypeHandler) ListSampleTypes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	types, err := h.Types.ListSampleTypes(ctx)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if types == nil {
		types = []model.SampleType{}
	}
	return dataResponse(c, http.StatusOK, types)
}

func (h *TypeHandler) CreateSampleType(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		return errResponse(c, http.StatusBadRequest, "missing_name")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Types.CreateSampleType(ctx, body.Name)
	if errors.Is(err, repository.ErrDuplicate) {
		return errResponseMsg(c, http.StatusConflict, "duplicate_name", "sample type already exists")
	}
	if err != nil {
		return internalError(c, h.Logger, "create sample type", err)
	}
	return dataResponse(c, http.StatusCreated, t)
}

func (h *TypeHandler) ListContainerTypes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	types, err := h.Types.ListContainerTypes(ctx)
	if err != nil {
		return errResponseMsg(c, http.StatusBadGateway, "database_error", err.Error())
	}
	if types == nil {
		types = []model.ContainerType{}
	}
	return dataResponse(c, http.StatusOK, types)
}

func (h *TypeHandler) CreateContainerType(c echo.Context) error {
	var body struct {
		Name   string `json:"name"`
		Layout string `json:"layout"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		return errResponse(c, http.StatusBadRequest, "missing_name")
	}
	if strings.TrimSpace(body.Layout) == "" {
		body.Layout = "9x9"
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Types.CreateContainerType(ctx, body.Name, body.Layout)
	if errors.Is(err, repository.ErrDuplicate) {
		return errResponseMsg(c, http.StatusConflict, "duplicate_name", "container type already exists")
	}
	if err != nil {
		return internalError(c, h.Logger, "create container type", err)
	}
	return dataResponse(c, http.StatusCreated, t)
}
