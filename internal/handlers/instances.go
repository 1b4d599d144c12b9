package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/namastexlabs/automagik-omni/internal/channel"
	"github.com/namastexlabs/automagik-omni/internal/instance"
)

// InstancesHandler manages instance configuration over HTTP.
type InstancesHandler struct {
	store  *instance.Store
	logger *slog.Logger
}

// NewInstancesHandler creates the instance management handler.
func NewInstancesHandler(log *slog.Logger, store *instance.Store) *InstancesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &InstancesHandler{
		store:  store,
		logger: log.With(slog.String("handler", "instances")),
	}
}

// Register mounts the instance management routes.
func (h *InstancesHandler) Register(e *echo.Echo) {
	group := e.Group("/api/v1/instances")
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/default", h.GetDefault)
	group.GET("/:name", h.Get)
	group.DELETE("/:name", h.Delete)
	group.POST("/:name/set-default", h.SetDefault)
}

// Create registers a new instance configuration.
func (h *InstancesHandler) Create(c echo.Context) error {
	var req instance.CreateRequest
	if err := c.Bind(&req); err != nil {
		return httpError(channel.NewValidationError("body", "invalid request body"))
	}
	record, err := h.store.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, record)
}

// List returns every configured instance.
func (h *InstancesHandler) List(c echo.Context) error {
	items, err := h.store.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"instances": items})
}

// GetDefault returns the instance marked as default.
func (h *InstancesHandler) GetDefault(c echo.Context) error {
	record, err := h.store.GetDefault(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, record)
}

// Get returns one instance by name.
func (h *InstancesHandler) Get(c echo.Context) error {
	record, err := h.store.GetByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, record)
}

// Delete removes one instance by name.
func (h *InstancesHandler) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetDefault marks one instance as the default.
func (h *InstancesHandler) SetDefault(c echo.Context) error {
	name := c.Param("name")
	if err := h.store.SetDefault(c.Request().Context(), name); err != nil {
		return httpError(err)
	}
	record, err := h.store.GetByName(c.Request().Context(), name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, record)
}
