package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/namastexlabs/automagik-omni/internal/channel"
	"github.com/namastexlabs/automagik-omni/internal/instance"
)

// InstanceResolver resolves instance names to stored configurations.
type InstanceResolver interface {
	GetByName(ctx context.Context, name string) (instance.Instance, error)
	List(ctx context.Context) ([]instance.Instance, error)
}

// OmniHandler exposes the channel handler operations (contacts, chats,
// channel info, status) over HTTP. Every request resolves its instance, picks
// the handler for the instance's channel type from the registry, and calls
// exactly the contract operation the route names.
type OmniHandler struct {
	instances InstanceResolver
	registry  *channel.Registry
	logger    *slog.Logger
}

// NewOmniHandler creates the channel operations handler.
func NewOmniHandler(log *slog.Logger, instances InstanceResolver, registry *channel.Registry) *OmniHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OmniHandler{
		instances: instances,
		registry:  registry,
		logger:    log.With(slog.String("handler", "omni")),
	}
}

// Register mounts the channel operation routes.
func (h *OmniHandler) Register(e *echo.Echo) {
	group := e.Group("/api/v1/instances/:name")
	group.GET("/contacts", h.ListContacts)
	group.GET("/contacts/:contact_id", h.GetContact)
	group.GET("/chats", h.ListChats)
	group.GET("/chats/:chat_id", h.GetChat)
	group.GET("/channel-info", h.ChannelInfo)
	group.GET("/status", h.Status)
	e.GET("/api/v1/channels", h.ListChannels)
}

// ListContacts serves the paginated, filtered canonical contact list.
func (h *OmniHandler) ListContacts(c echo.Context) error {
	inst, handler, err := h.resolve(c)
	if err != nil {
		return httpError(err)
	}
	query := channel.ContactQuery{Search: strings.TrimSpace(c.QueryParam("search_query"))}
	if query.Page, err = queryInt(c, "page", 1); err != nil {
		return httpError(err)
	}
	if query.PageSize, err = queryInt(c, "page_size", channel.DefaultPageSize); err != nil {
		return httpError(err)
	}
	if query.Status, err = parseStatusFilter(c.QueryParam("status_filter")); err != nil {
		return httpError(err)
	}
	page, err := handler.GetContacts(c.Request().Context(), inst, query)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetContact serves one canonical contact by platform id.
func (h *OmniHandler) GetContact(c echo.Context) error {
	inst, handler, err := h.resolve(c)
	if err != nil {
		return httpError(err)
	}
	contact, err := handler.GetContactByID(c.Request().Context(), inst, c.Param("contact_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contact)
}

// ListChats serves the paginated, filtered canonical chat list.
func (h *OmniHandler) ListChats(c echo.Context) error {
	inst, handler, err := h.resolve(c)
	if err != nil {
		return httpError(err)
	}
	query := channel.ChatQuery{}
	if query.Page, err = queryInt(c, "page", 1); err != nil {
		return httpError(err)
	}
	if query.PageSize, err = queryInt(c, "page_size", channel.DefaultPageSize); err != nil {
		return httpError(err)
	}
	if query.ChatType, err = parseChatTypeFilter(c.QueryParam("chat_type_filter")); err != nil {
		return httpError(err)
	}
	if query.Archived, err = parseArchivedFilter(c.QueryParam("archived")); err != nil {
		return httpError(err)
	}
	page, err := handler.GetChats(c.Request().Context(), inst, query)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetChat serves one canonical chat by platform id.
func (h *OmniHandler) GetChat(c echo.Context) error {
	inst, handler, err := h.resolve(c)
	if err != nil {
		return httpError(err)
	}
	chat, err := handler.GetChatByID(c.Request().Context(), inst, c.Param("chat_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, chat)
}

// ChannelInfo serves the instance's channel descriptor.
func (h *OmniHandler) ChannelInfo(c echo.Context) error {
	inst, handler, err := h.resolve(c)
	if err != nil {
		return httpError(err)
	}
	descriptor, err := handler.GetChannelInfo(c.Request().Context(), inst)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, descriptor)
}

// Status serves the instance's liveness probe. GetStatus is the only status
// operation the API calls.
func (h *OmniHandler) Status(c echo.Context) error {
	inst, handler, err := h.resolve(c)
	if err != nil {
		return httpError(err)
	}
	status, err := handler.GetStatus(c.Request().Context(), inst)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, status)
}

// ListChannels serves the channel descriptor for every configured instance.
func (h *OmniHandler) ListChannels(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.instances.List(ctx)
	if err != nil {
		return httpError(err)
	}
	descriptors := make([]channel.Descriptor, 0, len(items))
	for _, item := range items {
		handler, ok := h.registry.Get(item.ChannelType)
		if !ok {
			h.logger.Warn("instance with unregistered channel type",
				slog.String("instance", item.Name),
				slog.String("channel", item.ChannelType.String()),
			)
			continue
		}
		descriptor, err := handler.GetChannelInfo(ctx, item.Channel())
		if err != nil {
			h.logger.Warn("channel info failed",
				slog.String("instance", item.Name),
				slog.Any("error", err),
			)
			continue
		}
		descriptors = append(descriptors, descriptor)
	}
	return c.JSON(http.StatusOK, map[string]any{"channels": descriptors})
}

func (h *OmniHandler) resolve(c echo.Context) (channel.Instance, channel.Handler, error) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return channel.Instance{}, nil, channel.NewValidationError("name", "instance name is required")
	}
	record, err := h.instances.GetByName(c.Request().Context(), name)
	if err != nil {
		return channel.Instance{}, nil, err
	}
	handler, ok := h.registry.Get(record.ChannelType)
	if !ok {
		return channel.Instance{}, nil, channel.NewValidationError("channel_type",
			"no handler registered for %s", record.ChannelType)
	}
	return record.Channel(), handler, nil
}
