package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

// Handler implements the canonical channel handler contract on top of the
// bridge client. The fetch → transform → filter → paginate pipeline runs
// sequentially within each call; calls for different instances are
// independent.
type Handler struct {
	client   *Client
	mappings channel.Mappings
	logger   *slog.Logger
}

// NewHandler creates the WhatsApp channel handler.
func NewHandler(log *slog.Logger, client *Client, mappings channel.Mappings) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		client:   client,
		mappings: mappings,
		logger:   log.With(slog.String("channel", channel.TypeWhatsApp.String())),
	}
}

func (h *Handler) Type() channel.ChannelType {
	return channel.TypeWhatsApp
}

// GetContacts fetches the full native contact set, transforms it, then
// filters and paginates on the canonical representation.
func (h *Handler) GetContacts(ctx context.Context, inst channel.Instance, query channel.ContactQuery) (channel.Page[channel.Contact], error) {
	page, pageSize, err := channel.NormalizePageRequest(query.Page, query.PageSize)
	if err != nil {
		return channel.Page[channel.Contact]{}, err
	}
	cfg, err := parseConfig(inst.Credentials)
	if err != nil {
		return channel.Page[channel.Contact]{}, err
	}
	records, err := h.client.FetchContacts(ctx, cfg, inst.Name)
	if err != nil {
		return channel.Page[channel.Contact]{}, fmt.Errorf("fetch contacts: %w", err)
	}
	contacts := make([]channel.Contact, 0, len(records))
	for _, record := range records {
		contacts = append(contacts, ContactFromRecord(inst, record))
	}
	return channel.Paginate(channel.FilterContacts(contacts, query), page, pageSize), nil
}

// GetChats fetches the full native chat set, transforms it, then filters and
// paginates. The bridge records an archive flag, so the archived filter
// applies.
func (h *Handler) GetChats(ctx context.Context, inst channel.Instance, query channel.ChatQuery) (channel.Page[channel.Chat], error) {
	page, pageSize, err := channel.NormalizePageRequest(query.Page, query.PageSize)
	if err != nil {
		return channel.Page[channel.Chat]{}, err
	}
	cfg, err := parseConfig(inst.Credentials)
	if err != nil {
		return channel.Page[channel.Chat]{}, err
	}
	records, err := h.client.FetchChats(ctx, cfg, inst.Name)
	if err != nil {
		return channel.Page[channel.Chat]{}, fmt.Errorf("fetch chats: %w", err)
	}
	chats := make([]channel.Chat, 0, len(records))
	for _, record := range records {
		chats = append(chats, ChatFromRecord(inst, record, h.mappings))
	}
	return channel.Paginate(channel.FilterChats(chats, query, true), page, pageSize), nil
}

// GetContactByID looks up one contact by its bare or suffixed identifier.
func (h *Handler) GetContactByID(ctx context.Context, inst channel.Instance, id string) (channel.Contact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return channel.Contact{}, channel.NewValidationError("contact_id", "must not be empty")
	}
	cfg, err := parseConfig(inst.Credentials)
	if err != nil {
		return channel.Contact{}, err
	}
	records, err := h.client.FetchContact(ctx, cfg, inst.Name, id)
	if err != nil {
		return channel.Contact{}, fmt.Errorf("fetch contact %s: %w", id, err)
	}
	if len(records) == 0 && !strings.Contains(id, "@") {
		// The bridge stores suffixed identifiers; retry with the default
		// user suffix before reporting not found.
		records, err = h.client.FetchContact(ctx, cfg, inst.Name, id+"@s.whatsapp.net")
		if err != nil {
			return channel.Contact{}, fmt.Errorf("fetch contact %s: %w", id, err)
		}
	}
	for _, record := range records {
		contact := ContactFromRecord(inst, record)
		if contact.ID == BareID(id) {
			return contact, nil
		}
	}
	return channel.Contact{}, fmt.Errorf("contact %s: %w", id, channel.ErrNotFound)
}

// GetChatByID looks up one chat by scanning the native chat set; the bridge
// has no single-chat endpoint.
func (h *Handler) GetChatByID(ctx context.Context, inst channel.Instance, id string) (channel.Chat, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return channel.Chat{}, channel.NewValidationError("chat_id", "must not be empty")
	}
	cfg, err := parseConfig(inst.Credentials)
	if err != nil {
		return channel.Chat{}, err
	}
	records, err := h.client.FetchChats(ctx, cfg, inst.Name)
	if err != nil {
		return channel.Chat{}, fmt.Errorf("fetch chats: %w", err)
	}
	bare := BareID(id)
	for _, record := range records {
		chat := ChatFromRecord(inst, record, h.mappings)
		if chat.ID == bare {
			return chat, nil
		}
	}
	return channel.Chat{}, fmt.Errorf("chat %s: %w", id, channel.ErrNotFound)
}

// GetChannelInfo reports the static WhatsApp capability flags plus the live
// bridge connection state. An unreachable bridge degrades to an unhealthy
// descriptor instead of failing the call.
func (h *Handler) GetChannelInfo(ctx context.Context, inst channel.Instance) (channel.Descriptor, error) {
	descriptor := channel.Descriptor{
		InstanceName:     inst.Name,
		ChannelType:      channel.TypeWhatsApp,
		DisplayName:      displayName(inst),
		SupportsContacts: true,
		SupportsGroups:   true,
		SupportsMedia:    true,
		SupportsVoice:    false,
	}
	cfg, err := parseConfig(inst.Credentials)
	if err != nil {
		return channel.Descriptor{}, err
	}
	state, err := h.client.ConnectionState(ctx, cfg, inst.Name)
	if err != nil {
		h.logger.Warn("bridge state read failed", slog.String("instance", inst.Name), slog.Any("error", err))
		descriptor.Status = "unreachable"
		return descriptor, nil
	}
	descriptor.Status = state
	descriptor.IsHealthy = mapBridgeState(state) == channel.StateConnected
	return descriptor, nil
}

// GetStatus probes the bridge connection state. The probe itself degrades to
// StateFailed when the bridge cannot be reached; it never blocks on the
// platform beyond the client timeout.
func (h *Handler) GetStatus(ctx context.Context, inst channel.Instance) (channel.ConnectionStatus, error) {
	cfg, err := parseConfig(inst.Credentials)
	if err != nil {
		return channel.ConnectionStatus{}, err
	}
	status := channel.ConnectionStatus{
		InstanceName: inst.Name,
		ChannelType:  channel.TypeWhatsApp,
	}
	state, err := h.client.ConnectionState(ctx, cfg, inst.Name)
	if err != nil {
		h.logger.Warn("bridge state read failed", slog.String("instance", inst.Name), slog.Any("error", err))
		status.State = channel.StateFailed
		return status, nil
	}
	status.State = mapBridgeState(state)
	status.Healthy = status.State.Healthy()
	return status, nil
}

// mapBridgeState folds the bridge's state strings onto the canonical
// connection states.
func mapBridgeState(raw string) channel.ConnectionState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open", "connected":
		return channel.StateConnected
	case "connecting":
		return channel.StateConnecting
	default:
		return channel.StateFailed
	}
}

func displayName(inst channel.Instance) string {
	if inst.DisplayName != "" {
		return inst.DisplayName
	}
	return inst.Name
}
