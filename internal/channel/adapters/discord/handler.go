package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

const (
	defaultOpTimeout = 15 * time.Second
	// Discord caps the members-per-request page at 1000.
	memberPageLimit = 1000
)

// Handler implements the canonical channel handler contract over the session
// registry. It never opens, closes, or otherwise mutates a session; the
// Manager owns those.
type Handler struct {
	source   SessionSource
	mappings channel.Mappings
	timeout  time.Duration
	logger   *slog.Logger
}

// NewHandler creates the Discord channel handler reading sessions from source.
func NewHandler(log *slog.Logger, source SessionSource, mappings channel.Mappings) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		source:   source,
		mappings: mappings,
		timeout:  defaultOpTimeout,
		logger:   log.With(slog.String("channel", channel.TypeDiscord.String())),
	}
}

func (h *Handler) Type() channel.ChannelType {
	return channel.TypeDiscord
}

// GetContacts collects guild members across the instance's guilds, transforms
// them with live presence, then filters and paginates canonically. Members
// seen in several guilds appear once.
func (h *Handler) GetContacts(ctx context.Context, inst channel.Instance, query channel.ContactQuery) (channel.Page[channel.Contact], error) {
	page, pageSize, err := channel.NormalizePageRequest(query.Page, query.PageSize)
	if err != nil {
		return channel.Page[channel.Contact]{}, err
	}
	session, cfg, err := h.session(inst)
	if err != nil {
		return channel.Page[channel.Contact]{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	seen := map[string]bool{}
	contacts := []channel.Contact{}
	for _, guildID := range h.guildIDs(session, cfg) {
		// Discord pages members at 1000 per request; cursor with the last
		// member id until a short page to get the full native set.
		after := ""
		for {
			members, err := session.GuildMembers(guildID, after, memberPageLimit, discordgo.WithContext(ctx))
			if err != nil {
				return channel.Page[channel.Contact]{}, wrapRESTError(fmt.Sprintf("guild %s members", guildID), err)
			}
			for _, member := range members {
				contact := ContactFromMember(inst, member, statePresence(session, guildID, member), guildID, h.mappings)
				if contact.ID == "" || seen[contact.ID] {
					continue
				}
				seen[contact.ID] = true
				contacts = append(contacts, contact)
			}
			if len(members) < memberPageLimit {
				break
			}
			last := members[len(members)-1]
			if last == nil || last.User == nil || last.User.ID == "" || last.User.ID == after {
				break
			}
			after = last.User.ID
		}
	}
	sortContacts(contacts)
	return channel.Paginate(channel.FilterContacts(contacts, query), page, pageSize), nil
}

// GetChats collects guild channels and the bot's cached DM channels. Discord
// has no archive concept, so the archived filter imposes no constraint.
func (h *Handler) GetChats(ctx context.Context, inst channel.Instance, query channel.ChatQuery) (channel.Page[channel.Chat], error) {
	page, pageSize, err := channel.NormalizePageRequest(query.Page, query.PageSize)
	if err != nil {
		return channel.Page[channel.Chat]{}, err
	}
	session, cfg, err := h.session(inst)
	if err != nil {
		return channel.Page[channel.Chat]{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	chats := []channel.Chat{}
	for _, guildID := range h.guildIDs(session, cfg) {
		channels, err := session.GuildChannels(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return channel.Page[channel.Chat]{}, wrapRESTError(fmt.Sprintf("guild %s channels", guildID), err)
		}
		for _, ch := range channels {
			chats = append(chats, ChatFromChannel(inst, ch, h.mappings))
		}
	}
	if session.State != nil {
		for _, ch := range session.State.PrivateChannels {
			chats = append(chats, ChatFromChannel(inst, ch, h.mappings))
		}
	}
	sortChats(chats)
	return channel.Paginate(channel.FilterChats(chats, query, false), page, pageSize), nil
}

// GetContactByID resolves one user by snowflake id.
func (h *Handler) GetContactByID(ctx context.Context, inst channel.Instance, id string) (channel.Contact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return channel.Contact{}, channel.NewValidationError("contact_id", "must not be empty")
	}
	session, cfg, err := h.session(inst)
	if err != nil {
		return channel.Contact{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	user, err := session.User(id, discordgo.WithContext(ctx))
	if err != nil {
		return channel.Contact{}, wrapRESTError("user "+id, err)
	}
	var presence *discordgo.Presence
	var guildID string
	if session.State != nil {
		for _, gid := range h.guildIDs(session, cfg) {
			if p, perr := session.State.Presence(gid, id); perr == nil && p != nil {
				presence = p
				guildID = gid
				break
			}
		}
	}
	return ContactFromUser(inst, user, presence, guildID, h.mappings), nil
}

// GetChatByID resolves one channel by snowflake id.
func (h *Handler) GetChatByID(ctx context.Context, inst channel.Instance, id string) (channel.Chat, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return channel.Chat{}, channel.NewValidationError("chat_id", "must not be empty")
	}
	session, _, err := h.session(inst)
	if err != nil {
		return channel.Chat{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	ch, err := session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return channel.Chat{}, wrapRESTError("channel "+id, err)
	}
	return ChatFromChannel(inst, ch, h.mappings), nil
}

// GetChannelInfo reports the static Discord capability flags plus the
// connection manager's current state, read as an opaque signal.
func (h *Handler) GetChannelInfo(_ context.Context, inst channel.Instance) (channel.Descriptor, error) {
	state := h.connectionState(inst)
	return channel.Descriptor{
		InstanceName:     inst.Name,
		ChannelType:      channel.TypeDiscord,
		DisplayName:      displayName(inst),
		Status:           string(state),
		IsHealthy:        state.Healthy(),
		SupportsContacts: true,
		SupportsGroups:   true,
		SupportsMedia:    true,
		SupportsVoice:    true,
	}, nil
}

// GetStatus probes the connection manager's state for the instance.
func (h *Handler) GetStatus(_ context.Context, inst channel.Instance) (channel.ConnectionStatus, error) {
	state := h.connectionState(inst)
	return channel.ConnectionStatus{
		InstanceName: inst.Name,
		ChannelType:  channel.TypeDiscord,
		State:        state,
		Healthy:      state.Healthy(),
	}, nil
}

// session returns a usable live session or ErrBackendUnavailable. The
// registry legitimately reports "no active connection" at any time; that is
// an unavailability, never a crash.
func (h *Handler) session(inst channel.Instance) (*discordgo.Session, Config, error) {
	cfg, err := parseConfig(inst.Credentials)
	if err != nil {
		return nil, Config{}, err
	}
	session, state, ok := h.source.Session(inst.Name)
	if !ok || session == nil {
		return nil, Config{}, fmt.Errorf("instance %s has no active discord connection: %w", inst.Name, channel.ErrBackendUnavailable)
	}
	if !state.Healthy() {
		return nil, Config{}, fmt.Errorf("instance %s discord connection is %s: %w", inst.Name, state, channel.ErrBackendUnavailable)
	}
	return session, cfg, nil
}

func (h *Handler) connectionState(inst channel.Instance) channel.ConnectionState {
	_, state, ok := h.source.Session(inst.Name)
	if !ok || state == "" {
		return channel.StateFailed
	}
	return state
}

func (h *Handler) guildIDs(session *discordgo.Session, cfg Config) []string {
	if cfg.GuildID != "" {
		return []string{cfg.GuildID}
	}
	if session.State == nil {
		return nil
	}
	ids := make([]string, 0, len(session.State.Guilds))
	for _, guild := range session.State.Guilds {
		ids = append(ids, guild.ID)
	}
	return ids
}

func statePresence(session *discordgo.Session, guildID string, member *discordgo.Member) *discordgo.Presence {
	if session.State == nil || member == nil || member.User == nil {
		return nil
	}
	presence, err := session.State.Presence(guildID, member.User.ID)
	if err != nil {
		return nil
	}
	return presence
}

// wrapRESTError folds a discordgo REST failure onto the core error taxonomy:
// a platform 404 is ErrNotFound, everything else is ErrBackendUnavailable.
func wrapRESTError(what string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", what, channel.ErrNotFound)
	}
	return fmt.Errorf("%s: %v: %w", what, err, channel.ErrBackendUnavailable)
}

func sortContacts(items []channel.Contact) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

func sortChats(items []channel.Chat) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

func displayName(inst channel.Instance) string {
	if inst.DisplayName != "" {
		return inst.DisplayName
	}
	return inst.Name
}
