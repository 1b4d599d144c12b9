// Package channel defines the canonical, platform-agnostic data model for
// contacts, chats, and channel descriptors, the handler contract every
// platform adapter implements, and the shared pagination and filtering rules.
package channel

import (
	"fmt"
	"strings"
)

// ChannelType identifies which platform adapter and transformer apply.
type ChannelType string

const (
	TypeWhatsApp ChannelType = "whatsapp"
	TypeDiscord  ChannelType = "discord"
)

func (t ChannelType) String() string {
	return string(t)
}

// ParseChannelType normalizes a raw string into a known ChannelType.
func ParseChannelType(raw string) (ChannelType, error) {
	normalized := ChannelType(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case TypeWhatsApp, TypeDiscord:
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported channel type: %s", raw)
	}
}

// ContactStatus is the canonical presence of a contact. StatusUnknown is the
// mandatory default when the platform has no comparable concept or reports a
// value outside the known set.
type ContactStatus string

const (
	StatusOnline  ContactStatus = "online"
	StatusOffline ContactStatus = "offline"
	StatusAway    ContactStatus = "away"
	StatusDND     ContactStatus = "dnd"
	StatusUnknown ContactStatus = "unknown"
)

// ChatType is the canonical shape of a conversation.
type ChatType string

const (
	ChatDirect  ChatType = "direct"
	ChatGroup   ChatType = "group"
	ChatChannel ChatType = "channel"
	ChatThread  ChatType = "thread"
)

// ConnectionState is the platform connection lifecycle signal read from the
// connection manager. Only StateConnected counts as healthy.
type ConnectionState string

const (
	StateConnecting  ConnectionState = "connecting"
	StateConnected   ConnectionState = "connected"
	StateFailed      ConnectionState = "failed"
	StateBackoff     ConnectionState = "backoff"
	StateCircuitOpen ConnectionState = "circuit_open"
)

// Healthy reports whether the state maps to is_healthy=true.
func (s ConnectionState) Healthy() bool {
	return s == StateConnected
}

// Contact is the canonical contact record. ID is never null (empty string is
// the fallback for a missing source id) and Name is never empty. ChannelData
// carries platform fields that have no canonical slot; it never duplicates
// ID, Name, or Status.
type Contact struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	ChannelType  ChannelType    `json:"channel_type"`
	InstanceName string         `json:"instance_name"`
	Status       ContactStatus  `json:"status"`
	AvatarURL    *string        `json:"avatar_url"`
	ChannelData  map[string]any `json:"channel_data,omitempty"`
}

// Chat is the canonical conversation record. ParticipantCount is nil (not
// zero) when the platform concept does not apply, e.g. a direct chat.
type Chat struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	ChatType         ChatType       `json:"chat_type"`
	ChannelType      ChannelType    `json:"channel_type"`
	InstanceName     string         `json:"instance_name"`
	ParticipantCount *int           `json:"participant_count"`
	Description      *string        `json:"description"`
	ChannelData      map[string]any `json:"channel_data,omitempty"`
}

// Descriptor describes one configured instance: static capability flags for
// its ChannelType plus a live status read from the platform connection.
type Descriptor struct {
	InstanceName     string      `json:"instance_name"`
	ChannelType      ChannelType `json:"channel_type"`
	DisplayName      string      `json:"display_name"`
	Status           string      `json:"status"`
	IsHealthy        bool        `json:"is_healthy"`
	SupportsContacts bool        `json:"supports_contacts"`
	SupportsGroups   bool        `json:"supports_groups"`
	SupportsMedia    bool        `json:"supports_media"`
	SupportsVoice    bool        `json:"supports_voice"`
}

// ConnectionStatus is the lightweight liveness probe result.
type ConnectionStatus struct {
	InstanceName string          `json:"instance_name"`
	ChannelType  ChannelType     `json:"channel_type"`
	State        ConnectionState `json:"state"`
	Healthy      bool            `json:"healthy"`
}

// Page is the paginated envelope shared by every list operation. TotalCount
// reflects the full filtered set size, independent of the requested page.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
}

// Instance is the resolved configuration of one platform connection as seen
// by adapters. Credentials is the platform-specific settings map; adapters
// parse it through their own typed config parsers.
type Instance struct {
	Name        string         `json:"name"`
	Type        ChannelType    `json:"channel_type"`
	DisplayName string         `json:"display_name,omitempty"`
	Credentials map[string]any `json:"-"`
}
