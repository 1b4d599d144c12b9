package channel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mappings holds the platform-code → canonical-enum tables. The values below
// are the resolved defaults; deployments can correct individual entries via a
// YAML override file without touching transformer code.
type Mappings struct {
	// DiscordChatTypes maps Discord numeric channel type codes to canonical
	// chat types. Codes not in the table fall back to ChatChannel.
	DiscordChatTypes map[int]ChatType `yaml:"discord_chat_types"`
	// DiscordPresence maps Discord presence strings to canonical statuses.
	// Values not in the table (including "invisible") fall back to
	// StatusUnknown, never StatusOffline.
	DiscordPresence map[string]ContactStatus `yaml:"discord_presence"`
	// WhatsAppChatKinds maps the bridge's chat kind (direct, group,
	// broadcast, newsletter) to canonical chat types.
	WhatsAppChatKinds map[string]ChatType `yaml:"whatsapp_chat_kinds"`
}

// DefaultMappings returns the compiled-in mapping tables.
func DefaultMappings() Mappings {
	return Mappings{
		DiscordChatTypes: map[int]ChatType{
			0:  ChatChannel, // guild text
			1:  ChatDirect,  // dm
			2:  ChatChannel, // guild voice
			3:  ChatGroup,   // group dm
			4:  ChatChannel, // guild category
			5:  ChatChannel, // guild news
			10: ChatThread,  // news thread
			11: ChatThread,  // public thread
			12: ChatThread,  // private thread
		},
		DiscordPresence: map[string]ContactStatus{
			"online":  StatusOnline,
			"idle":    StatusAway,
			"dnd":     StatusDND,
			"offline": StatusOffline,
		},
		WhatsAppChatKinds: map[string]ChatType{
			"direct":     ChatDirect,
			"group":      ChatGroup,
			"broadcast":  ChatChannel,
			"newsletter": ChatChannel,
		},
	}
}

// LoadMappings returns the default tables overlaid with entries from the YAML
// file at path. An empty path means defaults only.
func LoadMappings(path string) (Mappings, error) {
	mappings := DefaultMappings()
	if path == "" {
		return mappings, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return mappings, fmt.Errorf("read mappings file: %w", err)
	}
	var override Mappings
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return mappings, fmt.Errorf("parse mappings file: %w", err)
	}
	for code, chatType := range override.DiscordChatTypes {
		mappings.DiscordChatTypes[code] = chatType
	}
	for presence, status := range override.DiscordPresence {
		mappings.DiscordPresence[presence] = status
	}
	for kind, chatType := range override.WhatsAppChatKinds {
		mappings.WhatsAppChatKinds[kind] = chatType
	}
	return mappings, nil
}

// DiscordChatType resolves a Discord numeric channel code. Ambiguous or
// unknown codes resolve to ChatChannel.
func (m Mappings) DiscordChatType(code int) ChatType {
	if chatType, ok := m.DiscordChatTypes[code]; ok {
		return chatType
	}
	return ChatChannel
}

// DiscordStatus resolves a Discord presence string. Unknown values and the
// absence of a presence resolve to StatusUnknown.
func (m Mappings) DiscordStatus(raw string) ContactStatus {
	if status, ok := m.DiscordPresence[raw]; ok {
		return status
	}
	return StatusUnknown
}

// WhatsAppChatType resolves a bridge chat kind. Unknown kinds resolve to
// ChatDirect, the bridge's 1:1 default.
func (m Mappings) WhatsAppChatType(kind string) ChatType {
	if chatType, ok := m.WhatsAppChatKinds[kind]; ok {
		return chatType
	}
	return ChatDirect
}
