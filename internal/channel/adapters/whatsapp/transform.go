package whatsapp

import (
	"strings"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

// Source keys that fill canonical slots and therefore never land in
// channel_data.
var canonicalContactKeys = map[string]bool{
	"id":                true,
	"remoteJid":         true,
	"pushName":          true,
	"name":              true,
	"profilePicUrl":     true,
	"profilePictureUrl": true,
}

var canonicalChatKeys = map[string]bool{
	"id":        true,
	"remoteJid": true,
	"name":      true,
	"pushName":  true,
}

// BareID strips the platform suffix from a raw WhatsApp identifier
// ("5511999999999@c.us" → "5511999999999"). Stripping an empty identifier is
// a no-op, not an error.
func BareID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		return raw[:at]
	}
	return raw
}

// ContactFromRecord maps one raw bridge contact record to a canonical
// contact. Missing or null fields degrade to defaults; the transformer never
// fails on a well-formed map.
func ContactFromRecord(inst channel.Instance, raw map[string]any) channel.Contact {
	rawID := channel.ReadString(raw, "id", "remoteJid")
	name := strings.TrimSpace(channel.ReadString(raw, "pushName"))
	if name == "" {
		name = strings.TrimSpace(channel.ReadString(raw, "name"))
	}
	if name == "" {
		name = "Unknown"
	}

	contact := channel.Contact{
		ID:           BareID(rawID),
		Name:         name,
		ChannelType:  channel.TypeWhatsApp,
		InstanceName: inst.Name,
		// The bridge exposes no presence concept.
		Status:      channel.StatusUnknown,
		ChannelData: auxData(raw, canonicalContactKeys),
	}
	if avatar := strings.TrimSpace(channel.ReadString(raw, "profilePicUrl", "profilePictureUrl")); avatar != "" {
		contact.AvatarURL = &avatar
	}
	return contact
}

// ChatFromRecord maps one raw bridge chat record to a canonical chat.
func ChatFromRecord(inst channel.Instance, raw map[string]any, mappings channel.Mappings) channel.Chat {
	rawID := channel.ReadString(raw, "id", "remoteJid")
	name := strings.TrimSpace(channel.ReadString(raw, "name"))
	if name == "" {
		name = strings.TrimSpace(channel.ReadString(raw, "pushName"))
	}
	if name == "" {
		name = "Unknown"
	}

	chatType := mappings.WhatsAppChatType(chatKind(rawID, raw))
	chat := channel.Chat{
		ID:           BareID(rawID),
		Name:         name,
		ChatType:     chatType,
		ChannelType:  channel.TypeWhatsApp,
		InstanceName: inst.Name,
		ChannelData:  auxData(raw, canonicalChatKeys),
	}
	// Participant counts only exist for group chats; everywhere else the
	// concept does not apply and the field stays null.
	if chatType == channel.ChatGroup {
		if size, ok := channel.ReadInt(raw, "size", "participantsCount", "participants"); ok {
			chat.ParticipantCount = &size
		}
	}
	if desc := strings.TrimSpace(channel.ReadString(raw, "description")); desc != "" {
		chat.Description = &desc
	}
	return chat
}

// chatKind classifies a raw chat record by its identifier suffix and group
// flag into the bridge kinds the mapping table understands.
func chatKind(rawID string, raw map[string]any) string {
	switch {
	case strings.HasSuffix(rawID, "@g.us") || channel.ReadBool(raw, "isGroup"):
		return "group"
	case strings.HasSuffix(rawID, "@broadcast"):
		return "broadcast"
	case strings.HasSuffix(rawID, "@newsletter"):
		return "newsletter"
	default:
		return "direct"
	}
}

func auxData(raw map[string]any, canonical map[string]bool) map[string]any {
	data := map[string]any{}
	for key, value := range raw {
		if canonical[key] || value == nil {
			continue
		}
		data[key] = value
	}
	if len(data) == 0 {
		return nil
	}
	return data
}
