package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

const avatarBaseURL = "https://cdn.discordapp.com/avatars"

// ContactFromUser maps a Discord user plus its (possibly absent) presence to
// a canonical contact. A nil user degrades to the empty-id, "Unknown"
// defaults rather than failing.
func ContactFromUser(inst channel.Instance, user *discordgo.User, presence *discordgo.Presence, guildID string, mappings channel.Mappings) channel.Contact {
	contact := channel.Contact{
		Name:         "Unknown",
		ChannelType:  channel.TypeDiscord,
		InstanceName: inst.Name,
		Status:       channel.StatusUnknown,
	}
	if user == nil {
		return contact
	}

	contact.ID = user.ID
	data := map[string]any{}

	nameSource := "fallback"
	switch {
	case user.GlobalName != "":
		contact.Name = user.GlobalName
		nameSource = "global_name"
	case user.Username != "":
		contact.Name = user.Username
		nameSource = "username"
	}
	data["name_source"] = nameSource

	if presence != nil {
		contact.Status = mappings.DiscordStatus(string(presence.Status))
	}

	// Avatar URLs are only composed from a real avatar hash; no hash means a
	// null avatar_url, never a placeholder.
	if user.Avatar != "" {
		url := avatarBaseURL + "/" + user.ID + "/" + user.Avatar + ".png"
		contact.AvatarURL = &url
	}

	if user.Username != "" {
		data["username"] = user.Username
	}
	if user.Discriminator != "" && user.Discriminator != "0" {
		data["discriminator"] = user.Discriminator
	}
	if user.Bot {
		data["bot"] = true
	}
	if guildID != "" {
		data["guild_id"] = guildID
	}
	contact.ChannelData = data
	return contact
}

// ContactFromMember maps a guild member, carrying the member nickname as
// auxiliary data.
func ContactFromMember(inst channel.Instance, member *discordgo.Member, presence *discordgo.Presence, guildID string, mappings channel.Mappings) channel.Contact {
	if member == nil || member.User == nil {
		return ContactFromUser(inst, nil, presence, guildID, mappings)
	}
	contact := ContactFromUser(inst, member.User, presence, guildID, mappings)
	if member.Nick != "" {
		contact.ChannelData["nick"] = member.Nick
	}
	return contact
}

// ChatFromChannel maps a Discord channel to a canonical chat. The numeric
// channel type code resolves through the configurable mapping table; unknown
// codes land on ChatChannel.
func ChatFromChannel(inst channel.Instance, ch *discordgo.Channel, mappings channel.Mappings) channel.Chat {
	chat := channel.Chat{
		Name:         "Unknown",
		ChannelType:  channel.TypeDiscord,
		InstanceName: inst.Name,
		ChatType:     channel.ChatChannel,
	}
	if ch == nil {
		return chat
	}

	nativeType := int(ch.Type)
	chat.ID = ch.ID
	chat.ChatType = mappings.DiscordChatType(nativeType)

	switch {
	case ch.Name != "":
		chat.Name = ch.Name
	case isDMType(nativeType):
		// DM channels carry no name; synthesize one so the canonical name
		// stays non-empty.
		chat.Name = "DM-" + ch.ID
	}

	// Participant counts apply to group DMs and threads; for 1:1 DMs and
	// guild channels the concept does not apply and the field stays null.
	switch {
	case chat.ChatType == channel.ChatGroup && len(ch.Recipients) > 0:
		count := len(ch.Recipients)
		chat.ParticipantCount = &count
	case chat.ChatType == channel.ChatThread && ch.MemberCount > 0:
		count := ch.MemberCount
		chat.ParticipantCount = &count
	}

	if ch.Topic != "" {
		topic := ch.Topic
		chat.Description = &topic
	}

	data := map[string]any{"native_type": nativeType}
	if ch.GuildID != "" {
		data["guild_id"] = ch.GuildID
	}
	if ch.ParentID != "" {
		data["parent_id"] = ch.ParentID
	}
	if ch.NSFW {
		data["nsfw"] = true
	}
	chat.ChannelData = data
	return chat
}

// isDMType reports whether the native code is a direct or group DM channel.
func isDMType(nativeType int) bool {
	return nativeType == int(discordgo.ChannelTypeDM) || nativeType == int(discordgo.ChannelTypeGroupDM)
}
