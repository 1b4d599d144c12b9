// Package discord adapts a Discord bot connection (discordgo) to the
// canonical channel handler contract. Live sessions are owned by the
// connection Manager; the Handler only performs read-only lookups against it.
package discord

import (
	"strings"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

// Config is the per-instance bot settings parsed from the instance
// credentials map.
type Config struct {
	BotToken string
	// GuildID restricts directory reads to one guild when set; empty means
	// every guild the bot is a member of.
	GuildID string
}

func parseConfig(raw map[string]any) (Config, error) {
	token := strings.TrimSpace(channel.ReadString(raw, "botToken", "bot_token"))
	if token == "" {
		return Config{}, channel.NewValidationError("bot_token", "required for discord instances")
	}
	return Config{
		BotToken: token,
		GuildID:  strings.TrimSpace(channel.ReadString(raw, "guildId", "guild_id")),
	}, nil
}
