// Package whatsapp adapts a WhatsApp bridge API (Evolution-style HTTP
// surface) to the canonical channel handler contract.
package whatsapp

import (
	"strings"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

// Config is the per-instance bridge connection settings parsed from the
// instance credentials map.
type Config struct {
	ServerURL string
	APIKey    string
}

func parseConfig(raw map[string]any) (Config, error) {
	serverURL := strings.TrimRight(strings.TrimSpace(channel.ReadString(raw, "serverUrl", "server_url")), "/")
	if serverURL == "" {
		return Config{}, channel.NewValidationError("server_url", "required for whatsapp instances")
	}
	apiKey := strings.TrimSpace(channel.ReadString(raw, "apiKey", "api_key"))
	if apiKey == "" {
		return Config{}, channel.NewValidationError("api_key", "required for whatsapp instances")
	}
	return Config{ServerURL: serverURL, APIKey: apiKey}, nil
}
