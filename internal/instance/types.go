// Package instance stores named instance configurations: one record per
// configured platform connection (a WhatsApp number, a Discord bot).
package instance

import (
	"errors"
	"time"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

var (
	// ErrNotFound marks a lookup for an instance name that is not configured.
	ErrNotFound = errors.New("instance not found")
	// ErrAlreadyExists marks a create for a name already in use.
	ErrAlreadyExists = errors.New("instance already exists")
)

// Instance is one configured platform connection.
type Instance struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	ChannelType channel.ChannelType `json:"channel_type"`
	DisplayName string              `json:"display_name,omitempty"`
	Credentials map[string]any      `json:"-"`
	IsDefault   bool                `json:"is_default"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Channel converts the stored record into the adapter-facing instance value.
func (i Instance) Channel() channel.Instance {
	return channel.Instance{
		Name:        i.Name,
		Type:        i.ChannelType,
		DisplayName: i.DisplayName,
		Credentials: i.Credentials,
	}
}

// CreateRequest carries the fields for a new instance.
type CreateRequest struct {
	Name        string         `json:"name"`
	ChannelType string         `json:"channel_type"`
	DisplayName string         `json:"display_name"`
	Credentials map[string]any `json:"credentials"`
	IsDefault   bool           `json:"is_default"`
}
