package channel

import "context"

// ContactQuery carries pagination and filter parameters for GetContacts.
// A zero-value filter field means "no constraint", not "match default".
type ContactQuery struct {
	Page     int
	PageSize int
	// Search is a case-insensitive substring match on the canonical name.
	Search string
	// Status filters on the canonical contact status.
	Status ContactStatus
}

// ChatQuery carries pagination and filter parameters for GetChats.
type ChatQuery struct {
	Page     int
	PageSize int
	// ChatType filters on the canonical chat type.
	ChatType ChatType
	// Archived filters on the platform archive flag. Platforms without an
	// archive concept ignore it and return the full set.
	Archived *bool
}

// Handler is the capability contract every platform adapter satisfies. All
// operations construct canonical entities fresh per call, never mutate shared
// state, and are safe to call concurrently for different instances. Outbound
// platform calls are bounded by the adapter's timeout; on timeout the
// operation surfaces ErrBackendUnavailable.
//
// GetStatus is the only liveness operation.
type Handler interface {
	Type() ChannelType

	// GetContacts fetches the platform's native contact set, transforms it to
	// canonical contacts, applies the query filters on the canonical
	// representation, and paginates.
	GetContacts(ctx context.Context, inst Instance, query ContactQuery) (Page[Contact], error)

	// GetChats is the chat analogue of GetContacts.
	GetChats(ctx context.Context, inst Instance, query ChatQuery) (Page[Chat], error)

	// GetContactByID returns the canonical contact with the given platform id,
	// or ErrNotFound.
	GetContactByID(ctx context.Context, inst Instance, id string) (Contact, error)

	// GetChatByID returns the canonical chat with the given platform id, or
	// ErrNotFound.
	GetChatByID(ctx context.Context, inst Instance, id string) (Chat, error)

	// GetChannelInfo returns the static capability flags for the channel type
	// plus a live status read from the platform connection. The connection
	// state is read, never mutated.
	GetChannelInfo(ctx context.Context, inst Instance) (Descriptor, error)

	// GetStatus is the lightweight liveness probe.
	GetStatus(ctx context.Context, inst Instance) (ConnectionStatus, error)
}
