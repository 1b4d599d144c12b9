package channel

import (
	"errors"
	"fmt"
	"sync"
)

// Registry is the static dispatch table from ChannelType to the one Handler
// implementation for that platform. It is the single entry point the serving
// layer uses to reach an adapter; selection is by type, never by reflection.
type Registry struct {
	mu       sync.RWMutex
	handlers map[ChannelType]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[ChannelType]Handler{}}
}

// Register adds a handler to the registry. Each channel type may be
// registered at most once.
func (r *Registry) Register(handler Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	ct, err := ParseChannelType(handler.Type().String())
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[ct]; exists {
		return fmt.Errorf("channel type already registered: %s", ct)
	}
	r.handlers[ct] = handler
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(handler Handler) {
	if err := r.Register(handler); err != nil {
		panic(err)
	}
}

// Get returns the handler for the given channel type.
func (r *Registry) Get(channelType ChannelType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[channelType]
	return handler, ok
}

// Resolve parses raw into a registered channel type and returns its handler.
func (r *Registry) Resolve(raw string) (Handler, error) {
	ct, err := ParseChannelType(raw)
	if err != nil {
		return nil, err
	}
	handler, ok := r.Get(ct)
	if !ok {
		return nil, fmt.Errorf("no handler registered for channel type: %s", ct)
	}
	return handler, nil
}

// Types returns all registered channel types.
func (r *Registry) Types() []ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]ChannelType, 0, len(r.handlers))
	for ct := range r.handlers {
		items = append(items, ct)
	}
	return items
}
