package channel

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Quota enforces a sliding-window request limit per instance. A request over
// quota is rejected before any platform I/O and does not consume capacity.
type Quota struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewQuota creates a quota of limit requests per window. A non-positive limit
// or window disables enforcement.
func NewQuota(limit int, window time.Duration) *Quota {
	return &Quota{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   map[string][]time.Time{},
	}
}

// Allow records one request against the instance and reports whether it is
// within quota. Hits older than the window slide out of scope.
func (q *Quota) Allow(instance string) bool {
	if q == nil || q.limit <= 0 || q.window <= 0 {
		return true
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	cutoff := now.Add(-q.window)
	recent := q.hits[instance][:0]
	for _, hit := range q.hits[instance] {
		if hit.After(cutoff) {
			recent = append(recent, hit)
		}
	}
	if len(recent) >= q.limit {
		q.hits[instance] = recent
		return false
	}
	q.hits[instance] = append(recent, now)
	return true
}

// WithQuota wraps a handler so that every operation checks the per-instance
// quota before reaching the platform.
func WithQuota(handler Handler, quota *Quota) Handler {
	if quota == nil {
		return handler
	}
	return &quotaHandler{next: handler, quota: quota}
}

type quotaHandler struct {
	next  Handler
	quota *Quota
}

func (h *quotaHandler) Type() ChannelType {
	return h.next.Type()
}

func (h *quotaHandler) allow(inst Instance) error {
	if !h.quota.Allow(inst.Name) {
		return fmt.Errorf("instance %s over quota: %w", inst.Name, ErrRateLimited)
	}
	return nil
}

func (h *quotaHandler) GetContacts(ctx context.Context, inst Instance, query ContactQuery) (Page[Contact], error) {
	if err := h.allow(inst); err != nil {
		return Page[Contact]{}, err
	}
	return h.next.GetContacts(ctx, inst, query)
}

func (h *quotaHandler) GetChats(ctx context.Context, inst Instance, query ChatQuery) (Page[Chat], error) {
	if err := h.allow(inst); err != nil {
		return Page[Chat]{}, err
	}
	return h.next.GetChats(ctx, inst, query)
}

func (h *quotaHandler) GetContactByID(ctx context.Context, inst Instance, id string) (Contact, error) {
	if err := h.allow(inst); err != nil {
		return Contact{}, err
	}
	return h.next.GetContactByID(ctx, inst, id)
}

func (h *quotaHandler) GetChatByID(ctx context.Context, inst Instance, id string) (Chat, error) {
	if err := h.allow(inst); err != nil {
		return Chat{}, err
	}
	return h.next.GetChatByID(ctx, inst, id)
}

func (h *quotaHandler) GetChannelInfo(ctx context.Context, inst Instance) (Descriptor, error) {
	if err := h.allow(inst); err != nil {
		return Descriptor{}, err
	}
	return h.next.GetChannelInfo(ctx, inst)
}

func (h *quotaHandler) GetStatus(ctx context.Context, inst Instance) (ConnectionStatus, error) {
	if err := h.allow(inst); err != nil {
		return ConnectionStatus{}, err
	}
	return h.next.GetStatus(ctx, inst)
}
