package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/namastexlabs/automagik-omni/internal/channel"
	"github.com/namastexlabs/automagik-omni/internal/instance"
)

type fakeResolver struct {
	items map[string]instance.Instance
}

func (f *fakeResolver) GetByName(_ context.Context, name string) (instance.Instance, error) {
	item, ok := f.items[name]
	if !ok {
		return instance.Instance{}, fmt.Errorf("instance %s: %w", name, instance.ErrNotFound)
	}
	return item, nil
}

func (f *fakeResolver) List(context.Context) ([]instance.Instance, error) {
	out := make([]instance.Instance, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

type fixedHandler struct {
	contacts []channel.Contact
	status   channel.ConnectionStatus
	err      error
}

func (h *fixedHandler) Type() channel.ChannelType { return channel.TypeWhatsApp }

func (h *fixedHandler) GetContacts(_ context.Context, _ channel.Instance, query channel.ContactQuery) (channel.Page[channel.Contact], error) {
	if h.err != nil {
		return channel.Page[channel.Contact]{}, h.err
	}
	page, pageSize, err := channel.NormalizePageRequest(query.Page, query.PageSize)
	if err != nil {
		return channel.Page[channel.Contact]{}, err
	}
	return channel.Paginate(channel.FilterContacts(h.contacts, query), page, pageSize), nil
}

func (h *fixedHandler) GetChats(context.Context, channel.Instance, channel.ChatQuery) (channel.Page[channel.Chat], error) {
	return channel.Page[channel.Chat]{Items: []channel.Chat{}}, h.err
}

func (h *fixedHandler) GetContactByID(_ context.Context, _ channel.Instance, id string) (channel.Contact, error) {
	for _, contact := range h.contacts {
		if contact.ID == id {
			return contact, nil
		}
	}
	return channel.Contact{}, fmt.Errorf("contact %s: %w", id, channel.ErrNotFound)
}

func (h *fixedHandler) GetChatByID(context.Context, channel.Instance, string) (channel.Chat, error) {
	return channel.Chat{}, channel.ErrNotFound
}

func (h *fixedHandler) GetChannelInfo(_ context.Context, inst channel.Instance) (channel.Descriptor, error) {
	return channel.Descriptor{InstanceName: inst.Name, ChannelType: channel.TypeWhatsApp}, h.err
}

func (h *fixedHandler) GetStatus(context.Context, channel.Instance) (channel.ConnectionStatus, error) {
	return h.status, h.err
}

func newOmniTestServer(t *testing.T, handler channel.Handler) *echo.Echo {
	t.Helper()
	resolver := &fakeResolver{items: map[string]instance.Instance{
		"wa-main": {Name: "wa-main", ChannelType: channel.TypeWhatsApp},
	}}
	registry := channel.NewRegistry()
	registry.MustRegister(handler)

	e := echo.New()
	NewOmniHandler(nil, resolver, registry).Register(e)
	return e
}

func doRequest(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestListContactsRoute(t *testing.T) {
	t.Parallel()
	e := newOmniTestServer(t, &fixedHandler{contacts: []channel.Contact{
		{ID: "1", Name: "Ana", Status: channel.StatusUnknown},
		{ID: "2", Name: "Bruno", Status: channel.StatusUnknown},
	}})

	rec := doRequest(e, http.MethodGet, "/api/v1/instances/wa-main/contacts?page=1&page_size=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var page channel.Page[channel.Contact]
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if page.TotalCount != 2 || len(page.Items) != 1 {
		t.Fatalf("page = %+v, want 1 of 2", page)
	}
}

func TestListContactsRouteValidation(t *testing.T) {
	t.Parallel()
	e := newOmniTestServer(t, &fixedHandler{})

	rec := doRequest(e, http.MethodGet, "/api/v1/instances/wa-main/contacts?page_size=101")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("over-max page_size status = %d, want 400", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/instances/wa-main/contacts?status_filter=sleepy")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status_filter status = %d, want 400", rec.Code)
	}
}

func TestUnknownInstanceRoute(t *testing.T) {
	t.Parallel()
	e := newOmniTestServer(t, &fixedHandler{})

	rec := doRequest(e, http.MethodGet, "/api/v1/instances/missing/contacts")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetContactRoute(t *testing.T) {
	t.Parallel()
	e := newOmniTestServer(t, &fixedHandler{contacts: []channel.Contact{
		{ID: "1", Name: "Ana"},
	}})

	rec := doRequest(e, http.MethodGet, "/api/v1/instances/wa-main/contacts/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/instances/wa-main/contacts/99")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing contact status = %d, want 404", rec.Code)
	}
}

func TestBackendUnavailableRoute(t *testing.T) {
	t.Parallel()
	e := newOmniTestServer(t, &fixedHandler{err: fmt.Errorf("bridge down: %w", channel.ErrBackendUnavailable)})

	rec := doRequest(e, http.MethodGet, "/api/v1/instances/wa-main/contacts")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestStatusRoute(t *testing.T) {
	t.Parallel()
	e := newOmniTestServer(t, &fixedHandler{status: channel.ConnectionStatus{
		InstanceName: "wa-main",
		ChannelType:  channel.TypeWhatsApp,
		State:        channel.StateConnected,
		Healthy:      true,
	}})

	rec := doRequest(e, http.MethodGet, "/api/v1/instances/wa-main/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status channel.ConnectionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if status.State != channel.StateConnected || !status.Healthy {
		t.Fatalf("status = %+v, want connected/healthy", status)
	}
}

func TestListChannelsRoute(t *testing.T) {
	t.Parallel()
	e := newOmniTestServer(t, &fixedHandler{})

	rec := doRequest(e, http.MethodGet, "/api/v1/channels")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Channels []channel.Descriptor `json:"channels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Channels) != 1 || body.Channels[0].InstanceName != "wa-main" {
		t.Fatalf("channels = %+v, want one wa-main descriptor", body.Channels)
	}
}
