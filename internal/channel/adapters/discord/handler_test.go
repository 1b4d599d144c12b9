package discord_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/namastexlabs/automagik-omni/internal/channel"
	"github.com/namastexlabs/automagik-omni/internal/channel/adapters/discord"
)

// fakeSource stands in for the connection manager's session registry.
type fakeSource struct {
	sessions map[string]*discordgo.Session
	states   map[string]channel.ConnectionState
}

func (f *fakeSource) Session(instance string) (*discordgo.Session, channel.ConnectionState, bool) {
	session, ok := f.sessions[instance]
	if !ok {
		return nil, "", false
	}
	return session, f.states[instance], true
}

func testCredentials() map[string]any {
	return map[string]any{"bot_token": "token-abc"}
}

func TestOperationsWithoutConnection(t *testing.T) {
	t.Parallel()
	handler := discord.NewHandler(nil, &fakeSource{}, channel.DefaultMappings())
	inst := channel.Instance{Name: "dc-main", Type: channel.TypeDiscord, Credentials: testCredentials()}

	if _, err := handler.GetContacts(context.Background(), inst, channel.ContactQuery{Page: 1}); !errors.Is(err, channel.ErrBackendUnavailable) {
		t.Fatalf("GetContacts error = %v, want ErrBackendUnavailable", err)
	}
	if _, err := handler.GetChats(context.Background(), inst, channel.ChatQuery{Page: 1}); !errors.Is(err, channel.ErrBackendUnavailable) {
		t.Fatalf("GetChats error = %v, want ErrBackendUnavailable", err)
	}
	if _, err := handler.GetContactByID(context.Background(), inst, "42"); !errors.Is(err, channel.ErrBackendUnavailable) {
		t.Fatalf("GetContactByID error = %v, want ErrBackendUnavailable", err)
	}
}

func TestOperationsWithUnhealthyConnection(t *testing.T) {
	t.Parallel()
	source := &fakeSource{
		sessions: map[string]*discordgo.Session{"dc-main": {}},
		states:   map[string]channel.ConnectionState{"dc-main": channel.StateBackoff},
	}
	handler := discord.NewHandler(nil, source, channel.DefaultMappings())
	inst := channel.Instance{Name: "dc-main", Type: channel.TypeDiscord, Credentials: testCredentials()}

	if _, err := handler.GetContacts(context.Background(), inst, channel.ContactQuery{Page: 1}); !errors.Is(err, channel.ErrBackendUnavailable) {
		t.Fatalf("GetContacts error = %v, want ErrBackendUnavailable", err)
	}
}

func TestMissingBotTokenRejected(t *testing.T) {
	t.Parallel()
	handler := discord.NewHandler(nil, &fakeSource{}, channel.DefaultMappings())
	inst := channel.Instance{Name: "dc-main", Type: channel.TypeDiscord, Credentials: map[string]any{}}

	_, err := handler.GetContacts(context.Background(), inst, channel.ContactQuery{Page: 1})
	if !channel.IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestGetStatusReflectsManagerState(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		state       channel.ConnectionState
		wantHealthy bool
	}{
		{"connected", channel.StateConnected, true},
		{"connecting", channel.StateConnecting, false},
		{"backoff", channel.StateBackoff, false},
		{"circuit open", channel.StateCircuitOpen, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSource{
				sessions: map[string]*discordgo.Session{"dc-main": {}},
				states:   map[string]channel.ConnectionState{"dc-main": tc.state},
			}
			handler := discord.NewHandler(nil, source, channel.DefaultMappings())
			inst := channel.Instance{Name: "dc-main", Type: channel.TypeDiscord, Credentials: testCredentials()}

			status, err := handler.GetStatus(context.Background(), inst)
			if err != nil {
				t.Fatalf("GetStatus error = %v", err)
			}
			if status.State != tc.state || status.Healthy != tc.wantHealthy {
				t.Fatalf("status = %+v, want state %s healthy %v", status, tc.state, tc.wantHealthy)
			}
		})
	}
}

func TestGetStatusMissingConnection(t *testing.T) {
	t.Parallel()
	handler := discord.NewHandler(nil, &fakeSource{}, channel.DefaultMappings())
	inst := channel.Instance{Name: "dc-main", Type: channel.TypeDiscord, Credentials: testCredentials()}

	status, err := handler.GetStatus(context.Background(), inst)
	if err != nil {
		t.Fatalf("GetStatus error = %v, want degraded result", err)
	}
	if status.State != channel.StateFailed || status.Healthy {
		t.Fatalf("status = %+v, want failed/unhealthy", status)
	}
}

func TestGetChannelInfo(t *testing.T) {
	t.Parallel()
	source := &fakeSource{
		sessions: map[string]*discordgo.Session{"dc-main": {}},
		states:   map[string]channel.ConnectionState{"dc-main": channel.StateConnected},
	}
	handler := discord.NewHandler(nil, source, channel.DefaultMappings())
	inst := channel.Instance{Name: "dc-main", Type: channel.TypeDiscord, DisplayName: "Main Bot", Credentials: testCredentials()}

	descriptor, err := handler.GetChannelInfo(context.Background(), inst)
	if err != nil {
		t.Fatalf("GetChannelInfo error = %v", err)
	}
	if !descriptor.IsHealthy || descriptor.Status != string(channel.StateConnected) {
		t.Fatalf("descriptor = %+v, want healthy/connected", descriptor)
	}
	if descriptor.DisplayName != "Main Bot" {
		t.Fatalf("DisplayName = %q, want Main Bot", descriptor.DisplayName)
	}
	if !descriptor.SupportsVoice {
		t.Fatal("descriptor reports no voice support, want voice")
	}
}

// memberPageTransport serves the guild members REST endpoint with sequential
// zero-padded member ids, honoring the limit and after cursor parameters.
type memberPageTransport struct {
	total    int
	requests int
}

func (p *memberPageTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	p.requests++
	query := req.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 1
	}
	start := 0
	if after := query.Get("after"); after != "" {
		start, _ = strconv.Atoi(after)
	}
	members := []map[string]any{}
	for id := start + 1; id <= p.total && len(members) < limit; id++ {
		members = append(members, map[string]any{
			"user": map[string]any{
				"id":       fmt.Sprintf("%04d", id),
				"username": fmt.Sprintf("user-%04d", id),
			},
		})
	}
	body, err := json.Marshal(members)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}

func TestGetContactsPagesThroughLargeGuild(t *testing.T) {
	t.Parallel()
	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	transport := &memberPageTransport{total: 1500}
	session.Client = &http.Client{Transport: transport}

	source := &fakeSource{
		sessions: map[string]*discordgo.Session{"dc-main": session},
		states:   map[string]channel.ConnectionState{"dc-main": channel.StateConnected},
	}
	handler := discord.NewHandler(nil, source, channel.DefaultMappings())
	inst := channel.Instance{
		Name:        "dc-main",
		Type:        channel.TypeDiscord,
		Credentials: map[string]any{"bot_token": "test-token", "guild_id": "g1"},
	}

	page, err := handler.GetContacts(context.Background(), inst, channel.ContactQuery{Page: 1, PageSize: 50})
	if err != nil {
		t.Fatalf("GetContacts error = %v", err)
	}
	if page.TotalCount != 1500 {
		t.Fatalf("TotalCount = %d, want 1500 (every member page)", page.TotalCount)
	}
	if len(page.Items) != 50 || page.Items[0].ID != "0001" {
		t.Fatalf("first page = %d items starting %q, want 50 starting 0001", len(page.Items), page.Items[0].ID)
	}
	if transport.requests < 2 {
		t.Fatalf("member requests = %d, want several cursor pages", transport.requests)
	}
}

func TestGetChatsFromCachedPrivateChannels(t *testing.T) {
	t.Parallel()
	state := discordgo.NewState()
	state.PrivateChannels = []*discordgo.Channel{
		{ID: "100", Type: discordgo.ChannelTypeDM},
		{ID: "200", Type: discordgo.ChannelTypeGroupDM, Recipients: []*discordgo.User{{ID: "a"}, {ID: "b"}}},
	}
	source := &fakeSource{
		sessions: map[string]*discordgo.Session{"dc-main": {State: state}},
		states:   map[string]channel.ConnectionState{"dc-main": channel.StateConnected},
	}
	handler := discord.NewHandler(nil, source, channel.DefaultMappings())
	inst := channel.Instance{Name: "dc-main", Type: channel.TypeDiscord, Credentials: testCredentials()}

	page, err := handler.GetChats(context.Background(), inst, channel.ChatQuery{Page: 1})
	if err != nil {
		t.Fatalf("GetChats error = %v", err)
	}
	if page.TotalCount != 2 {
		t.Fatalf("TotalCount = %d, want 2", page.TotalCount)
	}
	if page.Items[0].ID != "100" || page.Items[0].Name != "DM-100" {
		t.Fatalf("first chat = %+v, want DM-100", page.Items[0])
	}
	if page.Items[1].ChatType != channel.ChatGroup {
		t.Fatalf("second chat type = %s, want group", page.Items[1].ChatType)
	}

	// Discord does not track archived chats; the filter imposes nothing.
	archived := true
	filtered, err := handler.GetChats(context.Background(), inst, channel.ChatQuery{Page: 1, Archived: &archived})
	if err != nil {
		t.Fatalf("GetChats (archived) error = %v", err)
	}
	if filtered.TotalCount != 2 {
		t.Fatalf("archived filter TotalCount = %d, want 2", filtered.TotalCount)
	}
}
