package instance_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/namastexlabs/automagik-omni/internal/channel"
	"github.com/namastexlabs/automagik-omni/internal/instance"
)

func newTestStore(t *testing.T) *instance.Store {
	t.Helper()
	store, err := instance.NewStore(":memory:", nil)
	if err != nil {
		t.Fatalf("NewStore error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, instance.CreateRequest{
		Name:        "wa-main",
		ChannelType: "whatsapp",
		DisplayName: "Main Line",
		Credentials: map[string]any{"server_url": "http://bridge:8080", "api_key": "secret"},
	})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("created instance has empty id")
	}
	if !created.IsDefault {
		t.Fatal("first instance should become default")
	}

	got, err := store.GetByName(ctx, "wa-main")
	if err != nil {
		t.Fatalf("GetByName error = %v", err)
	}
	if got.ChannelType != channel.TypeWhatsApp || got.DisplayName != "Main Line" {
		t.Fatalf("instance = %+v, want whatsapp/Main Line", got)
	}
	if got.Credentials["api_key"] != "secret" {
		t.Fatalf("credentials = %v, want round-tripped api_key", got.Credentials)
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, instance.CreateRequest{Name: "", ChannelType: "whatsapp"}); !channel.IsValidation(err) {
		t.Fatalf("empty name error = %v, want validation error", err)
	}
	if _, err := store.Create(ctx, instance.CreateRequest{Name: "x", ChannelType: "telegram"}); !channel.IsValidation(err) {
		t.Fatalf("unsupported type error = %v, want validation error", err)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	req := instance.CreateRequest{Name: "wa-main", ChannelType: "whatsapp"}
	if _, err := store.Create(ctx, req); err != nil {
		t.Fatalf("Create error = %v", err)
	}
	_, err := store.Create(ctx, req)
	if !errors.Is(err, instance.ErrAlreadyExists) {
		t.Fatalf("duplicate Create error = %v, want ErrAlreadyExists", err)
	}
}

func TestConcurrentFirstCreatesElectOneDefault(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	names := []string{"wa-main", "dc-main", "wa-backup", "dc-backup"}
	channelTypes := []string{"whatsapp", "discord", "whatsapp", "discord"}
	var wg sync.WaitGroup
	errs := make([]error, len(names))
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Create(ctx, instance.CreateRequest{Name: names[i], ChannelType: channelTypes[i]})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Create(%s) error = %v", names[i], err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	defaults := 0
	for _, inst := range all {
		if inst.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("default count = %d, want exactly 1", defaults)
	}
}

func TestListAndListByType(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	for _, req := range []instance.CreateRequest{
		{Name: "wa-main", ChannelType: "whatsapp"},
		{Name: "dc-main", ChannelType: "discord"},
		{Name: "wa-backup", ChannelType: "whatsapp"},
	} {
		if _, err := store.Create(ctx, req); err != nil {
			t.Fatalf("Create(%s) error = %v", req.Name, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List length = %d, want 3", len(all))
	}
	if all[0].Name != "dc-main" {
		t.Fatalf("List order = %s first, want dc-main (name order)", all[0].Name)
	}

	whats, err := store.ListByType(ctx, channel.TypeWhatsApp)
	if err != nil {
		t.Fatalf("ListByType error = %v", err)
	}
	if len(whats) != 2 {
		t.Fatalf("ListByType(whatsapp) length = %d, want 2", len(whats))
	}
}

func TestDefaultHandling(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, instance.CreateRequest{Name: "wa-main", ChannelType: "whatsapp"}); err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if _, err := store.Create(ctx, instance.CreateRequest{Name: "dc-main", ChannelType: "discord"}); err != nil {
		t.Fatalf("Create error = %v", err)
	}

	def, err := store.GetDefault(ctx)
	if err != nil {
		t.Fatalf("GetDefault error = %v", err)
	}
	if def.Name != "wa-main" {
		t.Fatalf("default = %s, want wa-main", def.Name)
	}

	if err := store.SetDefault(ctx, "dc-main"); err != nil {
		t.Fatalf("SetDefault error = %v", err)
	}
	def, err = store.GetDefault(ctx)
	if err != nil {
		t.Fatalf("GetDefault error = %v", err)
	}
	if def.Name != "dc-main" {
		t.Fatalf("default after SetDefault = %s, want dc-main", def.Name)
	}

	if err := store.SetDefault(ctx, "missing"); !errors.Is(err, instance.ErrNotFound) {
		t.Fatalf("SetDefault(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, instance.CreateRequest{Name: "wa-main", ChannelType: "whatsapp"}); err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if err := store.Delete(ctx, "wa-main"); err != nil {
		t.Fatalf("Delete error = %v", err)
	}
	if _, err := store.GetByName(ctx, "wa-main"); !errors.Is(err, instance.ErrNotFound) {
		t.Fatalf("GetByName after delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "wa-main"); !errors.Is(err, instance.ErrNotFound) {
		t.Fatalf("repeat Delete error = %v, want ErrNotFound", err)
	}
}
