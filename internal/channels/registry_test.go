package channels

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

type fakeChannel struct {
	name      string
	running   bool
	startErr  error
	sendErr   error
	sentCount int
}

func (f *fakeChannel) Name() string { return f.name }
func (f *fakeChannel) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}
func (f *fakeChannel) Stop(ctx context.Context) error {
	f.running = false
	return nil
}
func (f *fakeChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	f.sentCount++
	return f.sendErr
}
func (f *fakeChannel) IsRunning() bool             { return f.running }
func (f *fakeChannel) IsAllowed(sender string) bool { return true }

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	ch := &fakeChannel{name: "d1"}
	if err := r.Register(InstanceConfig{ID: "d1", Type: "discord", Enabled: true}, ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := r.Get("d1")
	if !ok || got != ch {
		t.Fatal("expected to retrieve the registered channel")
	}
}

func TestRegisterDuplicateIDFails(t *testing.T) {
	r := NewRegistry()
	ch := &fakeChannel{name: "d1"}
	_ = r.Register(InstanceConfig{ID: "d1", Type: "discord"}, ch)
	err := r.Register(InstanceConfig{ID: "d1", Type: "discord"}, ch)
	if err == nil {
		t.Fatal("expected AlreadyExists error")
	}
	ce, ok := err.(*ChannelError)
	if !ok || ce.Kind != ErrAlreadyExistsKind {
		t.Fatalf("expected AlreadyExists error, got %v", err)
	}
}

func TestCreateChannelUsesFactory(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("discord", func(cfg InstanceConfig) (Channel, error) {
		return &fakeChannel{name: cfg.ID}, nil
	})
	ch, err := r.CreateChannel(InstanceConfig{ID: "d2", Type: "discord"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Name() != "d2" {
		t.Fatalf("expected factory-built channel, got %v", ch.Name())
	}
}

func TestCreateChannelUnknownTypeFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateChannel(InstanceConfig{ID: "x", Type: "unregistered"})
	if err == nil {
		t.Fatal("expected NotFound error for unregistered factory")
	}
}

func TestUnregisterUnknownIDFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Unregister("missing"); err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestListByTypeFiltersAndSorts(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(InstanceConfig{ID: "b", Type: "discord"}, &fakeChannel{name: "b"})
	_ = r.Register(InstanceConfig{ID: "a", Type: "discord"}, &fakeChannel{name: "a"})
	_ = r.Register(InstanceConfig{ID: "c", Type: "telegram"}, &fakeChannel{name: "c"})

	got := r.ListByType("discord")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected sorted [a b], got %v", got)
	}
}

func TestConnectAllStartsEveryChannel(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(InstanceConfig{ID: "a"}, &fakeChannel{name: "a"})
	_ = r.Register(InstanceConfig{ID: "b"}, &fakeChannel{name: "b"})

	results := r.ConnectAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 connect results, got %d", len(results))
	}
	stats := r.Stats()
	if stats.Connected != 2 {
		t.Fatalf("expected both channels connected, got %d", stats.Connected)
	}
}

func TestStatsCountsEnabledAndConnected(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(InstanceConfig{ID: "a", Enabled: true}, &fakeChannel{name: "a", running: true})
	_ = r.Register(InstanceConfig{ID: "b", Enabled: false}, &fakeChannel{name: "b", running: false})

	stats := r.Stats()
	if stats.Total != 2 || stats.Enabled != 1 || stats.Connected != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
