package channels

import (
	"context"
	"testing"
	"time"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

type flakyChannel struct {
	fakeChannel
	failTimes int
	failErr   error
	attempts  int
}

func (f *flakyChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	f.attempts++
	if f.attempts <= f.failTimes {
		return f.failErr
	}
	return nil
}

func TestEnqueueRejectsWhenQueueFull(t *testing.T) {
	cfg := DefaultDeliveryConfig()
	cfg.MaxQueueSize = 1
	q := NewDeliveryQueue(cfg)

	if _, err := q.Enqueue("c1", bus.OutboundMessage{}); err != nil {
		t.Fatalf("unexpected error on first enqueue: %v", err)
	}
	_, err := q.Enqueue("c1", bus.OutboundMessage{})
	if err == nil {
		t.Fatal("expected Delivery error when queue is full")
	}
	ce, ok := err.(*ChannelError)
	if !ok || ce.Kind != ErrDeliveryKind {
		t.Fatalf("expected Delivery error, got %v", err)
	}
}

func TestProcessDeliversSuccessfully(t *testing.T) {
	q := NewDeliveryQueue(DefaultDeliveryConfig())
	ch := &fakeChannel{name: "c1"}
	q.RegisterChannel("c1", ch)

	id, err := q.Enqueue("c1", bus.OutboundMessage{Content: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := q.Process(context.Background())
	if len(results) != 1 || !results[0].Success || results[0].ID != id {
		t.Fatalf("expected a single successful result, got %+v", results)
	}

	status, ok := q.GetStatus(id)
	if !ok || status.Status != DeliveryDelivered {
		t.Fatalf("expected delivered status, got %+v", status)
	}
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	cfg := DefaultDeliveryConfig()
	cfg.InitialRetryDelay = time.Millisecond
	cfg.MaxRetryDelay = 5 * time.Millisecond
	q := NewDeliveryQueue(cfg)

	ch := &flakyChannel{fakeChannel: fakeChannel{name: "c1"}, failTimes: 2, failErr: NewTimeoutError()}
	q.RegisterChannel("c1", ch)

	id, err := q.Enqueue("c1", bus.OutboundMessage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var last DeliveryResult
	for attempt := 0; attempt < 3; attempt++ {
		results := q.Process(context.Background())
		for _, r := range results {
			if r.ID == id {
				last = r
			}
		}
		if last.Success {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !last.Success || last.Attempts != 3 {
		t.Fatalf("expected success on 3rd attempt, got %+v", last)
	}

	status, ok := q.GetStatus(id)
	if !ok || status.Status != DeliveryDelivered {
		t.Fatalf("expected delivered status, got %+v", status)
	}
}

func TestProcessDropsAfterMaxRetries(t *testing.T) {
	cfg := DefaultDeliveryConfig()
	cfg.MaxRetries = 2
	cfg.InitialRetryDelay = time.Millisecond
	cfg.MaxRetryDelay = 2 * time.Millisecond
	q := NewDeliveryQueue(cfg)

	ch := &flakyChannel{fakeChannel: fakeChannel{name: "c1"}, failTimes: 100, failErr: NewTimeoutError()}
	q.RegisterChannel("c1", ch)

	id, _ := q.Enqueue("c1", bus.OutboundMessage{})

	var last DeliveryResult
	for attempt := 0; attempt < 5; attempt++ {
		results := q.Process(context.Background())
		for _, r := range results {
			if r.ID == id {
				last = r
			}
		}
		time.Sleep(5 * time.Millisecond)
	}

	if last.Attempts > cfg.MaxRetries+1 {
		t.Fatalf("attempts exceeded max_retries+1: %+v", last)
	}
	status, ok := q.GetStatus(id)
	if !ok || status.Status != DeliveryDropped {
		t.Fatalf("expected dropped status after exhausting retries, got %+v", status)
	}
}

func TestProcessDropsNonRetriableErrorImmediately(t *testing.T) {
	q := NewDeliveryQueue(DefaultDeliveryConfig())
	ch := &flakyChannel{fakeChannel: fakeChannel{name: "c1"}, failTimes: 100, failErr: NewAlreadyExistsError("dup")}
	q.RegisterChannel("c1", ch)

	id, _ := q.Enqueue("c1", bus.OutboundMessage{})
	results := q.Process(context.Background())
	if len(results) != 1 || results[0].Success || results[0].Attempts != 1 {
		t.Fatalf("expected a single failed attempt, got %+v", results)
	}

	status, ok := q.GetStatus(id)
	if !ok || status.Status != DeliveryDropped {
		t.Fatalf("expected immediate drop on non-retriable error, got %+v", status)
	}
}

func TestProcessExpiresMessagesPastTTL(t *testing.T) {
	cfg := DefaultDeliveryConfig()
	cfg.MessageTTL = 10 * time.Millisecond
	q := NewDeliveryQueue(cfg)
	ch := &fakeChannel{name: "c1"}
	q.RegisterChannel("c1", ch)

	id, _ := q.Enqueue("c1", bus.OutboundMessage{})
	time.Sleep(20 * time.Millisecond)

	results := q.Process(context.Background())
	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected a single failed (expired) result, got %+v", results)
	}
	if results[0].Err == nil || results[0].Err.Error() != "delivery failed: Message TTL expired" {
		t.Fatalf("expected TTL-expired delivery error, got %v", results[0].Err)
	}
	if ch.sentCount != 0 {
		t.Fatal("expired message must never be sent")
	}

	status, ok := q.GetStatus(id)
	if !ok || status.Status != DeliveryDropped {
		t.Fatalf("expected dropped status after TTL expiry, got %+v", status)
	}
}

func TestCancelPendingDelivery(t *testing.T) {
	q := NewDeliveryQueue(DefaultDeliveryConfig())
	id, _ := q.Enqueue("c1", bus.OutboundMessage{})
	if err := q.Cancel(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status, ok := q.GetStatus(id)
	if !ok || status.Status != DeliveryCancelled {
		t.Fatalf("expected cancelled status, got %+v", status)
	}

	results := q.Process(context.Background())
	for _, r := range results {
		if r.ID == id {
			t.Fatal("a cancelled delivery must not be processed")
		}
	}
}

func TestCancelUnknownIDFails(t *testing.T) {
	q := NewDeliveryQueue(DefaultDeliveryConfig())
	if err := q.Cancel("nope"); err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestStatsReflectsQueueAndTerminalCounts(t *testing.T) {
	q := NewDeliveryQueue(DefaultDeliveryConfig())
	ch := &fakeChannel{name: "c1"}
	q.RegisterChannel("c1", ch)

	delivered, _ := q.Enqueue("c1", bus.OutboundMessage{})
	q.Process(context.Background())
	_ = delivered

	pendingID, _ := q.Enqueue("c1", bus.OutboundMessage{})
	_ = pendingID

	stats := q.Stats()
	if stats.Delivered != 1 {
		t.Fatalf("expected 1 delivered, got %+v", stats)
	}
	if stats.Pending != 1 {
		t.Fatalf("expected 1 still pending, got %+v", stats)
	}
}
