package approval

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestApprovalRequestPending(t *testing.T) {
	m := NewManager()
	req := m.Request("session1", "bash", json.RawMessage(`{"command":"rm -rf /tmp/test"}`), "Delete test files")
	if req.Status != StatusPending {
		t.Fatalf("Status = %v, want Pending", req.Status)
	}
}

func TestApprovalResponseApprove(t *testing.T) {
	m := NewManager()
	req := m.Request("session1", "bash", json.RawMessage(`{"command":"ls"}`), "List files")
	if err := m.Respond(req.ID, Approve()); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	updated := m.Get(req.ID)
	if updated == nil || updated.Status != StatusApproved {
		t.Fatalf("expected Approved, got %+v", updated)
	}
}

func TestAutoApprovePolicy(t *testing.T) {
	m := NewManager()
	m.SetPolicy(Policy{AutoApprove: []string{"read"}})
	req := m.Request("session1", "read", json.RawMessage(`{"path":"/tmp/test.txt"}`), "Read a file")
	if req.Status != StatusApproved {
		t.Fatalf("Status = %v, want Approved", req.Status)
	}
}

func TestAutoApproveBeforeAutoDeny(t *testing.T) {
	m := NewManager()
	m.SetPolicy(Policy{AutoApprove: []string{"bash"}, AutoDeny: []string{"bash"}})
	req := m.Request("session1", "bash", json.RawMessage(`{}`), "ambiguous")
	if req.Status != StatusApproved {
		t.Fatalf("approve should win when both match, got %v", req.Status)
	}
}

func TestAutoDenyPolicy(t *testing.T) {
	m := NewManager()
	m.SetPolicy(Policy{AutoDeny: []string{"delete_all"}})
	req := m.Request("session1", "delete_all", json.RawMessage(`{}`), "dangerous")
	if req.Status != StatusDenied {
		t.Fatalf("Status = %v, want Denied", req.Status)
	}
}

func TestMalformedPatternNeverMatches(t *testing.T) {
	m := NewManager()
	m.SetPolicy(Policy{AutoApprovePatterns: []Pattern{{ToolPattern: "("}}})
	req := m.Request("session1", "anything", json.RawMessage(`{}`), "desc")
	if req.Status != StatusPending {
		t.Fatalf("malformed regex must not match, got %v", req.Status)
	}
}

func TestRespondNotFound(t *testing.T) {
	m := NewManager()
	if err := m.Respond("nope", Approve()); err == nil {
		t.Fatal("expected ErrNotFound")
	}
}

func TestRespondTwiceFails(t *testing.T) {
	m := NewManager()
	req := m.Request("s1", "bash", json.RawMessage(`{}`), "d")
	if err := m.Respond(req.ID, Approve()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Respond(req.ID, Approve()); err == nil {
		t.Fatal("expected ErrNotPending on second respond")
	}
}

func TestWaitForResponseResolves(t *testing.T) {
	m := NewManager()
	req := m.Request("s1", "bash", json.RawMessage(`{}`), "d")
	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Respond(req.ID, Approve())
	}()
	resp, err := m.WaitForResponse(context.Background(), req.ID, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Approved {
		t.Fatal("expected approved response")
	}
}

func TestWaitForResponseTimesOut(t *testing.T) {
	m := NewManager()
	req := m.Request("s1", "bash", json.RawMessage(`{}`), "d")
	_, err := m.WaitForResponse(context.Background(), req.ID, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	updated := m.Get(req.ID)
	if updated.Status != StatusExpired {
		t.Fatalf("expected Expired after timeout, got %v", updated.Status)
	}
}

func TestCleanupExpired(t *testing.T) {
	m := NewManager().WithTimeout(time.Millisecond)
	req := m.Request("s1", "bash", json.RawMessage(`{}`), "d")
	time.Sleep(5 * time.Millisecond)
	m.CleanupExpired()
	updated := m.Get(req.ID)
	if updated.Status != StatusExpired {
		t.Fatalf("Status = %v, want Expired", updated.Status)
	}
}

func TestListPendingFiltersBySessionAndStatus(t *testing.T) {
	m := NewManager()
	m.Request("s1", "bash", json.RawMessage(`{}`), "d1")
	r2 := m.Request("s1", "ls", json.RawMessage(`{}`), "d2")
	m.Respond(r2.ID, Approve())
	m.Request("s2", "bash", json.RawMessage(`{}`), "d3")

	pending := m.ListPending("s1")
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request for s1, got %d", len(pending))
	}
}
