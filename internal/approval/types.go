// Package approval gates tool execution behind a pending/approved/denied
// workflow: policy-driven auto-approve/auto-deny, a single-flight pending
// table, and a broadcast bus callers can wait on for a response.
package approval

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an ApprovalRequest.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

// Request is one tool-call awaiting (or past) a decision.
type Request struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	ToolName    string          `json:"tool_name"`
	ToolArgs    json.RawMessage `json:"tool_args"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Response    *Response       `json:"response,omitempty"`
}

// Response is a decision on a Request.
type Response struct {
	Approved      bool            `json:"approved"`
	Reason        string          `json:"reason,omitempty"`
	Modifications json.RawMessage `json:"modifications,omitempty"`
	RespondedAt   time.Time       `json:"responded_at"`
}

// Approve builds an approval response.
func Approve() Response {
	return Response{Approved: true, RespondedAt: time.Now().UTC()}
}

// Deny builds a denial response with a reason.
func Deny(reason string) Response {
	return Response{Approved: false, Reason: reason, RespondedAt: time.Now().UTC()}
}

// WithModifications attaches modified tool args to an approval response.
func (r Response) WithModifications(mods json.RawMessage) Response {
	r.Modifications = mods
	return r
}

// EventKind names the variant of an Event.
type EventKind int

const (
	EventRequested EventKind = iota
	EventResponded
)

// Event is broadcast to subscribers whenever a request is created or
// resolved.
type Event struct {
	Kind     EventKind
	Request  Request // populated for EventRequested
	ID       string  // populated for EventResponded
	Approved bool    // populated for EventResponded
}

func newRequestID() string {
	return uuid.NewString()
}
