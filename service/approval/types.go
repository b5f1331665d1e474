package approval

import (
	"time"
)

// Status represents the lifecycle state of an approval.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusEscalated Status = "escalated"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied || s == StatusExpired
}

// Resolvable reports whether a human decision is still accepted.
func (s Status) Resolvable() bool {
	return s == StatusPending || s == StatusEscalated
}

// Decision is a human resolution of an approval.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDenied   Decision = "denied"
)

// Valid reports whether the decision is one of the accepted values.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionDenied
}

// Status maps the decision onto the resulting approval status.
func (d Decision) Status() Status {
	if d == DecisionApproved {
		return StatusApproved
	}
	return StatusDenied
}

// Standard event topics published by the registry.
const (
	TopicCreated   = "approval.created"
	TopicResolved  = "approval.resolved"
	TopicEscalated = "approval.escalated"
	TopicExpired   = "approval.expired"
)

// Approval represents one pending human decision gating a workflow action.
// WorkflowRunID and ActionRunID are opaque external identifiers; the engine
// never dereferences them.
type Approval struct {
	ID            string `json:"id"`
	WorkflowRunID string `json:"workflowRunId"`
	ActionRunID   string `json:"actionRunId"`

	Status       Status `json:"status"`
	ApproverRole string `json:"approverRole"`
	// EscalateRole gains authority after escalation; empty means no
	// escalation path.
	EscalateRole string `json:"escalateRole,omitempty"`

	Timeout time.Duration `json:"timeout"`
	// EscalationTimeout is the secondary deadline applied after escalation.
	EscalationTimeout time.Duration `json:"escalationTimeout,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	EscalatedAt *time.Time `json:"escalatedAt,omitempty"`
	// ResolvedAt is set only by a terminal human decision; it stays nil for
	// auto-transitioned records.
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	// UpdatedAt tracks the last transition; retention cleanup ages records
	// by this field so auto-expired approvals age out too.
	UpdatedAt time.Time `json:"updatedAt"`

	// ActorID identifies whoever approved/denied; empty if auto-transitioned.
	ActorID string `json:"actorId,omitempty"`

	// Metadata is caller-supplied context, never interpreted by the engine.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RequiredRole returns the role currently allowed to resolve the approval.
func (a *Approval) RequiredRole() string {
	if a.Status == StatusEscalated {
		return a.EscalateRole
	}
	return a.ApproverRole
}

// Due reports whether the current deadline has passed at the supplied time
// and the approval is still awaiting action.
func (a *Approval) Due(now time.Time) bool {
	return a.Status.Resolvable() && !now.Before(a.ExpiresAt)
}

// Request captures the caller input for creating an approval.
type Request struct {
	WorkflowRunID string                 `json:"workflowRunId"`
	ActionRunID   string                 `json:"actionRunId"`
	ApproverRole  string                 `json:"approverRole"`
	EscalateRole  string                 `json:"escalateRole,omitempty"`
	Timeout       time.Duration          `json:"timeout"`
	// EscalationTimeout overrides the computed secondary deadline; zero
	// means EscalationFactor x Timeout.
	EscalationTimeout time.Duration          `json:"escalationTimeout,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}
