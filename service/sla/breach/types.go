package breach

import (
	"errors"
	"fmt"
	"time"
)

// Severity classifies how badly an execution missed its SLA.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	}
	return 0
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// TopicBreach is the event topic announcing a newly recorded breach.
const TopicBreach = "sla.breach"

var (
	ErrNotFound = errors.New("breach: not found")

	// ErrAlreadyAcknowledged is a soft failure; callers may treat it as
	// success.
	ErrAlreadyAcknowledged = errors.New("breach: already acknowledged")
)

// Breach records one SLA violation for one workflow execution. At most one
// record exists per (SLA definition, execution) pair; its ID is the
// deterministic composite key.
type Breach struct {
	ID          string `json:"id"`
	SLAID       string `json:"slaId"`
	ExecutionID string `json:"executionId"`

	Severity       Severity      `json:"severity"`
	ActualDuration time.Duration `json:"actualDuration"`
	TargetDuration time.Duration `json:"targetDuration"`
	// Margin is actual minus target; never negative for a recorded breach.
	Margin time.Duration `json:"margin"`

	AlertSent       bool       `json:"alertSent"`
	AlertSentAt     *time.Time `json:"alertSentAt,omitempty"`
	AlertRecipients []string   `json:"alertRecipients,omitempty"`

	Acknowledged    bool       `json:"acknowledged"`
	AcknowledgedAt  *time.Time `json:"acknowledgedAt,omitempty"`
	AcknowledgedBy  string     `json:"acknowledgedBy,omitempty"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ID returns the composite breach identifier for an (SLA, execution) pair.
func ID(slaID, executionID string) string {
	return fmt.Sprintf("%s:%s", slaID, executionID)
}
