package sla

import (
	"errors"
	"fmt"
	"time"

	"github.com/viant/gatekeeper/service/sla/breach"
)

// ErrNotFound is returned when an SLA definition id is unknown.
var ErrNotFound = errors.New("sla: not found")

// Definition is a named duration contract attached to a workflow. The three
// thresholds are monotonically non-decreasing: target <= warning <= critical.
type Definition struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	TargetDuration    time.Duration `json:"targetDuration"`
	WarningThreshold  time.Duration `json:"warningThreshold"`
	CriticalThreshold time.Duration `json:"criticalThreshold"`

	// WindowHours bounds the trailing window the rolling counters cover.
	WindowHours int `json:"windowHours"`
	// TargetPercentage is the SLO goal, e.g. 99.0.
	TargetPercentage float64 `json:"targetPercentage"`

	// AlertRecipients is carried into breach alert events.
	AlertRecipients []string `json:"alertRecipients,omitempty"`
}

// Validate returns an error describing invalid settings or nil.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("sla definition id cannot be empty")
	}
	if d.TargetDuration <= 0 {
		return fmt.Errorf("sla %s: targetDuration must be > 0", d.ID)
	}
	if d.WarningThreshold < d.TargetDuration {
		return fmt.Errorf("sla %s: warningThreshold must be >= targetDuration", d.ID)
	}
	if d.CriticalThreshold < d.WarningThreshold {
		return fmt.Errorf("sla %s: criticalThreshold must be >= warningThreshold", d.ID)
	}
	if d.WindowHours <= 0 {
		return fmt.Errorf("sla %s: windowHours must be > 0", d.ID)
	}
	if d.TargetPercentage < 0 || d.TargetPercentage > 100 {
		return fmt.Errorf("sla %s: targetPercentage must be within [0, 100]", d.ID)
	}
	return nil
}

// Severity classifies an execution duration against the thresholds;
// ok is false when no breach applies. Critical takes precedence.
func (d *Definition) Severity(actual time.Duration) (severity breach.Severity, ok bool) {
	switch {
	case actual >= d.CriticalThreshold:
		return breach.SeverityCritical, true
	case actual >= d.WarningThreshold:
		return breach.SeverityWarning, true
	}
	return "", false
}

// Stats is a rolling-window snapshot of one definition's SLO standing.
type Stats struct {
	SLAID              string  `json:"slaId"`
	TotalExecutions    int     `json:"totalExecutions"`
	BreachedExecutions int     `json:"breachedExecutions"`
	// CurrentPercentage is 100*(total-breached)/total, defined as 100 when
	// total is zero.
	CurrentPercentage float64 `json:"currentPercentage"`
	// Healthy reports whether the percentage meets the SLO target.
	Healthy bool `json:"healthy"`
}
