package event

import (
	"time"

	"github.com/viant/gatekeeper/internal/clock"
)

// MetadataTimestamp is the metadata key carrying the RFC-3339 publication time.
const MetadataTimestamp = "timestamp"

// Event is the envelope carried by the bus. Data holds the event payload,
// Metadata transport-level annotations; Metadata always carries a timestamp,
// injected at construction when absent.
type Event struct {
	Type     string                 `json:"type"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent creates an event of the supplied type.
func NewEvent(eventType string, data map[string]interface{}) *Event {
	ret := &Event{
		Type:     eventType,
		Data:     data,
		Metadata: make(map[string]interface{}),
	}
	ret.ensureTimestamp()
	return ret
}

func (e *Event) ensureTimestamp() {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	if _, ok := e.Metadata[MetadataTimestamp]; !ok {
		e.Metadata[MetadataTimestamp] = clock.Now().Format(time.RFC3339Nano)
	}
}
