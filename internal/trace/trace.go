// Package trace defines the structured, versioned record the rule engine
// leaves on every entry it generates, so downstream consumers get a stable
// schema instead of a free-form blob.
package trace

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Version is the current trace schema version.
const Version = 1

// Trace records how an engine-generated entry came to be: the event evaluated,
// the rules that produced lines (in application order), warning codes raised
// during validation, and any structural adjustment applied after base-rule
// evaluation.
type Trace struct {
	Version    int         `json:"version"`
	EventType  string      `json:"event_type"`
	RuleIDs    []uuid.UUID `json:"rule_ids"`
	Warnings   []string    `json:"warnings,omitempty"`
	Adjustment string      `json:"adjustment,omitempty"`
}

// New returns an empty trace for the given event type at the current version.
func New(eventType string) Trace {
	return Trace{Version: Version, EventType: eventType}
}

// Marshal encodes the trace for storage. Field order is fixed by the struct,
// so equal traces encode to equal bytes.
func (t Trace) Marshal() ([]byte, error) { return json.Marshal(t) }

// Unmarshal decodes a stored trace.
func Unmarshal(b []byte) (Trace, error) {
	var t Trace
	if len(b) == 0 {
		return t, nil
	}
	err := json.Unmarshal(b, &t)
	return t, err
}
