// Package audit records who did what to which entity. Recording is strictly
// best-effort: events are handed to a background worker over a buffered
// channel and sink failures are logged, never propagated to the operation
// that raised them.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/meta"
)

// Event is one audit record.
type Event struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	// Module is the subsystem that acted, e.g. "journal" or "mapping".
	Module   string
	Action   string
	EntityID uuid.UUID
	Summary  string
	Metadata meta.Metadata
	Actor    string
	At       time.Time
}

// New builds an event stamped with a fresh id and the current time.
func New(tenantID uuid.UUID, module, action string, entityID uuid.UUID, summary, actor string, md meta.Metadata) Event {
	return Event{
		ID:       uuid.New(),
		TenantID: tenantID,
		Module:   module,
		Action:   action,
		EntityID: entityID,
		Summary:  summary,
		Metadata: md.Clone(),
		Actor:    actor,
		At:       time.Now().UTC(),
	}
}

// Sink persists audit events.
type Sink interface {
	SaveAuditEvent(ctx context.Context, e Event) error
}

// Recorder is the narrow interface services depend on. Log must never block
// and never fail.
type Recorder interface {
	Log(e Event)
}

// Discard is a Recorder that drops everything; useful in tests.
type Discard struct{}

func (Discard) Log(Event) {}
