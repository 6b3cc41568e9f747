// Package ledger is the durable record of every filing event's lifecycle.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/entity"
)

var (
	// ErrEventNotFound is returned when no event matches an id or protocol.
	ErrEventNotFound = errors.New("filer: event not found")

	// ErrInvalidEvent is returned when an upsert would break a lifecycle invariant.
	ErrInvalidEvent = errors.New("filer: invalid event")
)

// Event is a filing event: the unit of work tracked by the ledger.
type Event struct {
	entity.Entity

	// ID is the unique TypeID for this event, assigned at creation.
	ID id.ID `json:"id"`

	// Type selects the payload template and schema version.
	Type catalog.Type `json:"event_type"`

	// Subject is the filer identifier stamped on the payload.
	Subject string `json:"subject,omitempty"`

	// PayloadVersion is the schema version the payload declares.
	PayloadVersion string `json:"payload_version"`

	// Payload is the rendered canonical document.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Digest is the hex SHA-256 of Payload.
	Digest string `json:"digest,omitempty"`

	// Status is the lifecycle state. It only moves forward.
	Status Status `json:"status"`

	// Protocol is the authority receipt, set on the transition to sent.
	Protocol string `json:"protocol,omitempty"`

	// SubmittedAt is when the submission attempt was made.
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	// ProcessedAt is when a terminal state was reached.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// ErrorDetail is the failure cause of an attempt that never produced a
	// protocol (transport error or rejection at submission).
	ErrorDetail string `json:"error_detail,omitempty"`

	// StatusDetail is the authority's message for a status reached after
	// the event was sent.
	StatusDetail string `json:"status_detail,omitempty"`
}

// Validate checks the invariants a single record must satisfy on its own.
func (e *Event) Validate() error {
	if e.ID.IsNil() {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.Status != "" && !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, e.Status)
	}
	if e.Protocol != "" && (e.Status == StatusPending || e.Status == "") {
		return fmt.Errorf("%w: protocol set on a pending event", ErrInvalidEvent)
	}
	if e.Protocol != "" && e.ErrorDetail != "" {
		return fmt.Errorf("%w: protocol and error detail are exclusive", ErrInvalidEvent)
	}
	return nil
}

// ListOpts configures filtering and pagination for event listing.
type ListOpts struct {
	Status Status
	Type   catalog.Type
	Offset int
	Limit  int
}
