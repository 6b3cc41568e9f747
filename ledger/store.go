package ledger

import (
	"context"

	"github.com/xraph/filer/id"
)

// Store defines the persistence contract for the event ledger.
// Implementations must apply Upsert atomically per event id with the
// semantics of Merge.
type Store interface {
	// Upsert inserts evt or merges it into the stored record with the same id.
	Upsert(ctx context.Context, evt *Event) error

	// GetEvent returns an event by ID.
	GetEvent(ctx context.Context, evtID id.ID) (*Event, error)

	// GetByProtocol returns the event holding an authority receipt.
	GetByProtocol(ctx context.Context, protocol string) (*Event, error)

	// ListEvents returns events newest first, optionally filtered.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)

	// CountByStatus returns the number of events in each state.
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
