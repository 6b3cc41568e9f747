// Package memory provides an in-memory Store implementation for tests and
// single-process simulations. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/ledger"
	filerstore "github.com/xraph/filer/store"
)

// compile-time interface check.
var _ filerstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	events     map[string]*ledger.Event                   // keyed by ID string
	byProtocol map[string]string                          // protocol -> event ID
	creds      map[credential.Kind]*credential.Credential // one record per kind

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		events:     make(map[string]*ledger.Event),
		byProtocol: make(map[string]string),
		creds:      make(map[credential.Kind]*credential.Credential),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return filerstore.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// ledger.Store
// ──────────────────────────────────────────────────

// Upsert merges evt into the stored record under the write lock.
func (s *Store) Upsert(_ context.Context, evt *ledger.Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return filerstore.ErrStoreClosed
	}

	key := evt.ID.String()
	merged := ledger.Merge(s.events[key], evt)

	if merged.Protocol != "" {
		if owner, ok := s.byProtocol[merged.Protocol]; ok && owner != key {
			return fmt.Errorf("%w: protocol %s already recorded", ledger.ErrInvalidEvent, merged.Protocol)
		}
		s.byProtocol[merged.Protocol] = key
	}
	s.events[key] = merged
	return nil
}

// GetEvent returns a copy of the event with evtID.
func (s *Store) GetEvent(_ context.Context, evtID id.ID) (*ledger.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, filerstore.ErrStoreClosed
	}

	evt, ok := s.events[evtID.String()]
	if !ok {
		return nil, ledger.ErrEventNotFound
	}
	cp := *evt
	return &cp, nil
}

// GetByProtocol returns a copy of the event holding protocol.
func (s *Store) GetByProtocol(_ context.Context, protocol string) (*ledger.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, filerstore.ErrStoreClosed
	}

	key, ok := s.byProtocol[protocol]
	if !ok {
		return nil, ledger.ErrEventNotFound
	}
	cp := *s.events[key]
	return &cp, nil
}

// ListEvents returns events newest first, optionally filtered.
func (s *Store) ListEvents(_ context.Context, opts ledger.ListOpts) ([]*ledger.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, filerstore.ErrStoreClosed
	}

	result := make([]*ledger.Event, 0, len(s.events))
	for _, evt := range s.events {
		if opts.Status != "" && evt.Status != opts.Status {
			continue
		}
		if opts.Type != "" && evt.Type != opts.Type {
			continue
		}
		cp := *evt
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() > result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// CountByStatus returns the number of events in each state.
func (s *Store) CountByStatus(_ context.Context) (map[ledger.Status]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, filerstore.ErrStoreClosed
	}

	counts := make(map[ledger.Status]int64, len(ledger.Statuses))
	for _, st := range ledger.Statuses {
		counts[st] = 0
	}
	for _, evt := range s.events {
		counts[evt.Status]++
	}
	return counts, nil
}

// ──────────────────────────────────────────────────
// credential.Store
// ──────────────────────────────────────────────────

// PutCredential stores c, replacing any record of the same kind.
func (s *Store) PutCredential(_ context.Context, c *credential.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return filerstore.ErrStoreClosed
	}

	cp := *c
	if existing, ok := s.creds[c.Kind]; ok && !existing.CreatedAt.IsZero() {
		cp.CreatedAt = existing.CreatedAt
	}
	s.creds[c.Kind] = &cp
	return nil
}

// GetCredential returns a copy of the record for kind.
func (s *Store) GetCredential(_ context.Context, kind credential.Kind) (*credential.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, filerstore.ErrStoreClosed
	}

	c, ok := s.creds[kind]
	if !ok {
		return nil, credential.ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

// ListCredentials returns every stored credential ordered by kind.
func (s *Store) ListCredentials(_ context.Context) ([]*credential.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, filerstore.ErrStoreClosed
	}

	result := make([]*credential.Credential, 0, len(s.creds))
	for _, c := range s.creds {
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Kind < result[j].Kind })
	return result, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
