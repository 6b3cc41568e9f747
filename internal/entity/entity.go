// Package entity holds the timestamp pair embedded by persisted filer records.
package entity

import "time"

// Entity carries record bookkeeping timestamps. CreatedAt is set when a record
// first reaches a store and is never rewritten; UpdatedAt moves on every merge.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an Entity with both timestamps set to the current UTC time.
func New() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch moves UpdatedAt to now, initialising CreatedAt when it is still zero.
func (e *Entity) Touch(now time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}
