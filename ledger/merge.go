package ledger

import "time"

// Merge applies patch on top of existing and returns the result. Neither
// argument is modified.
//
// Every field is write-once: a value already recorded is kept and an empty
// patch field never erases anything. Status only follows lifecycle edges, so
// a stale sent patch cannot regress a processed event. A protocol is never
// attached to an event that already carries an error detail, and vice versa.
func Merge(existing, patch *Event) *Event {
	if existing == nil {
		out := *patch
		if out.Status == "" {
			out.Status = StatusPending
		}
		return &out
	}

	out := *existing

	if out.Type == "" {
		out.Type = patch.Type
	}
	if out.Subject == "" {
		out.Subject = patch.Subject
	}
	if out.PayloadVersion == "" {
		out.PayloadVersion = patch.PayloadVersion
	}
	if len(out.Payload) == 0 {
		out.Payload = patch.Payload
	}
	if out.Digest == "" {
		out.Digest = patch.Digest
	}
	if out.SubmittedAt == nil {
		out.SubmittedAt = patch.SubmittedAt
	}
	if out.ProcessedAt == nil {
		out.ProcessedAt = patch.ProcessedAt
	}
	if out.StatusDetail == "" {
		out.StatusDetail = patch.StatusDetail
	}

	if CanTransition(existing.Status, patch.Status) {
		out.Status = patch.Status
	}
	if out.Status == "" {
		out.Status = StatusPending
	}

	if existing.Protocol == "" && existing.ErrorDetail == "" {
		if out.Status != StatusPending {
			out.Protocol = patch.Protocol
		}
		if patch.Protocol == "" {
			out.ErrorDetail = patch.ErrorDetail
		}
	}

	if out.CreatedAt.IsZero() {
		out.CreatedAt = patch.CreatedAt
	}
	out.UpdatedAt = later(existing.UpdatedAt, patch.UpdatedAt)

	return &out
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
