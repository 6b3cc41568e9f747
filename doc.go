// Package filer prepares, submits and tracks government e-filing events.
//
// Filer is a library, not a service. It renders typed business events into
// schema-versioned payloads, checks that a valid certificate and power of
// attorney are configured, submits through one backend chosen at
// construction (the real authority or a local simulation), and keeps a
// durable ledger of every event's lifecycle:
//
//	pending ──► sent ──► processed
//	   │          │
//	   └──────────┴────► error
//
// Key features:
//   - Fixed, versioned event type catalog with JSON Schema validation
//   - Canonical (RFC 8785) payload encoding with a SHA-256 digest
//   - Credential gate evaluated on every submission, never cached
//   - At-most-once submission: one remote call per Submit, no retries
//   - Ledger upserts are field-level merges with forward-only status
//   - Idempotent status polling for terminal events
//   - Composable store pattern with multiple backends (Postgres, SQLite, MongoDB, Redis, Memory)
//
// Quick start:
//
//	f, err := filer.New(
//	    filer.WithStore(memory.New()),
//	    filer.WithSubject("12345678901"),
//	    filer.WithBackendMode(submission.ModeSimulated),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	evt, err := f.NewEvent(catalog.TypeAdmission, payload.Data{
//	    "worker_tax_id":  "98765432100",
//	    "worker_name":    "Maria da Silva",
//	    "birth_date":     "1990-04-12",
//	    "admission_date": "2025-03-01",
//	    "category":       "domestic",
//	    "salary":         1518.00,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	evt, err = f.Submit(ctx, evt)
package filer
