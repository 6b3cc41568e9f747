package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the filer store (SQLite).
var Migrations = migrate.NewGroup("filer")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_filer_events",
			Version: "20251001000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS filer_events (
    id              TEXT PRIMARY KEY,
    event_type      TEXT NOT NULL DEFAULT '',
    subject         TEXT NOT NULL DEFAULT '',
    payload_version TEXT NOT NULL DEFAULT '',
    payload         TEXT NOT NULL DEFAULT '',
    digest          TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'pending',
    protocol        TEXT NOT NULL DEFAULT '',
    submitted_at    TEXT,
    processed_at    TEXT,
    error_detail    TEXT NOT NULL DEFAULT '',
    status_detail   TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_filer_events_protocol ON filer_events (protocol) WHERE protocol != '';
CREATE INDEX IF NOT EXISTS idx_filer_events_status ON filer_events (status, created_at);
CREATE INDEX IF NOT EXISTS idx_filer_events_type ON filer_events (event_type);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS filer_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_filer_credentials",
			Version: "20251001000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS filer_credentials (
    id            TEXT PRIMARY KEY,
    kind          TEXT NOT NULL UNIQUE,
    subject       TEXT NOT NULL DEFAULT '',
    issuer        TEXT NOT NULL DEFAULT '',
    serial_number TEXT NOT NULL DEFAULT '',
    valid_from    TEXT NOT NULL,
    valid_to      TEXT NOT NULL,
    signing_key   TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS filer_credentials`)
				return err
			},
		},
	)
}
