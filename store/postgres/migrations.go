package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the filer store (PostgreSQL).
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
    status          TEXT NOT NULL DEFAULT 'pending'
                    CHECK (status IN ('pending', 'sent', 'processed', 'error')),
    protocol        TEXT NOT NULL DEFAULT '',
    submitted_at    TIMESTAMPTZ,
    processed_at    TIMESTAMPTZ,
    error_detail    TEXT NOT NULL DEFAULT '',
    status_detail   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (protocol = '' OR error_detail = '')
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_filer_events_protocol ON filer_events (protocol) WHERE protocol <> '';
CREATE INDEX IF NOT EXISTS idx_filer_events_status ON filer_events (status, created_at DESC);
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
    valid_from    TIMESTAMPTZ NOT NULL,
    valid_to      TIMESTAMPTZ NOT NULL,
    signing_key   TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
