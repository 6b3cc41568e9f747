package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/sqlmerge"
	"github.com/xraph/filer/ledger"
	filerstore "github.com/xraph/filer/store"
)

// compile-time interface check
var _ filerstore.Store = (*Store)(nil)

const eventsTable = "filer_events"

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("%w: postgres executor: %w", filerstore.ErrMigrationFailed, err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", filerstore.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Ledger Store ====================

// Upsert inserts evt or merges it into the stored row in one statement.
func (s *Store) Upsert(ctx context.Context, evt *ledger.Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	q := s.pg.NewInsert(toEventModel(evt)).OnConflict("(id) DO UPDATE")
	for _, set := range sqlmerge.EventAssignments(eventsTable, "GREATEST") {
		q = q.Set(set)
	}
	if _, err := q.Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: protocol %s already recorded", ledger.ErrInvalidEvent, evt.Protocol)
		}
		return fmt.Errorf("filer/postgres: upsert event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*ledger.Event, error) {
	m := new(eventModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", evtID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledger.ErrEventNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) GetByProtocol(ctx context.Context, protocol string) (*ledger.Event, error) {
	if protocol == "" {
		return nil, ledger.ErrEventNotFound
	}
	m := new(eventModel)
	err := s.pg.NewSelect(m).
		Where("protocol = ?", protocol).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledger.ErrEventNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) ListEvents(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Event, error) {
	var models []eventModel
	q := s.pg.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Type != "" {
		q = q.Where("event_type = ?", string(opts.Type))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*ledger.Event, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = evt
	}
	return result, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[ledger.Status]int64, error) {
	counts := make(map[ledger.Status]int64, len(ledger.Statuses))
	for _, st := range ledger.Statuses {
		n, err := s.pg.NewSelect((*eventModel)(nil)).
			Where("status = ?", string(st)).
			Count(ctx)
		if err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, nil
}

// ==================== Credential Store ====================

func (s *Store) PutCredential(ctx context.Context, c *credential.Credential) error {
	m := toCredentialModel(c)
	_, err := s.pg.NewInsert(m).
		OnConflict("(kind) DO UPDATE").
		Set("id = EXCLUDED.id").
		Set("subject = EXCLUDED.subject").
		Set("issuer = EXCLUDED.issuer").
		Set("serial_number = EXCLUDED.serial_number").
		Set("valid_from = EXCLUDED.valid_from").
		Set("valid_to = EXCLUDED.valid_to").
		Set("signing_key = EXCLUDED.signing_key").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetCredential(ctx context.Context, kind credential.Kind) (*credential.Credential, error) {
	m := new(credentialModel)
	err := s.pg.NewSelect(m).
		Where("kind = ?", string(kind)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, credential.ErrCredentialNotFound
		}
		return nil, err
	}
	return fromCredentialModel(m)
}

func (s *Store) ListCredentials(ctx context.Context) ([]*credential.Credential, error) {
	var models []credentialModel
	if err := s.pg.NewSelect(&models).OrderExpr("kind ASC").Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*credential.Credential, len(models))
	for i := range models {
		c, err := fromCredentialModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports a unique index conflict other than the primary key.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}
