package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/filer/id"
	"github.com/xraph/filer/ledger"
)

// maxMergeAttempts bounds the compare-and-swap loop in Upsert.
const maxMergeAttempts = 8

// Upsert merges evt into the stored document. The merge runs client side
// with ledger.Merge and is committed with a revision check, retrying when
// another writer got there first.
func (s *Store) Upsert(ctx context.Context, evt *ledger.Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	col := s.mdb.Collection(colEvents)
	key := evt.ID.String()
	insertConflict := false

	for range maxMergeAttempts {
		var cur eventModel

		err := col.FindOne(ctx, bson.M{"_id": key}).Decode(&cur)
		if isNoDocuments(err) {
			if insertConflict {
				// The insert conflicted on something other than _id.
				return fmt.Errorf("%w: protocol %s already recorded", ledger.ErrInvalidEvent, evt.Protocol)
			}

			m := toEventModel(ledger.Merge(nil, evt))
			m.Revision = 1

			if _, err := col.InsertOne(ctx, m); err != nil {
				if mongod.IsDuplicateKeyError(err) {
					insertConflict = true
					continue
				}

				return fmt.Errorf("filer/mongo: insert event: %w", err)
			}

			return nil
		}

		if err != nil {
			return fmt.Errorf("filer/mongo: load event: %w", err)
		}

		existing, err := fromEventModel(&cur)
		if err != nil {
			return err
		}

		m := toEventModel(ledger.Merge(existing, evt))
		m.Revision = cur.Revision + 1

		res, err := col.ReplaceOne(ctx, bson.M{"_id": key, "revision": cur.Revision}, m)
		if err != nil {
			if mongod.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: protocol %s already recorded", ledger.ErrInvalidEvent, m.Protocol)
			}

			return fmt.Errorf("filer/mongo: replace event: %w", err)
		}

		if res.MatchedCount == 1 {
			return nil
		}
	}

	return fmt.Errorf("filer/mongo: upsert %s: too many concurrent writers", key)
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*ledger.Event, error) {
	var m eventModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": evtID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrEventNotFound
		}

		return nil, fmt.Errorf("filer/mongo: get event: %w", err)
	}

	return fromEventModel(&m)
}

// GetByProtocol returns the event holding an authority protocol.
func (s *Store) GetByProtocol(ctx context.Context, protocol string) (*ledger.Event, error) {
	if protocol == "" {
		return nil, ledger.ErrEventNotFound
	}

	var m eventModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"protocol": protocol}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrEventNotFound
		}

		return nil, fmt.Errorf("filer/mongo: get event by protocol: %w", err)
	}

	return fromEventModel(&m)
}

// ListEvents returns events newest first, optionally filtered by status or type.
func (s *Store) ListEvents(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Event, error) {
	var models []eventModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	if opts.Type != "" {
		filter["event_type"] = string(opts.Type)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("filer/mongo: list events: %w", err)
	}

	result := make([]*ledger.Event, 0, len(models))

	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, evt)
	}

	return result, nil
}

// CountByStatus returns the number of events in each lifecycle state.
func (s *Store) CountByStatus(ctx context.Context) (map[ledger.Status]int64, error) {
	counts := make(map[ledger.Status]int64, len(ledger.Statuses))

	for _, st := range ledger.Statuses {
		n, err := s.mdb.NewFind((*eventModel)(nil)).
			Filter(bson.M{"status": string(st)}).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("filer/mongo: count %s: %w", st, err)
		}

		counts[st] = n
	}

	return counts, nil
}
