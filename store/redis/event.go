package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/entity"
	"github.com/xraph/filer/ledger"
)

// maxMergeAttempts bounds the optimistic transaction retries in Upsert.
const maxMergeAttempts = 8

// eventModel is the JSON representation stored in Redis.
type eventModel struct {
	ID             string          `json:"id"`
	EventType      string          `json:"event_type"`
	Subject        string          `json:"subject,omitempty"`
	PayloadVersion string          `json:"payload_version"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Digest         string          `json:"digest,omitempty"`
	Status         string          `json:"status"`
	Protocol       string          `json:"protocol,omitempty"`
	SubmittedAt    *time.Time      `json:"submitted_at,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	ErrorDetail    string          `json:"error_detail,omitempty"`
	StatusDetail   string          `json:"status_detail,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toEventModel(evt *ledger.Event) *eventModel {
	return &eventModel{
		ID:             evt.ID.String(),
		EventType:      string(evt.Type),
		Subject:        evt.Subject,
		PayloadVersion: evt.PayloadVersion,
		Payload:        evt.Payload,
		Digest:         evt.Digest,
		Status:         string(evt.Status),
		Protocol:       evt.Protocol,
		SubmittedAt:    evt.SubmittedAt,
		ProcessedAt:    evt.ProcessedAt,
		ErrorDetail:    evt.ErrorDetail,
		StatusDetail:   evt.StatusDetail,
		CreatedAt:      evt.CreatedAt,
		UpdatedAt:      evt.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) (*ledger.Event, error) {
	evtID, err := id.ParseFilingEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}
	return &ledger.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             evtID,
		Type:           catalog.Type(m.EventType),
		Subject:        m.Subject,
		PayloadVersion: m.PayloadVersion,
		Payload:        m.Payload,
		Digest:         m.Digest,
		Status:         ledger.Status(m.Status),
		Protocol:       m.Protocol,
		SubmittedAt:    m.SubmittedAt,
		ProcessedAt:    m.ProcessedAt,
		ErrorDetail:    m.ErrorDetail,
		StatusDetail:   m.StatusDetail,
	}, nil
}

// Upsert merges evt into the stored record inside a WATCH transaction on
// the event key and, when a protocol is involved, its unique index key.
func (s *Store) Upsert(ctx context.Context, evt *ledger.Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	evtID := evt.ID.String()
	key := entityKey(prefixEvent, evtID)
	watched := []string{key}
	if evt.Protocol != "" {
		watched = append(watched, uniqueEventProtocol+evt.Protocol)
	}

	txf := func(tx *goredis.Tx) error {
		var existing *ledger.Event
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var m eventModel
			if err := json.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("filer/redis: decode event: %w", err)
			}
			if existing, err = fromEventModel(&m); err != nil {
				return err
			}
		case !isRedisNil(err):
			return err
		}

		merged := ledger.Merge(existing, evt)
		if merged.Protocol != "" {
			owner, err := tx.Get(ctx, uniqueEventProtocol+merged.Protocol).Result()
			if err != nil && !isRedisNil(err) {
				return err
			}
			if err == nil && owner != evtID {
				return fmt.Errorf("%w: protocol %s already recorded", ledger.ErrInvalidEvent, merged.Protocol)
			}
		}

		data, err := json.Marshal(toEventModel(merged))
		if err != nil {
			return fmt.Errorf("filer/redis: marshal event: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			member := goredis.Z{Score: scoreFromTime(merged.CreatedAt), Member: evtID}

			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, zEventAll, member)
			pipe.ZAdd(ctx, zEventType+string(merged.Type), member)
			if existing != nil && existing.Status != merged.Status {
				pipe.ZRem(ctx, zEventStatus+string(existing.Status), evtID)
			}
			pipe.ZAdd(ctx, zEventStatus+string(merged.Status), member)
			if merged.Protocol != "" {
				pipe.Set(ctx, uniqueEventProtocol+merged.Protocol, evtID, 0)
			}
			return nil
		})
		return err
	}

	for range maxMergeAttempts {
		err := s.rdb.Watch(ctx, txf, watched...)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ledger.ErrInvalidEvent) {
			return fmt.Errorf("filer/redis: upsert event: %w", err)
		}
		return err
	}
	return fmt.Errorf("filer/redis: upsert %s: too many concurrent writers", evtID)
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*ledger.Event, error) {
	return s.loadEvent(ctx, evtID.String())
}

// GetByProtocol resolves the protocol index and returns its event.
func (s *Store) GetByProtocol(ctx context.Context, protocol string) (*ledger.Event, error) {
	if protocol == "" {
		return nil, ledger.ErrEventNotFound
	}
	evtID, err := s.rdb.Get(ctx, uniqueEventProtocol+protocol).Result()
	if err != nil {
		if isRedisNil(err) {
			return nil, ledger.ErrEventNotFound
		}
		return nil, fmt.Errorf("filer/redis: get event by protocol: %w", err)
	}
	return s.loadEvent(ctx, evtID)
}

// ListEvents returns events newest first, optionally filtered by status or type.
func (s *Store) ListEvents(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Event, error) {
	index := zEventAll
	switch {
	case opts.Status != "":
		index = zEventStatus + string(opts.Status)
	case opts.Type != "":
		index = zEventType + string(opts.Type)
	}

	ids, err := s.rdb.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("filer/redis: list events: %w", err)
	}

	result := make([]*ledger.Event, 0, len(ids))
	for _, evtID := range ids {
		evt, err := s.loadEvent(ctx, evtID)
		if err != nil {
			if errors.Is(err, ledger.ErrEventNotFound) {
				continue
			}
			return nil, err
		}
		if opts.Type != "" && evt.Type != opts.Type {
			continue
		}
		result = append(result, evt)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// CountByStatus returns the cardinality of each status index.
func (s *Store) CountByStatus(ctx context.Context) (map[ledger.Status]int64, error) {
	cmds := make(map[ledger.Status]*goredis.IntCmd, len(ledger.Statuses))
	_, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, st := range ledger.Statuses {
			cmds[st] = pipe.ZCard(ctx, zEventStatus+string(st))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filer/redis: count by status: %w", err)
	}

	counts := make(map[ledger.Status]int64, len(cmds))
	for st, cmd := range cmds {
		counts[st] = cmd.Val()
	}
	return counts, nil
}

func (s *Store) loadEvent(ctx context.Context, evtID string) (*ledger.Event, error) {
	var m eventModel
	if err := s.getEntity(ctx, entityKey(prefixEvent, evtID), &m); err != nil {
		if isRedisNil(err) {
			return nil, ledger.ErrEventNotFound
		}
		return nil, fmt.Errorf("filer/redis: get event: %w", err)
	}
	return fromEventModel(&m)
}
