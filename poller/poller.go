// Package poller reconciles the authority's processing status of sent
// events into the ledger.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/keylock"
	"github.com/xraph/filer/ledger"
	"github.com/xraph/filer/observability"
	"github.com/xraph/filer/ratelimit"
	"github.com/xraph/filer/submission"
)

// Config holds poller configuration. Zero values are valid.
type Config struct {
	// Subject is the rate limiting key for outbound queries.
	Subject string

	// Timeout bounds each remote status query. Zero means no extra bound.
	Timeout time.Duration

	// Locks serializes work per event id. Share it with the submitter so a
	// poll and a submit of the same event never interleave.
	Locks *keylock.Map

	Limiter *ratelimit.Limiter
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	Clock   func() time.Time
}

// Result is the status of one protocol.
type Result struct {
	Protocol string        `json:"protocol"`
	EventID  id.ID         `json:"event_id"`
	Status   ledger.Status `json:"status"`
	Detail   string        `json:"detail,omitempty"`

	// Remote reports whether the authority was consulted.
	Remote bool `json:"remote"`
}

// Poller queries and reconciles processing status.
type Poller struct {
	store   ledger.Store
	backend submission.Backend
	config  Config
	logger  *slog.Logger
}

// New creates a poller over store and backend.
func New(store ledger.Store, backend submission.Backend, cfg Config, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Locks == nil {
		cfg.Locks = keylock.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Poller{store: store, backend: backend, config: cfg, logger: logger}
}

// QueryStatus returns the processing state of the event holding protocol.
//
// Terminal events are answered from the ledger without a remote call. A sent
// event is queried once; a processed or error answer is merged into the
// ledger. Transport failures are returned and leave the ledger untouched.
func (p *Poller) QueryStatus(ctx context.Context, protocol string) (*Result, error) {
	if protocol == "" {
		return nil, fmt.Errorf("%w: empty protocol", submission.ErrUnknownProtocol)
	}

	evt, err := p.store.GetByProtocol(ctx, protocol)
	if errors.Is(err, ledger.ErrEventNotFound) {
		return nil, fmt.Errorf("%w: %s", submission.ErrUnknownProtocol, protocol)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup protocol: %w", err)
	}

	unlock := p.config.Locks.Lock(evt.ID.String())
	defer unlock()

	// Re-read under the lock; a concurrent poll may have finished it.
	evt, err = p.store.GetEvent(ctx, evt.ID)
	if err != nil {
		return nil, fmt.Errorf("reload event: %w", err)
	}

	if evt.Status.Terminal() {
		return stored(evt), nil
	}
	if evt.Status != ledger.StatusSent {
		return nil, fmt.Errorf("%w: %s", submission.ErrUnknownProtocol, protocol)
	}

	if err := p.config.Limiter.Wait(ctx, p.config.Subject); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	qctx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	qctx, span := p.config.Tracer.StartPollSpan(qctx, protocol)
	start := time.Now()
	res, err := p.backend.QueryStatus(qctx, protocol)
	latency := time.Since(start).Seconds()
	if err != nil {
		p.config.Metrics.RecordPoll("transport_error", latency)
		p.config.Tracer.EndSpan(span, "", err)
		p.logger.WarnContext(ctx, "status query failed",
			"event_id", evt.ID.String(),
			"protocol", protocol,
			"error", err,
		)
		return nil, err
	}
	p.config.Metrics.RecordPoll(string(res.Status), latency)
	p.config.Tracer.EndSpan(span, string(res.Status), nil)

	if !res.Status.Terminal() {
		return &Result{
			Protocol: protocol,
			EventID:  evt.ID,
			Status:   ledger.StatusSent,
			Detail:   res.Detail,
			Remote:   true,
		}, nil
	}

	now := p.config.Clock().UTC()
	patch := &ledger.Event{
		ID:           evt.ID,
		Status:       res.Status,
		ProcessedAt:  &now,
		StatusDetail: res.Detail,
	}
	patch.UpdatedAt = now
	if err := p.store.Upsert(ctx, patch); err != nil {
		return nil, fmt.Errorf("record status: %w", err)
	}
	p.config.Metrics.RecordTerminal()

	merged, err := p.store.GetEvent(ctx, evt.ID)
	if err != nil {
		return nil, fmt.Errorf("reload event: %w", err)
	}

	p.logger.InfoContext(ctx, "event reached terminal status",
		"event_id", evt.ID.String(),
		"protocol", protocol,
		"status", merged.Status,
	)

	out := stored(merged)
	out.Remote = true
	return out, nil
}

func stored(evt *ledger.Event) *Result {
	detail := evt.StatusDetail
	if detail == "" {
		detail = evt.ErrorDetail
	}
	return &Result{
		Protocol: evt.Protocol,
		EventID:  evt.ID,
		Status:   evt.Status,
		Detail:   detail,
	}
}
