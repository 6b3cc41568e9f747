package filer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/entity"
	"github.com/xraph/filer/internal/keylock"
	"github.com/xraph/filer/ledger"
	"github.com/xraph/filer/payload"
	"github.com/xraph/filer/poller"
	"github.com/xraph/filer/ratelimit"
	"github.com/xraph/filer/store"
	"github.com/xraph/filer/submission"
)

// wireServices initializes the internal services after options have been applied.
func (f *Filer) wireServices() error {
	subject := payload.Identifier(f.config.SubjectIdentifier)

	f.catalog = catalog.New()
	f.builder = payload.NewBuilder(f.catalog, subject, string(f.config.Environment))
	f.credentials = credential.NewService(f.store, f.clock, f.logger)
	f.limiter = ratelimit.New(f.config.RateLimit, f.config.RateBurst)
	f.locks = keylock.New()

	if f.backend == nil {
		b, err := submission.New(submission.Config{
			Mode:           f.config.BackendMode,
			AuthorityURL:   f.config.AuthorityURL,
			Subject:        subject,
			Timeout:        f.config.RequestTimeout,
			Credentials:    f.credentials,
			FailureRate:    f.config.SimulatedFailureRate,
			ProcessingRate: f.config.SimulatedProcessingRate,
			Seed:           f.config.SimulatedSeed,
			Logger:         f.logger,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		f.backend = b
	}

	f.poller = poller.New(f.store, f.backend, poller.Config{
		Subject: subject,
		Timeout: f.config.RequestTimeout,
		Locks:   f.locks,
		Limiter: f.limiter,
		Metrics: f.metrics,
		Tracer:  f.tracer,
		Clock:   f.clock,
	}, f.logger)

	if f.config.PollInterval > 0 {
		f.scheduler = poller.NewScheduler(f.poller, f.store, poller.SchedulerConfig{
			Interval:    f.config.PollInterval,
			BatchSize:   f.config.PollBatchSize,
			Concurrency: f.config.PollConcurrency,
		}, f.logger)
	}
	return nil
}

// Start begins background status polling, if enabled.
func (f *Filer) Start(ctx context.Context) {
	if counts, err := f.store.CountByStatus(ctx); err == nil {
		f.metrics.SetAwaiting(counts[ledger.StatusSent])
	}
	if f.scheduler != nil {
		f.scheduler.Start(ctx)
	}
	f.logger.InfoContext(ctx, "filer started",
		"environment", f.config.Environment,
		"backend_mode", f.backend.Mode(),
		"poll_interval", f.config.PollInterval,
	)
}

// Stop waits for in-flight polls to finish, up to the shutdown timeout.
func (f *Filer) Stop(ctx context.Context) {
	if f.scheduler == nil {
		return
	}
	if f.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.ShutdownTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		f.scheduler.Stop(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		f.logger.WarnContext(ctx, "shutdown timed out waiting for status polls")
	}
}

// Preview renders a payload without creating or persisting an event.
func (f *Filer) Preview(eventType catalog.Type, data payload.Data) (*payload.Payload, error) {
	return f.builder.Build(eventType, data)
}

// NewEvent builds a pending event from business data. The event is not
// persisted; it reaches the ledger on its first submission attempt.
func (f *Filer) NewEvent(eventType catalog.Type, data payload.Data) (*ledger.Event, error) {
	p, err := f.builder.Build(eventType, data)
	if err != nil {
		return nil, err
	}

	now := f.clock().UTC()
	return &ledger.Event{
		Entity:         entity.Entity{CreatedAt: now, UpdatedAt: now},
		ID:             id.NewFilingEventID(),
		Type:           p.Type,
		Subject:        f.builder.Subject(),
		PayloadVersion: p.SchemaVersion,
		Payload:        p.Document,
		Digest:         p.Digest,
		Status:         ledger.StatusPending,
	}, nil
}

// Submit sends a pending event through the configured backend and records
// the outcome.
//
// The critical path:
//  1. Reject events that already left the pending state.
//  2. Check credentials. A failure returns without touching the ledger.
//  3. Wait for the outbound rate limit.
//  4. Make exactly one remote call, bounded by the request timeout.
//  5. Merge the outcome into the ledger: sent with a protocol, or error
//     with the failure detail.
//
// The returned event is the ledger's record. On a remote failure both the
// recorded event and the error are returned.
func (f *Filer) Submit(ctx context.Context, evt *ledger.Event) (*ledger.Event, error) {
	if evt == nil || evt.ID.IsNil() || len(evt.Payload) == 0 {
		return nil, fmt.Errorf("%w: event must be built with NewEvent", ErrInvalidEvent)
	}
	if evt.Status != "" && evt.Status != ledger.StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadySubmitted, evt.ID, evt.Status)
	}

	unlock := f.locks.Lock(evt.ID.String())
	defer unlock()

	existing, err := f.store.GetEvent(ctx, evt.ID)
	switch {
	case err == nil && existing.Status != ledger.StatusPending:
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadySubmitted, evt.ID, existing.Status)
	case err != nil && !errors.Is(err, ledger.ErrEventNotFound):
		return nil, fmt.Errorf("filer: load event: %w", err)
	}

	if _, err := f.credentials.Check(ctx); err != nil {
		f.metrics.RecordCredentialRejection()
		f.logger.WarnContext(ctx, "submission blocked by credentials",
			"event_id", evt.ID.String(),
			"error", err,
		)
		return nil, err
	}

	if err := f.limiter.Wait(ctx, f.builder.Subject()); err != nil {
		return nil, fmt.Errorf("filer: rate limit: %w", err)
	}

	req := &submission.Request{
		EventID:       evt.ID,
		EventType:     evt.Type,
		SchemaVersion: evt.PayloadVersion,
		Environment:   string(f.config.Environment),
		Subject:       f.builder.Subject(),
		Digest:        evt.Digest,
		Document:      evt.Payload,
	}
	if def, lookupErr := f.catalog.Lookup(evt.Type); lookupErr == nil {
		req.Code = def.Code
	}

	cctx := ctx
	if f.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, f.config.RequestTimeout)
		defer cancel()
	}
	cctx, span := f.tracer.StartSubmitSpan(cctx, evt.ID.String(), string(evt.Type), string(f.backend.Mode()))

	start := time.Now()
	receipt, submitErr := f.backend.Submit(cctx, req)
	latency := time.Since(start).Seconds()

	if errors.Is(submitErr, credential.ErrCredentialsNotConfigured) {
		// The backend could not authenticate; no request left the process.
		f.tracer.EndSpan(span, string(ledger.StatusPending), submitErr)
		return nil, submitErr
	}

	now := f.clock().UTC()
	record := *evt
	record.Status = ledger.StatusPending
	record.SubmittedAt = &now
	record.Touch(now)

	if submitErr == nil {
		record.Status = ledger.StatusSent
		record.Protocol = receipt.Protocol
	} else {
		record.Status = ledger.StatusError
		record.ErrorDetail = submitErr.Error()
		record.ProcessedAt = &now
	}
	f.metrics.RecordSubmission(string(f.backend.Mode()), string(record.Status), latency)
	f.tracer.EndSpan(span, string(record.Status), submitErr)

	// The attempt happened; record it even if the caller has given up.
	wctx := context.WithoutCancel(ctx)
	if err := f.store.Upsert(wctx, &record); err != nil {
		if submitErr == nil {
			f.logger.ErrorContext(ctx, "accepted submission not recorded",
				"event_id", evt.ID.String(),
				"protocol", receipt.Protocol,
				"error", err,
			)
			return nil, fmt.Errorf("filer: record submission of %s accepted with protocol %s: %w", evt.ID, receipt.Protocol, err)
		}
		return nil, fmt.Errorf("filer: record submission: %w", errors.Join(err, submitErr))
	}
	stored, err := f.store.GetEvent(wctx, evt.ID)
	if err != nil {
		return nil, fmt.Errorf("filer: reload event: %w", err)
	}
	*evt = *stored

	if submitErr != nil {
		f.logger.WarnContext(ctx, "submission failed",
			"event_id", evt.ID.String(),
			"event_type", evt.Type,
			"error", submitErr,
		)
		return stored, submitErr
	}

	f.logger.DebugContext(ctx, "event submitted",
		"event_id", evt.ID.String(),
		"event_type", evt.Type,
		"protocol", stored.Protocol,
	)
	return stored, nil
}

// File builds and submits an event in one step.
func (f *Filer) File(ctx context.Context, eventType catalog.Type, data payload.Data) (*ledger.Event, error) {
	evt, err := f.NewEvent(eventType, data)
	if err != nil {
		return nil, err
	}
	return f.Submit(ctx, evt)
}

// QueryStatus returns the processing status of a protocol, reconciling it
// into the ledger. Terminal events are answered without a remote call.
func (f *Filer) QueryStatus(ctx context.Context, protocol string) (*poller.Result, error) {
	return f.poller.QueryStatus(ctx, protocol)
}

// Event returns the ledger record of an event.
func (f *Filer) Event(ctx context.Context, evtID id.ID) (*ledger.Event, error) {
	return f.store.GetEvent(ctx, evtID)
}

// Events lists ledger records newest first.
func (f *Filer) Events(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Event, error) {
	return f.store.ListEvents(ctx, opts)
}

// EventsByStatus lists every ledger record in one state.
func (f *Filer) EventsByStatus(ctx context.Context, status ledger.Status) ([]*ledger.Event, error) {
	return f.store.ListEvents(ctx, ledger.ListOpts{Status: status})
}

// Stats returns the number of ledger records in each state.
func (f *Filer) Stats(ctx context.Context) (map[ledger.Status]int64, error) {
	return f.store.CountByStatus(ctx)
}

// Credentials returns the credential service.
func (f *Filer) Credentials() *credential.Service {
	return f.credentials
}

// Catalog returns the event type catalog.
func (f *Filer) Catalog() *catalog.Catalog {
	return f.catalog
}

// Store returns the underlying store.
func (f *Filer) Store() store.Store {
	return f.store
}

// Mode returns the backend mode selected at construction.
func (f *Filer) Mode() submission.Mode {
	return f.backend.Mode()
}

// Config returns a copy of the configuration.
func (f *Filer) Config() Config {
	return f.config
}
