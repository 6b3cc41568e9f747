package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/filer/ledger"
)

// SchedulerConfig holds background polling configuration.
type SchedulerConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

// Scheduler periodically polls every sent event. It is optional; callers
// may drive Poller.QueryStatus themselves.
type Scheduler struct {
	poller *Poller
	store  ledger.Store
	config SchedulerConfig
	logger *slog.Logger

	sem    chan struct{}
	mu     sync.Mutex
	offset int
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for p.
func NewScheduler(p *Poller, store ledger.Store, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Scheduler{
		poller: p,
		store:  store,
		config: cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.Concurrency),
	}
}

// Start begins the poll loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight queries to complete.
func (s *Scheduler) Stop(_ context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce polls one batch of sent events, waits for the queries and returns
// how many events reached a terminal state. Batches rotate through the sent
// set so older events are not starved by newer ones.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.store.ListEvents(ctx, ledger.ListOpts{
		Status: ledger.StatusSent,
		Offset: s.offset,
		Limit:  s.config.BatchSize,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "list sent events failed", "error", err)
		return 0
	}

	var (
		resolved atomic.Int64
		wg       sync.WaitGroup
	)
dispatch:
	for _, evt := range batch {
		select {
		case <-ctx.Done():
			break dispatch
		case s.sem <- struct{}{}:
		}

		wg.Add(1)
		go func(protocol string) {
			defer wg.Done()
			defer func() { <-s.sem }()
			res, err := s.poller.QueryStatus(ctx, protocol)
			if err != nil {
				s.logger.DebugContext(ctx, "scheduled poll failed",
					"protocol", protocol,
					"error", err,
				)
				return
			}
			if res.Status.Terminal() {
				resolved.Add(1)
			}
		}(evt.Protocol)
	}
	wg.Wait()

	// Resolved events left the sent set; the rest shifted down by as many.
	n := int(resolved.Load())
	if len(batch) < s.config.BatchSize {
		s.offset = 0
	} else {
		s.offset += len(batch) - n
	}
	return n
}
