package submission

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/filer/id"
	"github.com/xraph/filer/ledger"
)

// simulatedProtocol matches receipts this backend hands out: environment
// digit, month of receipt, then the event ID suffix. The ten-digit form is
// accepted for receipts issued by earlier releases.
var simulatedProtocol = regexp.MustCompile(`^1\.[12]\.[0-9]{6}\.([0-9]{10}|[0-9a-z]{26})$`)

// Rejection reasons the simulated authority picks from.
var simulatedReasons = []string{
	"employer registration not found",
	"worker tax id not registered",
	"event already received for this period",
	"document failed authority validation",
}

// SimulatedOption configures a SimulatedBackend.
type SimulatedOption func(*SimulatedBackend)

// WithFailureRate sets the probability in [0,1] that a submission is
// rejected, and that a processed status query ends in error.
func WithFailureRate(r float64) SimulatedOption {
	return func(b *SimulatedBackend) { b.failureRate = clamp01(r) }
}

// WithProcessingRate sets the probability in [0,1] that a status query on a
// sent event finds it finished.
func WithProcessingRate(r float64) SimulatedOption {
	return func(b *SimulatedBackend) { b.processingRate = clamp01(r) }
}

// WithSeed makes the outcome sequence reproducible. Without it the backend
// seeds from the clock.
func WithSeed(seed int64) SimulatedOption {
	return func(b *SimulatedBackend) {
		b.rnd = rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation only.
	}
}

// WithLatency injects an artificial delay before every answer.
func WithLatency(d time.Duration) SimulatedOption {
	return func(b *SimulatedBackend) {
		if d < 0 {
			d = 0
		}
		b.latency = d
	}
}

// WithClock overrides the clock used for receipts and protocol numbers.
func WithClock(now func() time.Time) SimulatedOption {
	return func(b *SimulatedBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithSimulatedLogger sets the logger.
func WithSimulatedLogger(l *slog.Logger) SimulatedOption {
	return func(b *SimulatedBackend) { b.logger = l }
}

// SimulatedBackend answers submissions and status queries locally with
// randomized outcomes. It honors the same contract as RealBackend.
type SimulatedBackend struct {
	failureRate    float64
	processingRate float64
	latency        time.Duration
	now            func() time.Time
	logger         *slog.Logger

	mu        sync.Mutex
	rnd       *rand.Rand
	protocols map[string]*StatusResult

	submits atomic.Int64
	queries atomic.Int64
}

// NewSimulatedBackend creates a simulated backend. Defaults: 10% failure
// rate, 50% processing rate, no latency.
func NewSimulatedBackend(opts ...SimulatedOption) *SimulatedBackend {
	b := &SimulatedBackend{
		failureRate:    0.1,
		processingRate: 0.5,
		now:            time.Now,
		logger:         slog.Default(),
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- simulation only.
		protocols:      make(map[string]*StatusResult),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Mode implements Backend.
func (b *SimulatedBackend) Mode() Mode { return ModeSimulated }

// Submit implements Backend.
func (b *SimulatedBackend) Submit(ctx context.Context, req *Request) (*Receipt, error) {
	b.submits.Add(1)

	if err := b.wait(ctx); err != nil {
		return nil, transportError("submit", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rnd.Float64() < b.failureRate {
		reason := simulatedReasons[b.rnd.Intn(len(simulatedReasons))]
		b.logger.DebugContext(ctx, "simulated rejection",
			"event_id", req.EventID.String(),
			"reason", reason,
		)
		return nil, fmt.Errorf("%w: %s", ErrRemoteRejected, reason)
	}

	now := b.now().UTC()
	protocol := fmt.Sprintf("1.%d.%s.%s", envDigit(req.Environment), now.Format("200601"), protocolSuffix(req.EventID))
	if _, ok := b.protocols[protocol]; !ok {
		b.protocols[protocol] = &StatusResult{Protocol: protocol, Status: ledger.StatusSent}
	}

	return &Receipt{Protocol: protocol, ReceivedAt: now}, nil
}

// QueryStatus implements Backend. A sent receipt advances to processed or
// error with the configured rates; a finished one keeps its answer. A
// well-formed receipt this instance never issued, such as one recorded before
// a restart, is taken up as sent.
func (b *SimulatedBackend) QueryStatus(ctx context.Context, protocol string) (*StatusResult, error) {
	b.queries.Add(1)

	if err := b.wait(ctx); err != nil {
		return nil, transportError("query status", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.protocols[protocol]
	if !ok {
		if !simulatedProtocol.MatchString(protocol) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, protocol)
		}
		rec = &StatusResult{Protocol: protocol, Status: ledger.StatusSent}
		b.protocols[protocol] = rec
	}

	if rec.Status == ledger.StatusSent && b.rnd.Float64() < b.processingRate {
		if b.rnd.Float64() < b.failureRate {
			rec.Status = ledger.StatusError
			rec.Detail = simulatedReasons[b.rnd.Intn(len(simulatedReasons))]
		} else {
			rec.Status = ledger.StatusProcessed
			rec.Detail = "event processed successfully"
		}
	}

	out := *rec
	return &out, nil
}

// Calls returns how many submissions and status queries were received.
func (b *SimulatedBackend) Calls() (submits, queries int64) {
	return b.submits.Load(), b.queries.Load()
}

func (b *SimulatedBackend) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(b.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// protocolSuffix ties the receipt to the event, so receipts stay unique
// across restarts of the process.
func protocolSuffix(evtID id.ID) string {
	if evtID.IsNil() {
		evtID = id.NewFilingEventID()
	}
	s := evtID.String()
	return s[strings.LastIndexByte(s, '_')+1:]
}

func envDigit(environment string) int {
	if environment == "production" {
		return 1
	}
	return 2
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
