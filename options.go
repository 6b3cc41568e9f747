package filer

import (
	"log/slog"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/internal/keylock"
	"github.com/xraph/filer/observability"
	"github.com/xraph/filer/payload"
	"github.com/xraph/filer/poller"
	"github.com/xraph/filer/ratelimit"
	"github.com/xraph/filer/store"
	"github.com/xraph/filer/submission"
)

// Filer is the root e-filing engine.
type Filer struct {
	config      Config
	store       store.Store
	catalog     *catalog.Catalog
	builder     *payload.Builder
	credentials *credential.Service
	backend     submission.Backend
	poller      *poller.Poller
	scheduler   *poller.Scheduler
	limiter     *ratelimit.Limiter
	locks       *keylock.Map
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	clock       func() time.Time
	logger      *slog.Logger
}

// Option configures a Filer instance.
type Option func(*Filer) error

// New creates a new Filer with the given options. The backend is selected
// once here from the configured mode.
func New(opts ...Option) (*Filer, error) {
	f := &Filer{
		config: DefaultConfig(),
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	if f.store == nil {
		return nil, ErrNoStore
	}
	if f.backend != nil {
		f.config.BackendMode = f.backend.Mode()
	}
	if err := f.config.Validate(); err != nil {
		return nil, err
	}
	if err := f.wireServices(); err != nil {
		return nil, err
	}
	return f, nil
}

// WithStore sets the persistence backend for the Filer instance.
func WithStore(s store.Store) Option {
	return func(f *Filer) error {
		f.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Filer instance.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filer) error {
		f.logger = logger
		return nil
	}
}

// WithConfig replaces the whole configuration. Options applied after it
// still override individual fields.
func WithConfig(cfg Config) Option {
	return func(f *Filer) error {
		f.config = cfg
		return nil
	}
}

// WithEnvironment sets the authority environment.
func WithEnvironment(env Environment) Option {
	return func(f *Filer) error {
		f.config.Environment = env
		return nil
	}
}

// WithBackendMode selects the real or simulated backend.
func WithBackendMode(mode submission.Mode) Option {
	return func(f *Filer) error {
		f.config.BackendMode = mode
		return nil
	}
}

// WithSubject sets the filer's registration number.
func WithSubject(subject string) Option {
	return func(f *Filer) error {
		f.config.SubjectIdentifier = subject
		return nil
	}
}

// WithAuthorityURL sets the base URL of the authority API.
func WithAuthorityURL(u string) Option {
	return func(f *Filer) error {
		f.config.AuthorityURL = u
		return nil
	}
}

// WithRequestTimeout bounds each remote call.
func WithRequestTimeout(d time.Duration) Option {
	return func(f *Filer) error {
		f.config.RequestTimeout = d
		return nil
	}
}

// WithRateLimit sets the outbound calls per second and the burst size.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *Filer) error {
		f.config.RateLimit = perSecond
		f.config.RateBurst = burst
		return nil
	}
}

// WithPollInterval sets how often the background scheduler polls sent
// events. 0 disables it.
func WithPollInterval(d time.Duration) Option {
	return func(f *Filer) error {
		f.config.PollInterval = d
		return nil
	}
}

// WithPollBatchSize sets the maximum number of sent events polled per cycle.
func WithPollBatchSize(n int) Option {
	return func(f *Filer) error {
		f.config.PollBatchSize = n
		return nil
	}
}

// WithPollConcurrency sets the number of concurrent status queries.
func WithPollConcurrency(n int) Option {
	return func(f *Filer) error {
		f.config.PollConcurrency = n
		return nil
	}
}

// WithSimulation configures the simulated backend's failure rate,
// processing rate and seed.
func WithSimulation(failureRate, processingRate float64, seed int64) Option {
	return func(f *Filer) error {
		f.config.SimulatedFailureRate = failureRate
		f.config.SimulatedProcessingRate = processingRate
		f.config.SimulatedSeed = seed
		return nil
	}
}

// WithBackend injects a ready-made backend instead of building one from the
// configured mode. The configured mode follows the backend's.
func WithBackend(b submission.Backend) Option {
	return func(f *Filer) error {
		f.backend = b
		return nil
	}
}

// WithMetrics records metrics through the supplied factory.
func WithMetrics(factory gu.MetricFactory) Option {
	return func(f *Filer) error {
		f.metrics = observability.NewMetrics(factory)
		return nil
	}
}

// WithTracing enables OpenTelemetry spans around remote calls.
func WithTracing() Option {
	return func(f *Filer) error {
		f.tracer = observability.NewTracer()
		return nil
	}
}

// WithClock overrides the clock used for timestamps and credential validity.
func WithClock(now func() time.Time) Option {
	return func(f *Filer) error {
		f.clock = now
		return nil
	}
}
