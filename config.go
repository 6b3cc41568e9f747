package filer

import (
	"fmt"
	"time"

	"github.com/xraph/filer/payload"
	"github.com/xraph/filer/submission"
)

// Environment is the authority environment events are filed against.
type Environment string

// Environments.
const (
	EnvHomologation Environment = "homologation"
	EnvProduction   Environment = "production"
)

// Config holds the configuration for a Filer instance. It is fixed for the
// lifetime of the instance; switching backend mode means building a new one.
type Config struct {
	// Environment is homologation or production.
	Environment Environment

	// BackendMode selects the real authority or the local simulation.
	BackendMode submission.Mode

	// SubjectIdentifier is the filer's registration number stamped on every
	// payload. Punctuation is ignored.
	SubjectIdentifier string

	// AuthorityURL is the base URL of the authority API (real mode only).
	AuthorityURL string

	// RequestTimeout bounds each remote call.
	RequestTimeout time.Duration

	// RateLimit is the maximum outbound calls per second. 0 means unlimited.
	RateLimit float64

	// RateBurst is the token bucket size. 0 defaults to RateLimit.
	RateBurst int

	// PollInterval is how often the background scheduler polls sent events.
	// 0 disables the scheduler.
	PollInterval time.Duration

	// PollBatchSize is the maximum number of sent events polled per cycle.
	PollBatchSize int

	// PollConcurrency is the number of concurrent status queries.
	PollConcurrency int

	// SimulatedFailureRate is the probability of a simulated rejection.
	SimulatedFailureRate float64

	// SimulatedProcessingRate is the probability that a simulated status
	// query finds the event finished.
	SimulatedProcessingRate float64

	// SimulatedSeed makes simulated outcomes reproducible. 0 seeds from the clock.
	SimulatedSeed int64

	// ShutdownTimeout is the maximum time to wait for in-flight polls on shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Environment:             EnvHomologation,
		BackendMode:             submission.ModeSimulated,
		RequestTimeout:          30 * time.Second,
		RateLimit:               5,
		PollInterval:            30 * time.Second,
		PollBatchSize:           50,
		PollConcurrency:         4,
		SimulatedFailureRate:    0.1,
		SimulatedProcessingRate: 0.5,
		ShutdownTimeout:         30 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Environment {
	case EnvHomologation, EnvProduction:
	default:
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, c.Environment)
	}

	if _, err := submission.ParseMode(string(c.BackendMode)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.BackendMode == submission.ModeSimulated && c.Environment == EnvProduction {
		return ErrSimulatedInProduction
	}
	if c.BackendMode == submission.ModeReal && c.AuthorityURL == "" {
		return fmt.Errorf("%w: authority URL is required in real mode", ErrInvalidConfig)
	}

	if n := len(payload.Identifier(c.SubjectIdentifier)); n < 11 || n > 14 {
		return fmt.Errorf("%w: subject identifier must have 11 to 14 digits", ErrInvalidConfig)
	}

	if c.RequestTimeout < 0 || c.PollInterval < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	if c.SimulatedFailureRate < 0 || c.SimulatedFailureRate > 1 ||
		c.SimulatedProcessingRate < 0 || c.SimulatedProcessingRate > 1 {
		return fmt.Errorf("%w: simulated rates must be within [0, 1]", ErrInvalidConfig)
	}
	return nil
}
