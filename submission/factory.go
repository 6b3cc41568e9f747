package submission

import (
	"fmt"
	"log/slog"
	"time"
)

// Config selects and configures a backend.
type Config struct {
	Mode Mode

	// Real backend.
	AuthorityURL string
	Subject      string
	Timeout      time.Duration
	Credentials  CredentialSource

	// Simulated backend. Seed 0 seeds from the clock.
	FailureRate    float64
	ProcessingRate float64
	Seed           int64
	Latency        time.Duration

	Logger *slog.Logger
}

// New builds the backend named by cfg.Mode.
func New(cfg Config) (Backend, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Mode {
	case ModeReal:
		if cfg.AuthorityURL == "" {
			return nil, fmt.Errorf("submission: real backend requires an authority URL")
		}
		if cfg.Credentials == nil {
			return nil, fmt.Errorf("submission: real backend requires a credential source")
		}
		return NewRealBackend(cfg.AuthorityURL, cfg.Subject, cfg.Timeout, cfg.Credentials, WithRealLogger(logger)), nil

	case ModeSimulated:
		opts := []SimulatedOption{
			WithFailureRate(cfg.FailureRate),
			WithProcessingRate(cfg.ProcessingRate),
			WithLatency(cfg.Latency),
			WithSimulatedLogger(logger),
		}
		if cfg.Seed != 0 {
			opts = append(opts, WithSeed(cfg.Seed))
		}
		return NewSimulatedBackend(opts...), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
}
