package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/xraph/filer"
	"github.com/xraph/filer/submission"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
// Nested keys use a double underscore: FILER_SIMULATION__SEED.
const EnvPrefix = "FILER_"

// Config holds configuration for the filer extension. It can be set
// programmatically via ExtOption functions or loaded with LoadConfig.
type Config struct {
	Environment     string        `koanf:"environment"`
	BackendMode     string        `koanf:"backend_mode"`
	Subject         string        `koanf:"subject"`
	AuthorityURL    string        `koanf:"authority_url"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	RateLimit       float64       `koanf:"rate_limit"`
	RateBurst       int           `koanf:"rate_burst"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Poll       PollConfig       `koanf:"poll"`
	Simulation SimulationConfig `koanf:"simulation"`
	Store      StoreConfig      `koanf:"store"`

	// HTTPAddr is the listen address of the standalone server.
	HTTPAddr string `koanf:"http_addr"`

	// BasePath is the URL prefix for all filer routes (default: "/filer").
	BasePath string `koanf:"base_path"`

	// DisableRoutes disables route registration.
	DisableRoutes bool `koanf:"disable_routes"`

	// DisableMigrations disables automatic store migration on Init.
	DisableMigrations bool `koanf:"disable_migrations"`
}

// PollConfig configures background status polling.
type PollConfig struct {
	Interval    time.Duration `koanf:"interval"`
	BatchSize   int           `koanf:"batch_size"`
	Concurrency int           `koanf:"concurrency"`
}

// SimulationConfig configures the simulated backend.
type SimulationConfig struct {
	FailureRate    float64 `koanf:"failure_rate"`
	ProcessingRate float64 `koanf:"processing_rate"`
	Seed           int64   `koanf:"seed"`
}

// StoreConfig selects the persistence backend for standalone deployments.
type StoreConfig struct {
	// Driver is "memory" or "redis".
	Driver string `koanf:"driver"`

	// Addr is the backend address, e.g. "localhost:6379".
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	d := filer.DefaultConfig()
	return Config{
		Environment:     string(d.Environment),
		BackendMode:     string(d.BackendMode),
		RequestTimeout:  d.RequestTimeout,
		RateLimit:       d.RateLimit,
		RateBurst:       d.RateBurst,
		ShutdownTimeout: d.ShutdownTimeout,
		Poll: PollConfig{
			Interval:    d.PollInterval,
			BatchSize:   d.PollBatchSize,
			Concurrency: d.PollConcurrency,
		},
		Simulation: SimulationConfig{
			FailureRate:    d.SimulatedFailureRate,
			ProcessingRate: d.SimulatedProcessingRate,
			Seed:           d.SimulatedSeed,
		},
		Store:    StoreConfig{Driver: "memory"},
		HTTPAddr: ":8080",
		BasePath: "/filer",
	}
}

// LoadConfig layers, in order, the defaults, the YAML file at path (skipped
// when empty or missing) and FILER_ environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: load %s: %w", filer.ErrInvalidConfig, path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("%w: load environment: %w", filer.ErrInvalidConfig, err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", filer.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// envKey maps FILER_POLL__BATCH_SIZE to poll.batch_size.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// FilerConfig converts c into the engine configuration.
func (c Config) FilerConfig() filer.Config {
	return filer.Config{
		Environment:             filer.Environment(c.Environment),
		BackendMode:             submission.Mode(c.BackendMode),
		SubjectIdentifier:       c.Subject,
		AuthorityURL:            c.AuthorityURL,
		RequestTimeout:          c.RequestTimeout,
		RateLimit:               c.RateLimit,
		RateBurst:               c.RateBurst,
		PollInterval:            c.Poll.Interval,
		PollBatchSize:           c.Poll.BatchSize,
		PollConcurrency:         c.Poll.Concurrency,
		SimulatedFailureRate:    c.Simulation.FailureRate,
		SimulatedProcessingRate: c.Simulation.ProcessingRate,
		SimulatedSeed:           c.Simulation.Seed,
		ShutdownTimeout:         c.ShutdownTimeout,
	}
}

// ToFilerOptions converts the configuration into filer.Option values.
func (c Config) ToFilerOptions() []filer.Option {
	return []filer.Option{filer.WithConfig(c.FilerConfig())}
}
