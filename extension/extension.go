package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/filer"
	"github.com/xraph/filer/api"
	"github.com/xraph/filer/store"
)

// ErrNotInitialized is returned when the extension is used before Init.
var ErrNotInitialized = errors.New("filer: extension not initialized")

// Extension mounts a filer engine into a host application.
type Extension struct {
	config Config
	opts   []filer.Option
	store  store.Store
	logger *slog.Logger

	filer *filer.Filer
}

// New creates a new filer extension. Call Init before mounting it.
func New(opts ...ExtOption) *Extension {
	e := &Extension{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init runs store migrations and builds the engine.
func (e *Extension) Init(ctx context.Context) error {
	if e.store == nil {
		return filer.ErrNoStore
	}

	if !e.config.DisableMigrations {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("filer: migrate: %w", err)
		}
	}

	opts := make([]filer.Option, 0, len(e.opts)+3)
	opts = append(opts, e.config.ToFilerOptions()...)
	opts = append(opts, filer.WithStore(e.store), filer.WithLogger(e.logger))
	opts = append(opts, e.opts...)

	f, err := filer.New(opts...)
	if err != nil {
		return err
	}
	e.filer = f

	e.logger.InfoContext(ctx, "filer extension initialized",
		slog.String("prefix", e.Prefix()),
		slog.String("mode", string(f.Mode())),
		slog.Bool("routes", !e.config.DisableRoutes),
	)
	return nil
}

// Start starts background status polling.
func (e *Extension) Start(ctx context.Context) error {
	if e.filer == nil {
		return ErrNotInitialized
	}
	e.filer.Start(ctx)
	return nil
}

// Stop drains background polling. The store is left open; its owner closes it.
func (e *Extension) Stop(ctx context.Context) error {
	if e.filer == nil {
		return nil
	}
	e.filer.Stop(ctx)
	return nil
}

// Health reports store connectivity.
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return filer.ErrNoStore
	}
	return e.store.Ping(ctx)
}

// Handler returns the net/http API handler with the prefix stripped, ready
// to be mounted at Prefix()+"/". It returns nil before Init or when routes
// are disabled.
func (e *Extension) Handler() http.Handler {
	if e.filer == nil || e.config.DisableRoutes {
		return nil
	}
	return http.StripPrefix(e.Prefix(), api.NewHandler(e.filer, e.logger))
}

// RegisterRoutes registers the API on a Forge router under the prefix.
func (e *Extension) RegisterRoutes(router forge.Router, log forge.Logger) error {
	if e.filer == nil {
		return ErrNotInitialized
	}
	if e.config.DisableRoutes {
		return nil
	}
	g := router.Group(e.Prefix())
	api.NewForgeAPI(e.filer, log).RegisterRoutes(g)
	return nil
}

// Filer returns the underlying engine, nil before Init.
func (e *Extension) Filer() *filer.Filer { return e.filer }

// Config returns the extension configuration.
func (e *Extension) Config() Config { return e.config }

// Prefix returns the configured URL prefix without a trailing slash.
func (e *Extension) Prefix() string {
	return strings.TrimRight(e.config.BasePath, "/")
}
