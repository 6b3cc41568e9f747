// Command filerd runs the filer engine as a standalone HTTP service.
//
// Configuration is read from filer.yaml (override with FILER_CONFIG) and
// FILER_ environment variables; a .env file is loaded first when present.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/filer"
	"github.com/xraph/filer/extension"
	"github.com/xraph/filer/store"
	"github.com/xraph/filer/store/memory"
	redisstore "github.com/xraph/filer/store/redis"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	path := os.Getenv("FILER_CONFIG")
	if path == "" {
		path = "filer.yaml"
	}
	cfg, err := extension.LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	s, err := openStore(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ext := extension.New(
		extension.WithConfig(cfg),
		extension.WithStore(s),
		extension.WithLogger(logger),
		extension.WithFilerOption(filer.WithTracing()),
	)
	if err := ext.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize filer: %v", err)
	}
	if err := ext.Start(ctx); err != nil {
		log.Fatalf("Failed to start filer: %v", err)
	}

	mux := http.NewServeMux()
	if h := ext.Handler(); h != nil {
		mux.Handle(ext.Prefix()+"/", h)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := ext.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("filerd listening",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("prefix", ext.Prefix()),
			slog.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping filerd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if err := ext.Stop(shutdownCtx); err != nil {
		logger.Error("filer shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("filerd shutdown complete")
}

func openStore(cfg extension.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), nil
	case "redis":
		addr := cfg.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    []string{addr},
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return redisstore.NewFromClient(rdb), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
