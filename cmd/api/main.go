package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/taskhub/taskhub/internal/cache"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db"
	httpx "github.com/taskhub/taskhub/internal/http"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/repo/postgres"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()

	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	ctx := context.Background()

	tracing := false

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "taskhub-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("init tracer", "err", err)
			os.Exit(1)
		}

		tracing = true

		defer func() {
			cctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(cctx)
		}()
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("connect database", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Error("ensure schema", "err", err)
		os.Exit(1)
	}

	listCache := cache.NewTaskListCache(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if listCache != nil {
		cctx, cancel := config.WithTimeout(2 * time.Second)

		if err := listCache.Ping(cctx); err != nil {
			log.Warn("redis unreachable, task list cache disabled", "err", err)
			listCache = nil
		}

		cancel()
	}

	defer func() { _ = listCache.Close() }()

	prom := observability.NewProm()

	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Users:   postgres.NewUsersRepo(pool, prom),
		Tasks:   postgres.NewTasksRepo(pool, prom),
		Cache:   listCache,
		Metrics: prom,
		Ping: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
		Tracing: tracing,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		cctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(cctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
