package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/flodesk-bridge/internal/bridge"
	"github.com/af-corp/flodesk-bridge/internal/config"
	"github.com/af-corp/flodesk-bridge/internal/credential"
	"github.com/af-corp/flodesk-bridge/internal/dispatch"
	"github.com/af-corp/flodesk-bridge/internal/flodesk"
	"github.com/af-corp/flodesk-bridge/internal/ratelimit"
	"github.com/af-corp/flodesk-bridge/internal/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/bridge.yaml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	loader := config.NewLoader(*configPath, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	cfg := loader.Config()

	// Connect to Redis (optional account->credential store and rate limiter)
	var accounts credential.Store
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (account credential lookup disabled)", "error", err)
		} else {
			rdb = client
			accounts = credential.NewRedisStore(rdb)
			logger.Info("redis connected")
		}
	}

	metrics := telemetry.NewMetrics()

	// Build dispatcher behind a handle; config reloads swap it atomically
	dispatcher := dispatch.NewHandle(dispatch.New(newFactory(cfg, metrics), cfg.Subscribers.OnlyActive))
	loader.OnReload(func() {
		reloaded := loader.Config()
		dispatcher.Swap(dispatch.New(newFactory(reloaded, metrics), reloaded.Subscribers.OnlyActive))
		logger.Info("dispatcher rebuilt from config")
	})

	handler := bridge.NewHandler(dispatcher, accounts, metrics)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	if cfg.RateLimit.Enabled {
		r.Use(ratelimit.Middleware(ratelimit.NewLimiter(rdb), cfg.RateLimit.PerMinute))
	}
	r.Mount("/api", handler.Router())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Metrics endpoint on its own port
	if cfg.Telemetry.MetricsPort > 0 {
		go func() {
			metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics server starting", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("bridge starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("bridge stopped")
}

func newFactory(cfg *config.Config, metrics *telemetry.Metrics) *flodesk.Factory {
	return flodesk.NewFactory(cfg.Flodesk.BaseURL, cfg.Flodesk.AuthScheme, cfg.Flodesk.Timeout, metrics)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
