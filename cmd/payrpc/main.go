package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blockforge/payrpc"
	"github.com/blockforge/payrpc/config"
	"github.com/blockforge/payrpc/logger"
	"github.com/blockforge/payrpc/metrics"
	"github.com/blockforge/payrpc/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.NewZapLogger("error").Error("invalid configuration", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.LogLevel)

	opts := []payrpc.Option{payrpc.WithLogger(log)}
	if cfg.EnableMetrics {
		opts = append(opts, payrpc.WithMetrics(metrics.NewPrometheusRecorder()))
	}

	gateway := payrpc.New(cfg, opts...)
	srv := server.New(gateway)

	mux := http.NewServeMux()
	mux.Handle("/", srv.Handler())
	if cfg.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("gateway listening", cfg.Fields())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", map[string]any{"error": err.Error()})
	}
}
