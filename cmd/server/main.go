package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"molecule/internal/platform/config"
	"molecule/internal/platform/httpserver"
	"molecule/internal/platform/logger"
)

// main wires dependencies, serves the router and shuts down on SIGINT or
// SIGTERM. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	srv := httpserver.New(cfg.Addr, app.router,
		httpserver.WithLogger(log),
		httpserver.WithShutdownTimeout(cfg.ShutdownTimeout),
	)
	log.Info("starting molecule", "addr", srv.Addr(), "aggregation", app.aggregation)
	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", "error", err)
		app.close()
		os.Exit(1)
	}
	log.Info("server stopped")
}
