package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"smelter/internal/api"
	"smelter/internal/config"
	"smelter/internal/pipeline"
	"smelter/internal/stats"
)

// main wires config -> pipeline -> control API and runs until an interrupt
// signal, grounded on cmd/sip-tg-bridge/main.go's shape (signal.NotifyContext,
// load-config-or-exit-1, construct the service, start, graceful shutdown,
// exit 1 on a fatal post-start error).
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)
	silenceVendoredLoggers()

	bus := stats.NewBus(log)
	registry := stats.NewRegistry()

	p := pipeline.New(bus, 64, 64)
	factory := newMediaFactory(cfg, log, registry, bus, p.Ctx.Queue)

	server := api.NewServer(p, factory, factory, bus, registry, log)

	httpServer := &http.Server{
		Addr:    cfg.APIBindAddr,
		Handler: server,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("control api listening", "addr", cfg.APIBindAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("control api: %w", err)
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", "error", err)
	}
	p.Stop()

	if runErr != nil {
		log.Error("smelter stopped with error", "error", runErr)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
