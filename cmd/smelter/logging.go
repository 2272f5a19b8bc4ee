package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/Laky-64/gologging"

	"smelter/internal/config"
)

// shutdownGrace bounds how long Shutdown waits for in-flight control API
// requests to finish before main forces the pipeline down anyway.
const shutdownGrace = 5 * time.Second

// silenceVendoredLoggers quiets the named loggers vendored webrtc/codec
// libraries register on their own, the way the teacher's service.go
// silences ntgcalls with gologging.SetLevel/GetLogger(...).SetLevel.
func silenceVendoredLoggers() {
	gologging.SetLevel(gologging.FatalLevel)
	gologging.GetLogger("webrtc").SetLevel(gologging.FatalLevel)
}

// newLogger builds the structured logger every package in this binary
// shares, grounded on the teacher's slog.NewTextHandler(os.Stdout, nil)
// (cmd/sip-tg-bridge/main.go), generalized to also support JSON output and
// a configurable level per §6's logging configuration.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
