package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
)

// shutdownContext returns a context cancelled by SIGINT or SIGTERM. The
// first signal starts a graceful shutdown: the watch loop exits and any
// in-flight sync command is cancelled, but the process waits for it to
// stop. After the first signal the handler is unregistered, so a second
// signal terminates the process through the default disposition — the
// escape hatch when the sync command ignores cancellation.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()

		if parent.Err() == nil {
			logger.Info("shutting down, stopping sync command (signal again to force quit)")
		}
	}()

	return ctx
}
