package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, ctx context.Context, what string) {
	t.Helper()

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("%s: context not cancelled within 5s", what)
	}
}

func TestShutdownContext_SignalStartsGracefulShutdown(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx := shutdownContext(parent, testLogger())

	// The daemon's sync subprocess runs under this context; it must observe
	// the cancellation so exec.CommandContext can stop it.
	drained := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(drained)
	}()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	waitDone(t, ctx, "SIGINT")
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight work never observed the shutdown")
	}
}

func TestShutdownContext_ParentCancelPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())

	ctx := shutdownContext(parent, testLogger())

	cancel()

	waitDone(t, ctx, "parent cancel")
}
