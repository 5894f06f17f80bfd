package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSyncer counts invocations and returns a fixed error.
type stubSyncer struct {
	calls int
	opts  []Options
	err   error
}

func (s *stubSyncer) Sync(_ context.Context, opts Options) (Result, error) {
	s.calls++
	s.opts = append(s.opts, opts)

	return Result{RunID: "stub-run"}, s.err
}

func TestRunner_HooksFireOnSuccess(t *testing.T) {
	t.Parallel()

	syncer := &stubSyncer{}
	r := New(syncer, testLogger(t))

	fired := 0
	r.OnComplete(func() { fired++ })

	res, err := r.Run(context.Background(), Interactive())
	require.NoError(t, err)
	assert.Equal(t, "stub-run", res.RunID)
	assert.Equal(t, 1, fired)
}

func TestRunner_HooksFireOnFailure(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("server said no")
	syncer := &stubSyncer{err: wantErr}
	r := New(syncer, testLogger(t))

	fired := 0
	r.OnComplete(func() { fired++ })

	_, err := r.Run(context.Background(), Automatic())
	require.ErrorIs(t, err, wantErr)

	// Completion means "sync returned", not "sync succeeded".
	assert.Equal(t, 1, fired)
}

func TestRunner_RemoveDetachesHook(t *testing.T) {
	t.Parallel()

	syncer := &stubSyncer{}
	r := New(syncer, testLogger(t))

	fired := 0
	remove := r.OnComplete(func() { fired++ })

	_, err := r.Run(context.Background(), Interactive())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	remove()
	remove() // safe to call twice

	_, err = r.Run(context.Background(), Interactive())
	require.NoError(t, err)
	assert.Equal(t, 1, fired, "detached hook must not fire")
}

func TestRunner_MultipleHooksAllFire(t *testing.T) {
	t.Parallel()

	syncer := &stubSyncer{}
	r := New(syncer, testLogger(t))

	var a, b bool

	r.OnComplete(func() { a = true })
	r.OnComplete(func() { b = true })

	_, err := r.Run(context.Background(), Interactive())
	require.NoError(t, err)
	assert.True(t, a)
	assert.True(t, b)
}

func TestOptions_Policies(t *testing.T) {
	t.Parallel()

	auto := Automatic()
	assert.True(t, auto.ResolveDeletions)
	assert.True(t, auto.SuppressReport)

	// Interactive is the syncer's defaults: no overrides at all.
	assert.Equal(t, Options{}, Interactive())
}

func TestExecSyncer_NoCommandConfigured(t *testing.T) {
	t.Parallel()

	e := NewExecSyncer("", nil, nil, testLogger(t))

	_, err := e.Sync(context.Background(), Interactive())
	require.ErrorIs(t, err, ErrNoSyncCommand)
}

func TestExecSyncer_RunsCommand(t *testing.T) {
	t.Parallel()

	e := NewExecSyncer("true", nil, nil, testLogger(t))

	res, err := e.Sync(context.Background(), Automatic())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
}

func TestExecSyncer_FailureWrapsCommand(t *testing.T) {
	t.Parallel()

	e := NewExecSyncer("false", nil, nil, testLogger(t))

	_, err := e.Sync(context.Background(), Interactive())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "false")
}
