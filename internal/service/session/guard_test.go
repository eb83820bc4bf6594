package session

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGuardAcquireRelease(t *testing.T) {
	guard := NewGuard()

	require.NoError(t, guard.Acquire(context.Background()))
	guard.Release()
	require.NoError(t, guard.Acquire(context.Background()))
	guard.Release()
}

func TestGuardAcquireBlocksUntilRelease(t *testing.T) {
	guard := NewGuard()
	require.NoError(t, guard.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		if err := guard.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while slot held")
	case <-time.After(50 * time.Millisecond):
	}

	guard.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed after release")
	}
	guard.Release()
}

func TestGuardAcquireRespectsContext(t *testing.T) {
	guard := NewGuard()
	require.NoError(t, guard.Acquire(context.Background()))
	defer guard.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := guard.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardReleaseWithoutAcquireIsNoop(t *testing.T) {
	guard := NewGuard()
	guard.Release()
	require.NoError(t, guard.Acquire(context.Background()))
	guard.Release()
}

func TestGuardRunning(t *testing.T) {
	guard := NewGuard()

	_, running := guard.Running()
	require.False(t, running)

	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	guard.Track(cmd.Process, "sess-1", done)
	sessionID, running := guard.Running()
	require.True(t, running)
	require.Equal(t, "sess-1", sessionID)

	guard.Untrack()
	_, running = guard.Running()
	require.False(t, running)

	_ = cmd.Process.Kill()
	<-done
}

func TestGuardTerminateStopsProcess(t *testing.T) {
	guard := NewGuard()

	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	guard.Track(cmd.Process, "sess-1", done)

	require.True(t, guard.Terminate())
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("process not reaped after terminate")
	}

	_, running := guard.Running()
	require.False(t, running)
}

func TestGuardTerminateNothingRunning(t *testing.T) {
	guard := NewGuard()
	require.False(t, guard.Terminate())
	require.False(t, guard.Terminate())
}
