package session

import (
	"context"
	"log"
	"os"
	"sync"
	"syscall"
	"time"
)

// terminateGrace is how long Terminate waits after SIGTERM before
// escalating to SIGKILL.
const terminateGrace = 5 * time.Second

// Guard enforces the single-subprocess execution model: one CLI process
// may run at a time, later callers serialize in acquisition order, and the
// tracked handle can be terminated out-of-band.
type Guard struct {
	slot chan struct{}

	mu        sync.Mutex
	proc      *os.Process
	sessionID string
	done      <-chan struct{}
}

// NewGuard returns a guard with a free run slot.
func NewGuard() *Guard {
	return &Guard{slot: make(chan struct{}, 1)}
}

// Acquire claims the run slot, blocking until it is free or ctx is done.
func (g *Guard) Acquire(ctx context.Context) error {
	select {
	case g.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the run slot. Must only be called by the holder.
func (g *Guard) Release() {
	select {
	case <-g.slot:
	default:
	}
}

// Track records the running process for the slot holder. done must be
// closed once the process has been reaped, so Terminate can wait for it.
func (g *Guard) Track(proc *os.Process, sessionID string, done <-chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.proc = proc
	g.sessionID = sessionID
	g.done = done
}

// Untrack clears the tracked process handle.
func (g *Guard) Untrack() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.proc = nil
	g.sessionID = ""
	g.done = nil
}

// Running reports whether a process is currently tracked, and for which
// session.
func (g *Guard) Running() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionID, g.proc != nil
}

// Terminate stops the tracked process: SIGTERM first, SIGKILL after the
// grace period. Reports whether a process was running. Idempotent; calling
// it with nothing tracked is a no-op.
func (g *Guard) Terminate() bool {
	g.mu.Lock()
	proc := g.proc
	done := g.done
	sessionID := g.sessionID
	g.proc = nil
	g.sessionID = ""
	g.done = nil
	g.mu.Unlock()

	if proc == nil {
		return false
	}

	log.Printf("[session] terminating process pid=%d session=%s", proc.Pid, sessionID)

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		// Already gone.
		return true
	}

	if done != nil {
		select {
		case <-done:
			return true
		case <-time.After(terminateGrace):
		}
	} else {
		time.Sleep(terminateGrace)
	}

	log.Printf("[session] process pid=%d ignored SIGTERM, killing", proc.Pid)
	_ = proc.Kill()
	if done != nil {
		<-done
	}
	return true
}
