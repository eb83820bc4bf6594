// Package relay spawns the external agent CLI and forwards its
// line-delimited JSON stdout as outbound chat events.
package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/okonst/widgetbridge/internal/model/copilot"
	"github.com/okonst/widgetbridge/internal/service/session"
)

const (
	// maxScanTokenSize bounds a single stdout line; assistant messages
	// with embedded file contents can get large.
	maxScanTokenSize = 1024 * 1024

	// maxStderrBuffer caps captured stderr so a chatty process cannot
	// grow memory without bound.
	maxStderrBuffer = 64 * 1024

	// killGrace is how long a timed-out process gets after SIGTERM
	// before SIGKILL.
	killGrace = 5 * time.Second
)

// Config controls a CLI invocation.
type Config struct {
	// Binary is an explicit CLI path; empty means discover.
	Binary string

	// WorkingDirectory the CLI runs in. Empty falls back to the
	// process's own working directory.
	WorkingDirectory string

	Timeout         time.Duration
	SkipPermissions bool
}

// Runner executes agent CLI runs one at a time behind the session guard.
type Runner struct {
	cfg   Config
	guard *session.Guard
}

// NewRunner creates a runner sharing the given run guard.
func NewRunner(cfg Config, guard *session.Guard) *Runner {
	return &Runner{cfg: cfg, guard: guard}
}

// BuildArgs assembles the CLI argv for a prompt. Exported so tests and
// health checks can inspect the exact invocation.
func BuildArgs(prompt, sessionID string, continued, skipPermissions bool) []string {
	args := []string{"--print", "--output-format", "stream-json", "--verbose"}
	if skipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}
	args = append(args, "--session-id", sessionID)
	if continued {
		args = append(args, "--continue")
	}
	return append(args, prompt)
}

// Run executes the CLI with the given prompt and streams outbound events.
// The returned channel closes when the run is over; every failure mode is
// reported on the channel as status events rather than an error return.
// Cancelling ctx kills the process.
func (r *Runner) Run(ctx context.Context, prompt string, sess *session.Session) <-chan copilot.Event {
	out := make(chan copilot.Event)
	go func() {
		defer close(out)
		r.run(ctx, prompt, sess, out)
	}()
	return out
}

func (r *Runner) run(ctx context.Context, prompt string, sess *session.Session, out chan<- copilot.Event) {
	emit := func(ev copilot.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	runID := ulid.Make().String()

	cliPath, err := Discover(r.cfg.Binary)
	if err != nil {
		var notFound *CLINotFoundError
		if errors.As(err, &notFound) {
			emit(copilot.ReasoningStep(copilot.StatusError, "Agent CLI not found",
				map[string]any{"searched": strings.Join(notFound.SearchedPaths, ", ")}))
		} else {
			emit(copilot.ReasoningStep(copilot.StatusError, "Agent CLI unavailable",
				map[string]any{"error": err.Error()}))
		}
		emit(copilot.MessageChunk("The agent CLI is not installed. Install it and try again."))
		return
	}

	cwd := r.cfg.WorkingDirectory
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}

	// Single run slot: a second caller blocks here until the first run
	// finishes or its client goes away.
	if err := r.guard.Acquire(ctx); err != nil {
		return
	}
	defer r.guard.Release()

	emit(copilot.ReasoningStep(copilot.StatusInfo, "Starting agent execution",
		map[string]any{
			"run_id":      runID,
			"session_id":  sess.ID,
			"working_dir": cwd,
			"continued":   sess.Continued,
		}))

	args := BuildArgs(prompt, sess.ID, sess.Continued, r.cfg.SkipPermissions)
	cmd := exec.CommandContext(ctx, cliPath, args...)
	cmd.Dir = cwd

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		emit(copilot.ReasoningStep(copilot.StatusError, "Failed to start agent",
			map[string]any{"error": err.Error()}))
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		emit(copilot.ReasoningStep(copilot.StatusError, "Failed to start agent",
			map[string]any{"error": err.Error()}))
		return
	}

	if err := cmd.Start(); err != nil {
		message := "Failed to start agent"
		if errors.Is(err, os.ErrPermission) {
			message = "Permission denied executing agent CLI"
		}
		emit(copilot.ReasoningStep(copilot.StatusError, message,
			map[string]any{"path": cliPath, "error": err.Error()}))
		return
	}

	log.Printf("[relay] run=%s session=%s pid=%d started", runID, sess.ID, cmd.Process.Pid)

	procDone := make(chan struct{})
	r.guard.Track(cmd.Process, sess.ID, procDone)
	defer r.guard.Untrack()

	// Drain stdout and stderr concurrently so neither pipe can fill up
	// and stall the process.
	var (
		stderrMu  sync.Mutex
		stderrBuf strings.Builder
	)

	var g errgroup.Group
	g.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			stderrMu.Lock()
			if stderrBuf.Len() < maxStderrBuffer {
				if stderrBuf.Len() > 0 {
					stderrBuf.WriteByte('\n')
				}
				stderrBuf.WriteString(scanner.Text())
			}
			stderrMu.Unlock()
		}
		return nil
	})
	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			for _, ev := range DecodeLine([]byte(line)) {
				if !emit(ev) {
					return ctx.Err()
				}
			}
		}
		return scanner.Err()
	})

	waitCh := make(chan error, 1)
	go func() {
		streamErr := g.Wait()
		waitErr := cmd.Wait()
		close(procDone)
		if waitErr == nil {
			waitErr = streamErr
		}
		waitCh <- waitErr
	}()

	var exitErr error
	timedOut := false

	select {
	case exitErr = <-waitCh:
	case <-time.After(r.cfg.Timeout):
		timedOut = true
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case exitErr = <-waitCh:
		case <-time.After(killGrace):
			_ = cmd.Process.Kill()
			exitErr = <-waitCh
		}
	case <-ctx.Done():
		log.Printf("[relay] run=%s cancelled, killing pid=%d", runID, cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-waitCh
		return
	}

	exitCode := cmd.ProcessState.ExitCode()

	if timedOut {
		emit(copilot.ReasoningStep(copilot.StatusError, "Execution timed out",
			map[string]any{"timeout_seconds": r.cfg.Timeout.Seconds()}))
		emit(copilot.MessageChunk(fmt.Sprintf(
			"\n\n**Execution timed out after %.0f seconds.**", r.cfg.Timeout.Seconds())))
	}

	stderrMu.Lock()
	stderrText := stderrBuf.String()
	stderrMu.Unlock()

	if stderrText != "" {
		log.Printf("[relay] run=%s stderr: %s", runID, truncate(stderrText, 500))

		kind, label := copilot.StatusWarning, "Warning"
		if exitCode != 0 {
			kind, label = copilot.StatusError, "Error"
		}
		emit(copilot.ReasoningStep(kind, "Agent CLI stderr output",
			map[string]any{"stderr": truncate(stderrText, 1000)}))
		emit(copilot.MessageChunk(fmt.Sprintf(
			"\n\n**%s:**\n```\n%s\n```\n", label, truncate(stderrText, 2000))))
	}

	if exitCode == 0 {
		emit(copilot.ReasoningStep(copilot.StatusInfo, "Agent execution completed",
			map[string]any{"exit_code": exitCode}))
	} else {
		procErr := &ProcessError{ExitCode: exitCode, Stderr: stderrText, Err: exitErr}
		log.Printf("[relay] run=%s failed: %v", runID, procErr)
		emit(copilot.ReasoningStep(copilot.StatusError, "Agent execution failed",
			map[string]any{"exit_code": exitCode}))
		emit(copilot.MessageChunk(fmt.Sprintf(
			"\n\n**Agent exited with code %d.**\n", exitCode)))
	}
}
