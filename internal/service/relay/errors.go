package relay

import (
	"fmt"
	"strings"
)

// CLINotFoundError indicates the agent CLI binary could not be located.
type CLINotFoundError struct {
	SearchedPaths []string
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("agent CLI not found (searched: %s)", strings.Join(e.SearchedPaths, ", "))
}

// ProcessError indicates the CLI process exited with a failure.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("agent CLI exited with code %d", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
