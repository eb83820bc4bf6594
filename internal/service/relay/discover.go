package relay

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const binaryName = "claude"

// Discover locates the agent CLI binary. An explicit path is used as-is
// when it exists; otherwise PATH is searched, then common install
// locations. Returns CLINotFoundError when nothing matches.
func Discover(explicitPath string) (string, error) {
	if explicitPath != "" {
		if isExecutable(explicitPath) {
			return explicitPath, nil
		}
		return "", &CLINotFoundError{SearchedPaths: []string{explicitPath}}
	}

	searched := []string{"$PATH"}
	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	common := []string{
		"/usr/local/bin/" + binaryName,
		"/opt/homebrew/bin/" + binaryName,
	}
	if home, err := os.UserHomeDir(); err == nil {
		common = append([]string{filepath.Join(home, ".claude", "bin", binaryName)}, common...)
	}

	for _, path := range common {
		searched = append(searched, path)
		if isExecutable(path) {
			return path, nil
		}
	}

	return "", &CLINotFoundError{SearchedPaths: searched}
}

// CheckInstalled reports whether the CLI is available, with a message
// suitable for /health and startup logs.
func CheckInstalled(explicitPath string) (bool, string) {
	path, err := Discover(explicitPath)
	if err != nil {
		return false, "agent CLI not found; install it or set AGENT_CLI_BINARY"
	}
	return true, fmt.Sprintf("agent CLI found at: %s", path)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
