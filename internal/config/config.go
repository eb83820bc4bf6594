package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the service reads.
type Config struct {
	Server ServerConfig
	Agent  AgentConfig
	Grid   GridConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	grid, err := loadGridConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Agent: agent, Grid: grid}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "7778"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		// Accept ":7778" and "127.0.0.1:7778" as-is.
		addr = ":" + port
	}

	origins := []string{"*"}
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return ServerConfig{Addr: addr, AllowedOrigins: origins}, nil
}

// AgentConfig describes the CLI agent bridge: where the external tool
// lives, where it runs, and where session debug state is written.
type AgentConfig struct {
	// Explicit path to the CLI binary. Empty means discover it.
	Binary string

	// Workspace the CLI runs in. App skills are expected under its
	// .claude directory.
	TargetRepoPath string

	// Directory session debug dumps are written to. Relative paths are
	// resolved against the target repo when one is configured.
	SessionDir string

	Timeout         time.Duration
	SkipPermissions bool
}

func loadAgentConfig() (AgentConfig, error) {
	skip, err := parseBoolEnv("AGENT_SKIP_PERMISSIONS", true)
	if err != nil {
		return AgentConfig{}, err
	}

	timeoutSec := 600
	if override, err := parseOptionalIntEnv("AGENT_CLI_TIMEOUT"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AgentConfig{}, fmt.Errorf("AGENT_CLI_TIMEOUT must be positive, got %d", *override)
		}
		timeoutSec = *override
	}

	return AgentConfig{
		Binary:          strings.TrimSpace(os.Getenv("AGENT_CLI_BINARY")),
		TargetRepoPath:  strings.TrimSpace(os.Getenv("AGENT_TARGET_REPO")),
		SessionDir:      getEnvOrDefault("AGENT_SESSION_DIR", ".agent_sessions"),
		Timeout:         time.Duration(timeoutSec) * time.Second,
		SkipPermissions: skip,
	}, nil
}

// ResolvedTargetRepo returns the absolute target repo path, or false when
// it is unset or does not exist.
func (c AgentConfig) ResolvedTargetRepo() (string, bool) {
	if c.TargetRepoPath == "" {
		return "", false
	}

	path := c.TargetRepoPath
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(abs); err != nil {
		return "", false
	}
	return abs, true
}

// ResolvedSessionDir returns the directory session state is persisted to.
func (c AgentConfig) ResolvedSessionDir() string {
	if filepath.IsAbs(c.SessionDir) {
		return c.SessionDir
	}
	if repo, ok := c.ResolvedTargetRepo(); ok {
		return filepath.Join(repo, c.SessionDir)
	}
	abs, err := filepath.Abs(c.SessionDir)
	if err != nil {
		return c.SessionDir
	}
	return abs
}

// CheckTargetRepo reports whether the configured target repo exists, with
// a human-readable status message for /health and startup logs.
func (c AgentConfig) CheckTargetRepo() (bool, string) {
	if c.TargetRepoPath == "" {
		return false, "target repo not configured (set AGENT_TARGET_REPO)"
	}

	path, ok := c.ResolvedTargetRepo()
	if !ok {
		return false, fmt.Sprintf("target repo not found at: %s", c.TargetRepoPath)
	}

	if _, err := os.Stat(filepath.Join(path, ".claude")); err == nil {
		return true, fmt.Sprintf("target repo found at: %s (with .claude skills)", path)
	}
	return true, fmt.Sprintf("target repo found at: %s (no .claude directory)", path)
}

// GridConfig describes the live grid feed and the on-disk apps file.
type GridConfig struct {
	TickInterval time.Duration
	AppsFile     string
}

func loadGridConfig() (GridConfig, error) {
	tickMs := 600
	if override, err := parseOptionalIntEnv("GRID_TICK_MS"); err != nil {
		return GridConfig{}, err
	} else if override != nil {
		if *override < 50 {
			tickMs = 50
		} else {
			tickMs = *override
		}
	}

	return GridConfig{
		TickInterval: time.Duration(tickMs) * time.Millisecond,
		AppsFile:     getEnvOrDefault("APPS_FILE", "apps.json"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
