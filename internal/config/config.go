// Package config reads process configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds everything the daemon needs to start.
type Config struct {
	// Addr is the listen address for the operational HTTP server.
	Addr string
	// DatabaseURL selects the Postgres store when set; empty means in-memory.
	DatabaseURL string
	// DevSeed loads a small development tenant on startup.
	DevSeed bool
	// AuditBuffer is the audit worker's channel capacity.
	AuditBuffer int

	LogLevel  slog.Leveler
	LogFormat string
}

// FromEnv builds a Config from the process environment, applying defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:        ":9090",
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DevSeed:     boolEnv(os.Getenv("DEV_SEED")),
		AuditBuffer: 256,
		LogLevel:    parseLogLevel(os.Getenv("LOG_LEVEL")),
		LogFormat:   strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
	}
	if addr := strings.TrimSpace(os.Getenv("OPS_ADDR")); addr != "" {
		cfg.Addr = addr
	}
	if raw := strings.TrimSpace(os.Getenv("AUDIT_BUFFER")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.AuditBuffer = n
		}
	}
	return cfg
}

// Logger builds the process logger. Level via LOG_LEVEL; format via
// LOG_FORMAT (json|text, default json).
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func boolEnv(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
