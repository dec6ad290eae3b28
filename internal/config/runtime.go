package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Runtime holds process settings read from the environment. League rules
// live in the YAML file; these only affect how the engine runs.
type Runtime struct {
	DBPath        string        `env:"GRIDIRON_DB_PATH" envDefault:"gridiron.db"`
	LogLevel      string        `env:"GRIDIRON_LOG_LEVEL" envDefault:"info"`
	WorkerTimeout time.Duration `env:"GRIDIRON_WORKER_TIMEOUT" envDefault:"30s"`
	Attempts      int           `env:"GRIDIRON_ATTEMPTS" envDefault:"50"`
}

// LoadRuntime parses the environment into a Runtime.
func LoadRuntime() (Runtime, error) {
	var rt Runtime
	if err := env.Parse(&rt); err != nil {
		return Runtime{}, fmt.Errorf("parse env: %w", err)
	}
	if rt.Attempts <= 0 {
		return Runtime{}, fmt.Errorf("GRIDIRON_ATTEMPTS must be positive, got %d", rt.Attempts)
	}
	return rt, nil
}

// Level maps LogLevel onto a slog level, defaulting to info.
func (r Runtime) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(r.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
