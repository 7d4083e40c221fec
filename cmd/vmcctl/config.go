package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/wagiedev/vmcctl/internal/config"
)

// loadConfig layers the configuration: defaults, then the TOML file (if
// any), then .env files, then VMCCTL_* environment variables.
func loadConfig(path string, envFiles []string) (config.File, error) {
	cfg := config.DefaultFile()

	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return config.File{}, err
		}

		cfg = loaded
	}

	if err := config.LoadDotEnv(envFiles...); err != nil {
		return config.File{}, err
	}

	return config.ApplyEnv(cfg)
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)

	return nil
}
