// Package lemonlog configures the process-wide slog logger.
package lemonlog

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var initOnce sync.Once

// Init configures slog based on the LOG_LEVEL environment variable.
// Supported levels: debug, info, warn, error. Defaults to info.
func Init() {
	initOnce.Do(func() {
		level := slog.LevelInfo
		if raw, ok := os.LookupEnv("LOG_LEVEL"); ok {
			switch strings.ToLower(raw) {
			case "debug":
				level = slog.LevelDebug
			case "info":
				level = slog.LevelInfo
			case "warn":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			}
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
	})
}

// Debug returns whether the effective level allows debug-level records,
// used to gate the tokenizer trace builder (SPEC_FULL.md C.1).
func Debug() bool {
	return slog.Default().Enabled(nil, slog.LevelDebug)
}
