package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/seismic-review-service/internal/config"
)

// NewLogger returns the process logger and makes it the slog default.
// Headless processes use the shared service logger on stdout. With the
// operator console attached, stdout belongs to the prompt, so records go to
// stderr with the same level and format rules.
func NewLogger(cfg *config.Config, console bool) *slog.Logger {
	if !console {
		return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelOf(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// levelOf accepts slog level names plus "warning"; anything else is info.
func levelOf(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
