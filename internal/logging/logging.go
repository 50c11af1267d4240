// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"statboard/internal/config"
)

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs the default slog logger. Output goes to stdout and, when
// cfg.File is set and can be opened, to that file as well. The returned
// closer releases the file and is never nil.
func Setup(cfg config.LogConfig) io.Closer {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	var fileErr error
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fileErr = err
		} else {
			out = io.MultiWriter(os.Stdout, f)
			closer = f
		}
	}

	slog.SetDefault(New(out, cfg.Level))

	if fileErr != nil {
		slog.Error("Persistent logging disabled: failed to open log file", "file", cfg.File, "err", fileErr)
	} else if cfg.File != "" {
		slog.Info("Persistent logging enabled", "file", cfg.File)
	}
	return closer
}

// New builds a text logger tagged with the application name.
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler).With("app", "statboard")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
