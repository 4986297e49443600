package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"hist-temps/internal/config"
)

// New builds the process logger. Text output goes through tint for humans at
// a terminal; json is meant for log shippers.
func New(w io.Writer, cfg config.LogConfig, version string, appName string) *slog.Logger {
	if cfg.Format == "json" {
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: cfg.Level,
		})
		return slog.New(h).With(
			"app", appName,
			"version", version,
		)
	}

	h := tint.NewHandler(w, &tint.Options{
		Level:      cfg.Level,
		AddSource:  cfg.Level == slog.LevelDebug,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	})
	return slog.New(h).With("app", appName)
}

// isTerminal reports whether w is a character device
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
