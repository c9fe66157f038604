package app

import (
	"log/slog"

	"github.com/nycsi/renderer/internal/logging"
)

var logger logging.Var

// SetLogger sets the logger for renderer startup and shutdown.
func SetLogger(l *slog.Logger) {
	logger.Set(l)
}

func Logger() *slog.Logger {
	return logger.Get()
}
