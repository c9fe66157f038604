package pipeline

import (
	"log/slog"

	"github.com/nycsi/renderer/internal/logging"
)

var logger logging.Var

// SetLogger sets the logger for shader loading and pipeline cache
// messages. Nil restores the silent default.
func SetLogger(l *slog.Logger) {
	logger.Set(l)
}

func Logger() *slog.Logger {
	return logger.Get()
}
