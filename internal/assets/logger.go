package assets

import (
	"log/slog"

	"github.com/nycsi/renderer/internal/logging"
)

var logger logging.Var

// SetLogger sets the logger for asset loading. Nil disables logging.
func SetLogger(l *slog.Logger) {
	logger.Set(l)
}

func Logger() *slog.Logger {
	return logger.Get()
}
