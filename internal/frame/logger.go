package frame

import (
	"log/slog"

	"github.com/nycsi/renderer/internal/logging"
)

var logger logging.Var

// SetLogger sets the logger for swapchain lifecycle events. Nil restores the
// silent default.
func SetLogger(l *slog.Logger) {
	logger.Set(l)
}

func Logger() *slog.Logger {
	return logger.Get()
}
