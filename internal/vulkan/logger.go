package vulkan

import (
	"log/slog"

	"github.com/nycsi/renderer/internal/logging"
)

var logger logging.Var

// SetLogger routes device setup and validation messages to l.
func SetLogger(l *slog.Logger) {
	logger.Set(l)
}

func Logger() *slog.Logger {
	return logger.Get()
}
