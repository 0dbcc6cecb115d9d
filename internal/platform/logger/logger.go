package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so audit log
// lines stay machine-parseable.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
