// Package log holds the logger used by the SDK packages.
package log

import (
	"log/slog"
	"os"
)

// Logger defines slog logger and can be adapted to external log
var Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	AddSource: true,
	Level:     slog.LevelInfo,
}).WithGroup("walltime.sdk"))
