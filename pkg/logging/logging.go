package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// New returns a slog.Logger writing to w with the provided level string
// (debug, info, warn, error). format may be "json" or "text". A nil w means
// stderr so command output on stdout stays clean.
func New(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// LogGeotag logs a completed geotag write.
func LogGeotag(logger *slog.Logger, source string, lat, lon float64, bytesIn, bytesOut int, duration time.Duration) {
	logger.Info("geotag written",
		"source", source,
		"lat", lat,
		"lon", lon,
		"bytes_in", bytesIn,
		"bytes_out", bytesOut,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogOperationError logs a failed codec operation.
func LogOperationError(logger *slog.Logger, op, source string, err error) {
	logger.Error("operation failed",
		"op", op,
		"source", source,
		"error", err.Error(),
	)
}
