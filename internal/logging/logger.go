package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"iot-telemetry-api/config"
)

// New builds the process logger from the log section of the config.
// JSON is the default format; "text" is meant for local development.
func New(cfg config.LogConfig, version string) *slog.Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}
	return newLogger(output, cfg, version)
}

func newLogger(output io.Writer, cfg config.LogConfig, version string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", "iotapid"),
		slog.String("version", version),
	}))
}

// ParseLevel converts a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
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
