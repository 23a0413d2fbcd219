package config

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

func NewLogger(env string) *slog.Logger {
	return NewLoggerWithFile(env, "")
}

// NewLoggerWithFile behaves like NewLogger and, when path is set, also
// writes every record to a size-rotated log file.
func NewLoggerWithFile(env, path string) *slog.Logger {
	var out io.Writer = os.Stdout
	if path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	return slog.New(newHandler(env, out))
}

func newHandler(env string, out io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = slog.LevelInfo
		return slog.NewJSONHandler(out, opts)
	}

	opts.Level = slog.LevelDebug
	return slog.NewTextHandler(out, opts)
}
