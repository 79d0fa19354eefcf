// Package logging configures structured JSON logging for the pipeline and the
// daemon built on it.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures slog to emit structured JSON to w and returns the logger.
// All lines carry the service name; level names are uppercased for log
// aggregation parity with the rest of the stack.
func Setup(service string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.LevelKey {
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			}
			return attr
		},
	})

	base := slog.New(handler).With(slog.String("service", strings.TrimSpace(service)))
	slog.SetDefault(base)

	// Bridge the standard library logger so dependencies keep working.
	stdBridge := slog.NewLogLogger(handler, slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)

	return base
}

// RotatingWriter returns a size-rotated log file writer for daemon use.
func RotatingWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64, // MiB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
}
