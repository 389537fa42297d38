package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for file logs.
const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// NewTextLogger returns a text logger. When path is set, output goes to a
// size-rotated file; otherwise it goes to fallback.
func NewTextLogger(path string, level slog.Level, fallback io.Writer) *SlogLogger {
	w := fallback
	if path != "" {
		w = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		}
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return NewSlogLogger(slog.New(h))
}
