// Package logging is the structured, context-aware logger used by the
// client and the server.
package logging

import "context"

// Logger takes a message followed by alternating keys and values:
//
//	log.Info(ctx, "push finished", "entity", "expenses", "pushed", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	// With returns a logger that adds args to every record.
	With(args ...any) Logger
}
