package domain

import (
	"context"
)

// Logger is the structured logging contract used throughout the service.
// The context carries the request ID each record is tagged with, so every
// method takes one first. Fields are alternating key/value pairs, kept as
// `any` so the interface stays agnostic of the zap backend.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // exits the process after logging

	// With returns a child logger that carries the given fields on every record.
	With(fields ...any) Logger
}
