// Package logging provides a context-scoped zerolog.Logger for
// structured logging throughout the fragmentation layer.
package logging

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

var ctxLoggerKey = ctxKey{}

// Default is the package-level fallback logger, used whenever a context
// carries none.
var Default = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

// Into returns a new context carrying l.
func Into(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, l)
}

// FromContext returns the logger carried by ctx, or Default if none.
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxLoggerKey).(zerolog.Logger); ok {
		return l
	}
	return Default
}
