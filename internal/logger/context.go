package logger

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// ContextWithLogger returns ctx carrying l. Request middleware uses it to
// hand a request-scoped logger to use cases.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContextOr returns the logger stored in ctx, or def when there is none.
func FromContextOr(ctx context.Context, def *zap.Logger) *zap.Logger {
	l, _ := ctx.Value(loggerKey{}).(*zap.Logger)
	if l == nil {
		return def
	}
	return l
}

// FromContext is FromContextOr with a no-op fallback.
func FromContext(ctx context.Context) *zap.Logger {
	return FromContextOr(ctx, zap.NewNop())
}

// With returns ctx whose logger (or def) carries fields. Long operations use it
// so every line they log shares the same context.
func With(ctx context.Context, def *zap.Logger, fields ...zap.Field) context.Context {
	return ContextWithLogger(ctx, FromContextOr(ctx, def).With(fields...))
}
