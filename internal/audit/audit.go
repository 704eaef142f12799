// Package audit registra las operaciones de mantenimiento sobre los caches.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellopos/internal/observability/logger"
)

// Eventos conocidos.
const (
	EventInvalidate = "cache.invalidate"
	EventRefresh    = "cache.refresh"
	EventPreload    = "cache.preload"
)

// originKey origen de la operación ("http", "cli").
type originKey struct{}

// WithOrigin marca el contexto con el origen de la operación.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

func origin(ctx context.Context) string {
	if v, ok := ctx.Value(originKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// Log escribe un evento de auditoría con el logger del contexto. err != nil lo baja a Warn.
func Log(ctx context.Context, event string, err error, fields ...zap.Field) {
	l := logger.From(ctx).Named("audit")
	fs := make([]zap.Field, 0, len(fields)+3)
	fs = append(fs, zap.String("event", event), zap.String("origin", origin(ctx)))
	fs = append(fs, fields...)
	if err != nil {
		l.Warn("maintenance failed", append(fs, logger.Err(err))...)
		return
	}
	l.Info("maintenance done", fs...)
}
