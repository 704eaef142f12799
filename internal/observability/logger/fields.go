package logger

import (
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }

// ---- Catálogo ----

// Code código de producto escaneado.
func Code(v string) zap.Field { return zap.String("code", v) }

// Tier nombre del tier (in_process, ephemeral, durable_mirror, snapshot, source).
func Tier(v string) zap.Field { return zap.String("tier", v) }

// Fingerprint acepta cualquier Stringer para no importar catalog desde acá.
func Fingerprint(v interface{ String() string }) zap.Field {
	return zap.Stringer("fingerprint", v)
}

func Records(v int) zap.Field { return zap.Int("records", v) }
func Sheet(v string) zap.Field { return zap.String("sheet", v) }
func Row(v int) zap.Field      { return zap.Int("row", v) }
func Column(v int) zap.Field   { return zap.Int("column", v) }

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }
func Key(v string) zap.Field       { return zap.String("key", v) }

// Duration duración como ms enteros (más fácil de agregar en prod).
func Duration(v time.Duration) zap.Field { return zap.Int64("duration_ms", v.Milliseconds()) }

// ---- Genéricos ----

func String(key, v string) zap.Field  { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
