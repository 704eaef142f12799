// Package cache provee el tier efímero: un store compartido key -> bytes con TTL.
//
// Soporta:
//   - Memory (in-process, go-cache; para desarrollo/testing)
//   - Redis (compartido entre procesos, para producción)
//
// El resolver guarda ahí el payload serializado del catálogo bajo una sola key.
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones del tier efímero.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put guarda un valor con TTL. Si ttl es 0 usa el default del driver.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Remove elimina una key. Remover una key inexistente no es error.
	Remove(ctx context.Context, key string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Driver     string // "memory" | "redis"
	Addr       string
	Password   string
	DB         int
	Prefix     string        // Prefijo para todas las keys
	DefaultTTL time.Duration // usado cuando Put recibe ttl == 0
}

// ErrNotFound la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// ErrUnavailable el backend no respondió al conectar.
var ErrUnavailable = errors.New("cache: backend unavailable")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// PrefixKey arma la key final con el prefijo configurado.
func PrefixKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
