package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/hellopos/internal/cache"
)

// Mem implementa cache.Client sobre go-cache. Los valores se copian al entrar y salir.
type Mem struct {
	c      *gocache.Cache
	prefix string
}

// New crea un cache en memoria. defaultTTL <= 0 usa 2 horas.
func New(defaultTTL time.Duration, prefix string) *Mem {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Hour
	}
	return &Mem{c: gocache.New(defaultTTL, time.Minute), prefix: prefix}
}

func (m *Mem) Get(ctx context.Context, k string) ([]byte, error) {
	v, ok := m.c.Get(cache.PrefixKey(m.prefix, k))
	if !ok {
		return nil, cache.ErrNotFound
	}
	b, _ := v.([]byte)
	return append([]byte(nil), b...), nil
}

func (m *Mem) Put(ctx context.Context, k string, v []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(cache.PrefixKey(m.prefix, k), append([]byte(nil), v...), ttl)
	return nil
}

func (m *Mem) Remove(ctx context.Context, k string) error {
	m.c.Delete(cache.PrefixKey(m.prefix, k))
	return nil
}

func (m *Mem) Ping(ctx context.Context) error { return nil }

func (m *Mem) Close() error {
	m.c.Flush()
	return nil
}

// Len cantidad de items (incluye expirados aún no barridos).
func (m *Mem) Len() int { return m.c.ItemCount() }

var _ cache.Client = (*Mem)(nil)
