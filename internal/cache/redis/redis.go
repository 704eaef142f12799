package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/hellopos/internal/cache"
)

// Cache implementa cache.Client sobre Redis.
type Cache struct {
	c          *rdb.Client
	prefix     string
	defaultTTL time.Duration
}

// New crea el cliente y verifica la conexión con un ping acotado.
func New(ctx context.Context, cfg cache.Config) (*Cache, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	c := rdb.NewClient(&rdb.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", cache.ErrUnavailable, err)
	}
	return Wrap(c, cfg.Prefix, cfg.DefaultTTL), nil
}

// Wrap usa un cliente ya construido.
func Wrap(c *rdb.Client, prefix string, defaultTTL time.Duration) *Cache {
	return &Cache{c: c, prefix: prefix, defaultTTL: defaultTTL}
}

// Client expone el cliente (lo comparte el rate limiter).
func (r *Cache) Client() *rdb.Client { return r.c }

func (r *Cache) Get(ctx context.Context, k string) ([]byte, error) {
	b, err := r.c.Get(ctx, cache.PrefixKey(r.prefix, k)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return b, nil
}

func (r *Cache) Put(ctx context.Context, k string, v []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.c.Set(ctx, cache.PrefixKey(r.prefix, k), v, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (r *Cache) Remove(ctx context.Context, k string) error {
	if err := r.c.Del(ctx, cache.PrefixKey(r.prefix, k)).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }

var _ cache.Client = (*Cache)(nil)
