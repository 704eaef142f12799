package cachefactory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellopos/internal/cache"
	cmem "github.com/dropDatabas3/hellopos/internal/cache/memory"
	credis "github.com/dropDatabas3/hellopos/internal/cache/redis"
)

// Open construye el cliente del tier efímero según cfg.Driver.
func Open(ctx context.Context, cfg cache.Config) (cache.Client, error) {
	switch strings.ToLower(cfg.Driver) {
	case "redis":
		return credis.New(ctx, cfg)
	case "memory", "":
		d := cfg.DefaultTTL
		if d == 0 {
			d = 2 * time.Hour
		}
		return cmem.New(d, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("cachefactory: unknown driver %q", cfg.Driver)
	}
}
