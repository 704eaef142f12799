// Package app arma la aplicación completa a partir de config.Config: stores,
// tier efímero, cola de background, resolver, adapter de escaneo y router HTTP.
// Lo usan tanto "serve" como los comandos de mantenimiento del CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/hellopos/internal/background"
	"github.com/dropDatabas3/hellopos/internal/cache"
	credis "github.com/dropDatabas3/hellopos/internal/cache/redis"
	"github.com/dropDatabas3/hellopos/internal/catalog"
	"github.com/dropDatabas3/hellopos/internal/config"
	"github.com/dropDatabas3/hellopos/internal/http/handlers"
	"github.com/dropDatabas3/hellopos/internal/http/router"
	"github.com/dropDatabas3/hellopos/internal/infra/cachefactory"
	"github.com/dropDatabas3/hellopos/internal/infra/storefactory"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
	"github.com/dropDatabas3/hellopos/internal/pos"
	"github.com/dropDatabas3/hellopos/internal/rate"
	"github.com/dropDatabas3/hellopos/internal/resolver"
	spg "github.com/dropDatabas3/hellopos/internal/sheet/pg"
	"github.com/dropDatabas3/hellopos/internal/snapshot"
)

// App contenedor de todo lo cableado.
type App struct {
	Config    *config.Config
	Stores    *storefactory.Stores
	Ephemeral cache.Client
	Queue     *background.Queue
	Resolver  *resolver.Resolver
	POS       *pos.Handler
}

// Options ajustes que no vienen del YAML.
type Options struct {
	// Gatherer para /metrics (nil = default).
	Gatherer prometheus.Gatherer
}

// New abre todo. Ante error cierra lo que alcanzó a abrir.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.Stores, err = storefactory.Open(ctx, StoreConfig(cfg))
	if err != nil {
		return nil, err
	}

	a.Ephemeral, err = cachefactory.Open(ctx, cache.Config{
		Driver:     cfg.Cache.Driver,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Prefix,
		DefaultTTL: cfg.Cache.EphemeralStoreTTL.D(),
	})
	switch {
	case errors.Is(err, cache.ErrUnavailable):
		// el tier es opcional: sin él los lookups siguen por mirror, snapshot o fuente
		logger.Named("app").Warn("ephemeral tier unavailable, starting without it", logger.Err(err))
		a.Ephemeral = nil
	case err != nil:
		a.Ephemeral = nil
		return nil, fmt.Errorf("app: ephemeral tier: %w", err)
	}

	if cfg.Snapshot.Async {
		a.Queue = background.New(background.Config{
			Size:    cfg.Background.QueueSize,
			Timeout: cfg.Background.TaskTimeout.D(),
		})
	}

	products, err := a.Stores.Workbook.Sheet(ctx, cfg.Source.ProductsSheet)
	if err != nil {
		return nil, fmt.Errorf("app: products sheet %q: %w", cfg.Source.ProductsSheet, err)
	}
	a.Resolver, err = resolver.New(ResolverConfig(cfg), resolver.Deps{
		Source:    products,
		Ephemeral: a.Ephemeral,
		Snapshot:  a.Stores.Snapshot,
		Queue:     a.Queue,
	})
	if err != nil {
		return nil, err
	}

	pc := pos.DefaultConfig()
	pc.PurchasesSheet = cfg.POS.PurchasesSheet
	pc.SalesSheet = cfg.POS.SalesSheet
	pc.NotFoundMarker = cfg.POS.NotFoundMarker
	a.POS = pos.New(pc, a.Stores.Workbook, a.Resolver)

	logger.Named("app").Info("app wired",
		logger.String("source", cfg.Source.Driver),
		logger.String("ephemeral", cfg.Cache.Driver),
		logger.String("snapshot", cfg.Snapshot.Driver),
		logger.Bool("async_snapshot_writes", cfg.Snapshot.Async))
	return a, nil
}

// Handler router HTTP completo.
func (a *App) Handler(opts Options) http.Handler {
	products := a.Config.Source.ProductsSheet
	checks := []handlers.Check{
		{Name: "source", Fn: func(ctx context.Context) error {
			t, err := a.Stores.Workbook.Sheet(ctx, products)
			if err != nil {
				return err
			}
			_, err = t.RowCount(ctx)
			return err
		}},
	}
	if a.Ephemeral != nil {
		// los tiers degradan a miss: su caída no impide atender
		checks = append(checks, handlers.Check{Name: "ephemeral", Optional: true, Fn: a.Ephemeral.Ping})
	}
	return router.New(router.Deps{
		Catalog:     a.Resolver,
		Scanner:     a.POS,
		Checks:      checks,
		AdminKey:    a.Config.Server.AdminKey,
		RateLimiter: a.limiter(),
		TrustProxy:  a.Config.Server.TrustProxy,
		Gatherer:    opts.Gatherer,
	})
}

// limiter usa Redis si el tier efímero ya es Redis, así el límite se comparte entre réplicas.
func (a *App) limiter() rate.Limiter {
	rl := a.Config.Server.RateLimit
	if rl.Requests <= 0 {
		return nil
	}
	if rc, ok := a.Ephemeral.(*credis.Cache); ok {
		return rate.NewRedisLimiter(rc.Client(), cache.PrefixKey(a.Config.Cache.Prefix, "rl:"), rl.Requests, rl.Window.D())
	}
	return rate.NewMemoryLimiter(rl.Requests, rl.Window.D())
}

// Close espera las escrituras diferidas y cierra en orden inverso.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close(ctx))
	}
	if a.Ephemeral != nil {
		errs = append(errs, a.Ephemeral.Close())
	}
	if a.Stores != nil {
		errs = append(errs, a.Stores.Close())
	}
	return errors.Join(errs...)
}

// ResolverConfig traduce las secciones cache y layout del YAML.
func ResolverConfig(cfg *config.Config) resolver.Config {
	l := cfg.Layout
	return resolver.Config{
		Layout: catalog.Layout{
			HeaderRows:  l.HeaderRows,
			CodeColumn:  l.CodeColumn,
			NameColumn:  l.NameColumn,
			PriceColumn: l.PriceColumn,
			Width:       l.Width,
			SampleWidth: l.SampleWidth,
			DefaultName: l.DefaultName,
		},
		InProcessTTL:        cfg.Cache.InProcessTTL.D(),
		EphemeralTTL:        cfg.Cache.EphemeralTTL.D(),
		EphemeralStoreTTL:   cfg.Cache.EphemeralStoreTTL.D(),
		EphemeralKey:        cfg.Cache.Key,
		AsyncSnapshotWrites: cfg.Snapshot.Async,
	}
}

// StoreConfig traduce las secciones source y snapshot del YAML.
func StoreConfig(cfg *config.Config) storefactory.Config {
	s, sn := cfg.Source, cfg.Snapshot
	return storefactory.Config{
		Source: storefactory.SourceConfig{
			Driver: s.Driver,
			Path:   s.Path,
			DSN:    s.DSN,
			Pool: spg.PoolConfig{
				MaxConns:        s.Postgres.MaxConns,
				MinConns:        s.Postgres.MinConns,
				ConnMaxLifetime: s.Postgres.ConnMaxLifetime.D(),
			},
			RPS:   s.RateLimit.RPS,
			Burst: s.RateLimit.Burst,
		},
		Snapshot: snapshot.Config{
			Driver: sn.Driver,
			Name:   sn.Name,
			Path:   sn.Path,
			DSN:    sn.DSN,
			S3: snapshot.S3Config{
				Bucket:          sn.S3.Bucket,
				Region:          sn.S3.Region,
				Endpoint:        sn.S3.Endpoint,
				Prefix:          sn.S3.Prefix,
				AccessKeyID:     sn.S3.AccessKeyID,
				SecretAccessKey: sn.S3.SecretAccessKey,
				PathStyle:       sn.S3.PathStyle,
			},
		},
	}
}
