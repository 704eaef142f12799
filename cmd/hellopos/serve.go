package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellopos/internal/app"
	"github.com/dropDatabas3/hellopos/internal/metrics"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
)

func serveCmd(g *globals) *cobra.Command {
	var (
		addr    string
		preload bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := logger.Named("serve")
			if cfg.Server.AdminKey == "" {
				log.Warn("admin key not set, maintenance routes are open")
			}

			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return err
			}
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.D())
				defer cancel()
				if err := a.Close(sctx); err != nil {
					log.Warn("close failed", logger.Err(err))
				}
			}()

			if preload {
				// la fuente caída no impide arrancar: el primer lookup reintenta
				if res, err := a.Resolver.Preload(ctx); err != nil {
					log.Warn("preload failed", logger.Err(err))
				} else {
					log.Info("catalog preloaded",
						logger.Tier(string(res.Tier)),
						logger.Records(res.Records),
						logger.Fingerprint(res.Fingerprint))
				}
			}

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           a.Handler(app.Options{}),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       cfg.Server.ReadTimeout.D(),
				WriteTimeout:      cfg.Server.WriteTimeout.D(),
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", logger.String("addr", cfg.Server.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			log.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.D())
			defer cancel()
			return srv.Shutdown(sctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Dirección de escucha (pisa server.addr)")
	cmd.Flags().BoolVar(&preload, "preload", true, "Calentar los tiers al arrancar")
	return cmd
}
