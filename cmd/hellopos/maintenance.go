package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellopos/internal/app"
	"github.com/dropDatabas3/hellopos/internal/audit"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
)

var errCheckFailed = errors.New("integrity check reported issues")

func lookupCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <code>...",
		Short: "Resuelve uno o más códigos de barras",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				type result struct {
					Code  string  `json:"code"`
					Found bool    `json:"found"`
					Name  string  `json:"name,omitempty"`
					Price float64 `json:"price,omitempty"`
				}
				out := make([]result, 0, len(args))
				for _, code := range args {
					rec, ok, err := a.Resolver.Lookup(ctx, code)
					if err != nil {
						return err
					}
					out = append(out, result{Code: code, Found: ok, Name: rec.Name, Price: rec.Price})
				}
				if g.out == "json" {
					return g.print(out)
				}
				for _, r := range out {
					if r.Found {
						fmt.Printf("%s\t%s\t%g\n", r.Code, r.Name, r.Price)
					} else {
						fmt.Printf("%s\tnot found\n", r.Code)
					}
				}
				return nil
			})
		},
	}
}

func refreshCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reconstruye el índice desde la fuente y lo publica en todos los tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Resolver.Refresh(ctx)
				audit.Log(ctx, audit.EventRefresh, err, logger.Records(stats.Valid))
				if err != nil {
					return err
				}
				return g.print(stats)
			})
		},
	}
}

func invalidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Invalida todos los tiers de cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				err := a.Resolver.InvalidateAll(ctx)
				audit.Log(ctx, audit.EventInvalidate, err)
				if err != nil {
					return err
				}
				if g.out != "json" {
					fmt.Println("ok")
					return nil
				}
				return g.print(map[string]bool{"ok": true})
			})
		},
	}
}

func preloadCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "preload",
		Short: "Resuelve por el camino normal para dejar los tiers calientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Resolver.Preload(ctx)
				audit.Log(ctx, audit.EventPreload, err, logger.Records(res.Records))
				if err != nil {
					return err
				}
				return g.print(res)
			})
		},
	}
}

func statusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Muestra fingerprint de la fuente y el estado de cada tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return g.print(a.Resolver.Status(ctx))
			})
		},
	}
}

func checkCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Chequeo de integridad (sale con error si hay issues)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rep := a.Resolver.Check(ctx)
				if err := g.print(rep); err != nil {
					return err
				}
				if !rep.OK {
					return errCheckFailed
				}
				return nil
			})
		},
	}
}
