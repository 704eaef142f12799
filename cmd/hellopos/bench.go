package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellopos/internal/app"
	"github.com/dropDatabas3/hellopos/internal/resolver"
)

type phase struct {
	Name  string            `json:"name"`
	N     int               `json:"n"`
	Avg   time.Duration     `json:"avg_ns"`
	P50   time.Duration     `json:"p50_ns"`
	Max   time.Duration     `json:"max_ns"`
	Tiers map[string]uint64 `json:"tiers"`
}

type benchReport struct {
	Code   string  `json:"code"`
	Phases []phase `json:"phases"`
}

func (b benchReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "code %s\n", b.Code)
	for _, p := range b.Phases {
		fmt.Fprintf(&sb, "%-12s n=%-5d avg=%-12s p50=%-12s max=%-12s %v\n", p.Name, p.N, p.Avg, p.P50, p.Max, p.Tiers)
	}
	return sb.String()
}

func benchCmd(g *globals) *cobra.Command {
	var (
		n    int
		code string
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Mide la latencia de lookup por tier (source, in-process, efímero, snapshot)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return errors.New("--n must be >= 1")
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rep, err := runBench(ctx, a, code, n)
				if err != nil {
					return err
				}
				return g.print(rep)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 100, "Lookups por fase")
	cmd.Flags().StringVar(&code, "code", "", "Código a buscar (default: uno cualquiera del catálogo)")
	return cmd
}

func runBench(ctx context.Context, a *app.App, code string, n int) (benchReport, error) {
	r := a.Resolver
	shared := func() *resolver.Resolver { return r }

	// fase source: todo frío. Sin --code se mide un Preload.
	if err := r.InvalidateAll(ctx); err != nil {
		return benchReport{}, err
	}
	op := lookupOp(code)
	if code == "" {
		op = func(ctx context.Context, r *resolver.Resolver) error {
			_, err := r.Preload(ctx)
			return err
		}
	}
	first, err := measure(ctx, 1, shared, op)
	if err != nil {
		return benchReport{}, err
	}
	first.Name = "source"
	if err := r.Flush(ctx); err != nil {
		return benchReport{}, err
	}

	if code == "" {
		snap := r.State().InProcess.Snapshot
		if snap == nil || snap.Len() == 0 {
			return benchReport{}, errors.New("catalog is empty, pass --code")
		}
		codes := slices.Sorted(maps.Keys(snap.Records))
		code = codes[0]
	}
	rep := benchReport{Code: code, Phases: []phase{first}}
	op = lookupOp(code)

	warm, err := measure(ctx, n, shared, op)
	if err != nil {
		return rep, err
	}
	warm.Name = "in_process"
	rep.Phases = append(rep.Phases, warm)

	products, err := a.Stores.Workbook.Sheet(ctx, a.Config.Source.ProductsSheet)
	if err != nil {
		return rep, err
	}
	rcfg := app.ResolverConfig(a.Config)
	fresh := func(d resolver.Deps) func() *resolver.Resolver {
		return func() *resolver.Resolver {
			// proceso nuevo: sin in-process ni espejo durable
			nr, err := resolver.New(rcfg, d)
			if err != nil {
				panic(err) // misma config que ya validó app.New
			}
			return nr
		}
	}
	if a.Ephemeral != nil {
		eph, err := measure(ctx, n, fresh(resolver.Deps{Source: products, Ephemeral: a.Ephemeral, Snapshot: a.Stores.Snapshot}), op)
		if err != nil {
			return rep, err
		}
		eph.Name = "ephemeral"
		rep.Phases = append(rep.Phases, eph)
	}
	if a.Stores.Snapshot != nil {
		sn, err := measure(ctx, n, fresh(resolver.Deps{Source: products, Snapshot: a.Stores.Snapshot}), op)
		if err != nil {
			return rep, err
		}
		sn.Name = "snapshot"
		rep.Phases = append(rep.Phases, sn)
	}
	return rep, nil
}

type benchOp func(ctx context.Context, r *resolver.Resolver) error

func lookupOp(code string) benchOp {
	return func(ctx context.Context, r *resolver.Resolver) error {
		_, _, err := r.Lookup(ctx, code)
		return err
	}
}

// measure corre op n veces; next devuelve el resolver de cada iteración.
func measure(ctx context.Context, n int, next func() *resolver.Resolver, op benchOp) (phase, error) {
	p := phase{N: n, Tiers: map[string]uint64{}}
	durs := make([]time.Duration, 0, n)
	var total time.Duration
	for i := 0; i < n; i++ {
		r := next()
		before := r.Hits()
		start := time.Now()
		if err := op(ctx, r); err != nil {
			return p, err
		}
		d := time.Since(start)
		durs = append(durs, d)
		total += d
		for t, h := range r.Hits() {
			if delta := h - before[t]; delta > 0 {
				p.Tiers[string(t)] += delta
			}
		}
	}
	slices.Sort(durs)
	p.Avg = total / time.Duration(n)
	p.P50 = durs[len(durs)/2]
	p.Max = durs[len(durs)-1]
	return p, nil
}
