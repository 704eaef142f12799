// Command hellopos sirve el catálogo por HTTP y expone el mantenimiento de cache por CLI.
//
//	hellopos serve                  # API HTTP
//	hellopos lookup ABC123          # resuelve un código por los tiers
//	hellopos refresh|invalidate|preload|status|check
//	hellopos bench --n 200
//	hellopos import products productos.csv
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellopos/internal/app"
	"github.com/dropDatabas3/hellopos/internal/audit"
	"github.com/dropDatabas3/hellopos/internal/config"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
)

var version = "dev"

type globals struct {
	configPath string
	out        string // json | text
}

func main() {
	// .env opcional
	_ = godotenv.Load()

	g := &globals{
		configPath: envOr("HELLOPOS_CONFIG", ""),
		out:        envOr("HELLOPOS_OUT", "text"),
	}
	root := &cobra.Command{
		Use:           "hellopos",
		Short:         "Catálogo de productos con cache multi-tier para el punto de venta",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", g.configPath, "Archivo YAML de configuración (env HELLOPOS_CONFIG)")
	root.PersistentFlags().StringVar(&g.out, "out", g.out, "Formato de salida: json|text")

	root.AddCommand(
		serveCmd(g),
		lookupCmd(g),
		refreshCmd(g),
		invalidateCmd(g),
		preloadCmd(g),
		statusCmd(g),
		checkCmd(g),
		benchCmd(g),
		importCmd(g),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// load config + logger. El logger va a stderr salvo config: stdout queda para la salida.
func (g *globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		Output:      cfg.Log.Output,
		ServiceName: "hellopos",
		Version:     version,
	})
	return cfg, nil
}

// withApp arma la app, corre fn y la cierra (esperando escrituras diferidas).
func (g *globals) withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := fn(audit.WithOrigin(ctx, "cli"), a)
	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.D())
	defer cancel()
	if err := a.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (g *globals) print(v any) error {
	if g.out == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	if s, ok := v.(fmt.Stringer); ok {
		fmt.Println(s.String())
		return nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
