// Package router arma el chi.Router con middlewares y rutas.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/hellopos/internal/http/errors"
	"github.com/dropDatabas3/hellopos/internal/http/handlers"
	mw "github.com/dropDatabas3/hellopos/internal/http/middlewares"
	"github.com/dropDatabas3/hellopos/internal/rate"
)

// Deps dependencias del router.
type Deps struct {
	Catalog handlers.Catalog
	Scanner handlers.Scanner // nil deshabilita /v1/scan
	Checks  []handlers.Check

	AdminKey string
	// RateLimiter aplica a lookups y escaneos; nil = sin límite.
	RateLimiter rate.Limiter
	// TrustProxy toma la IP del cliente de X-Forwarded-For (sólo detrás de un proxy propio).
	TrustProxy bool
	// Gatherer para /metrics; nil usa el default.
	Gatherer prometheus.Gatherer
}

// New registra:
//
//	GET  /healthz, /readyz, /metrics
//	GET  /v1/products/{code}
//	POST /v1/scan
//	POST /v1/cache/{invalidate,refresh,preload}   (admin)
//	GET  /v1/cache/{status,check}                 (admin)
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.WithRequestID(), mw.WithLogging(), mw.WithRecover())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, r, errors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, r, errors.ErrMethodNotAllowed)
	})

	(&handlers.HealthHandler{Checks: d.Checks}).Register(r)

	g := d.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	key := mw.DefaultRateKey
	if d.TrustProxy {
		key = mw.ProxyRateKey
	}
	r.Group(func(r chi.Router) {
		r.Use(mw.WithRateLimit(d.RateLimiter, key))
		(&handlers.CatalogHandler{Catalog: d.Catalog, Scanner: d.Scanner}).Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdminKey(d.AdminKey), mw.WithNoStore())
		(&handlers.MaintenanceHandler{Catalog: d.Catalog}).Register(r)
	})
	return r
}
