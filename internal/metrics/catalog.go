package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del catálogo, sus tiers y la superficie HTTP. Viven en un paquete aparte para que resolver,
// sheet y background las usen sin importar http.

var (
	Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_lookups_total",
		Help: "Lookups resueltos, por tier que respondió",
	}, []string{"tier"})

	TierErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_tier_errors_total",
		Help: "Errores de tier degradados a miss",
	}, []string{"tier", "kind"})

	SlowPathSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_slow_path_seconds",
		Help:    "Duración de la reconstrucción completa desde la fuente",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	})

	Records = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_records",
		Help: "Registros en el índice in-process",
	})

	SheetOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_range_ops_total",
		Help: "Operaciones de rango contra la fuente tabular",
	}, []string{"op"})

	BackgroundTasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "background_tasks_total",
		Help: "Tareas diferidas terminadas, por resultado",
	}, []string{"result"})

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})
)

func all() []prometheus.Collector {
	return []prometheus.Collector{
		Lookups, TierErrors, SlowPathSeconds, Records, SheetOps, BackgroundTasks,
		HTTPRequests, HTTPDuration, HTTPInflight,
	}
}

// Register registra las métricas en reg (o el default si es nil). Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range all() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
