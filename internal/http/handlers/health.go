package handlers

import (
	"context"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/hellopos/internal/http/errors"
)

// Check dependencia que /readyz verifica.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
	// Optional: si falla se reporta pero no tumba el ready.
	Optional bool
}

// HealthHandler /healthz (proceso vivo) y /readyz (dependencias).
type HealthHandler struct {
	Checks  []Check
	Timeout time.Duration
}

func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", h.readyz)
}

func (h *HealthHandler) readyz(w http.ResponseWriter, r *http.Request) {
	if v := os.Getenv("SERVICE_VERSION"); v != "" {
		w.Header().Set("X-Service-Version", v)
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	results := make(map[string]string, len(h.Checks))
	ready := true
	for _, c := range h.Checks {
		if err := c.Fn(ctx); err != nil {
			results[c.Name] = err.Error()
			if !c.Optional {
				ready = false
			}
			continue
		}
		results[c.Name] = "ok"
	}
	if !ready {
		errors.WriteError(w, r, errors.ErrNotReady.WithDetail(summary(results)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": results})
}

func summary(m map[string]string) string {
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if v := m[k]; v != "ok" {
			parts = append(parts, k+": "+v)
		}
	}
	return strings.Join(parts, "; ")
}
