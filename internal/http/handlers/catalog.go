// Package handlers expone el catálogo, el adapter de escaneo y el mantenimiento de cache.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/hellopos/internal/audit"
	"github.com/dropDatabas3/hellopos/internal/catalog"
	"github.com/dropDatabas3/hellopos/internal/http/errors"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
	"github.com/dropDatabas3/hellopos/internal/pos"
	"github.com/dropDatabas3/hellopos/internal/resolver"
)

// Catalog lo que los handlers necesitan del resolver.
type Catalog interface {
	Lookup(ctx context.Context, code string) (catalog.Record, bool, error)
	InvalidateAll(ctx context.Context) error
	Refresh(ctx context.Context) (catalog.BuildStats, error)
	Preload(ctx context.Context) (resolver.PreloadResult, error)
	Status(ctx context.Context) resolver.Status
	Check(ctx context.Context) resolver.Report
}

// Scanner aplica una edición de la hoja de compras/ventas.
type Scanner interface {
	HandleEdit(ctx context.Context, e pos.Edit) (pos.Outcome, error)
}

// CatalogHandler lookups y escaneos.
type CatalogHandler struct {
	Catalog Catalog
	Scanner Scanner
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/v1/products/{code}", h.lookup)
	if h.Scanner != nil {
		r.Post("/v1/scan", h.scan)
	}
}

func (h *CatalogHandler) lookup(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		errors.WriteError(w, r, errors.ErrBadRequest.WithDetail("code is required"))
		return
	}
	rec, ok, err := h.Catalog.Lookup(r.Context(), code)
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	if !ok {
		errors.WriteError(w, r, errors.ErrProductNotFound.WithDetail(code))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *CatalogHandler) scan(w http.ResponseWriter, r *http.Request) {
	var e pos.Edit
	if !readJSON(w, r, &e) {
		return
	}
	if e.Sheet == "" || e.Row < 1 || e.Column < 1 {
		errors.WriteError(w, r, errors.ErrBadRequest.WithDetail("sheet, row and column are required"))
		return
	}
	out, err := h.Scanner.HandleEdit(r.Context(), e)
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// MaintenanceHandler rutas de mantenimiento (van detrás de la admin key).
type MaintenanceHandler struct {
	Catalog Catalog
}

func (h *MaintenanceHandler) Register(r chi.Router) {
	r.Post("/v1/cache/invalidate", h.invalidate)
	r.Post("/v1/cache/refresh", h.refresh)
	r.Post("/v1/cache/preload", h.preload)
	r.Get("/v1/cache/status", h.status)
	r.Get("/v1/cache/check", h.check)
}

func (h *MaintenanceHandler) invalidate(w http.ResponseWriter, r *http.Request) {
	ctx := audit.WithOrigin(r.Context(), "http")
	err := h.Catalog.InvalidateAll(ctx)
	audit.Log(ctx, audit.EventInvalidate, err)
	if err != nil {
		// el estado local ya se limpió; lo que falló es algún tier compartido
		errors.WriteError(w, r, errors.ErrTierWrite.WithDetail(err.Error()).WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *MaintenanceHandler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := audit.WithOrigin(r.Context(), "http")
	stats, err := h.Catalog.Refresh(ctx)
	audit.Log(ctx, audit.EventRefresh, err, logger.Records(stats.Valid))
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *MaintenanceHandler) preload(w http.ResponseWriter, r *http.Request) {
	ctx := audit.WithOrigin(r.Context(), "http")
	res, err := h.Catalog.Preload(ctx)
	audit.Log(ctx, audit.EventPreload, err, logger.Records(res.Records))
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MaintenanceHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Status(r.Context()))
}

func (h *MaintenanceHandler) check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Check(r.Context()))
}
