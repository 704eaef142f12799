// Package pos traduce la edición de una celda de código en las hojas de compras o
// ventas en escrituras sobre la misma fila: fecha, nombre, cantidad y, en ventas, precio.
package pos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellopos/internal/catalog"
	"github.com/dropDatabas3/hellopos/internal/mutation"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
	"github.com/dropDatabas3/hellopos/internal/sheet"
)

// Mode tipo de hoja transaccional.
type Mode string

const (
	ModePurchase Mode = "purchase"
	ModeSale     Mode = "sale"
)

// Action qué hizo HandleEdit.
type Action string

const (
	ActionIgnored  Action = "ignored"
	ActionCleared  Action = "cleared"
	ActionFilled   Action = "filled"
	ActionNotFound Action = "not_found"
)

// Columns mapa de columnas de las hojas transaccionales (1-based).
type Columns struct {
	Timestamp int
	Code      int
	Name      int
	Quantity  int
	Price     int
}

// Config del adapter.
type Config struct {
	PurchasesSheet string
	SalesSheet     string
	// FirstRow primera fila editable (debajo del header).
	FirstRow       int
	Columns        Columns
	NotFoundMarker string
	Now            func() time.Time
}

// DefaultConfig layout de las hojas originales.
func DefaultConfig() Config {
	return Config{
		PurchasesSheet: "purchases",
		SalesSheet:     "sales",
		FirstRow:       2,
		Columns:        Columns{Timestamp: 1, Code: 2, Name: 3, Quantity: 4, Price: 5},
		NotFoundMarker: "❌ Not found",
	}
}

// Lookuper resuelve códigos (lo implementa *resolver.Resolver).
type Lookuper interface {
	Lookup(ctx context.Context, code string) (catalog.Record, bool, error)
}

// Edit una celda editada.
type Edit struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Value  any    `json:"value"`
}

// Outcome resultado de una edición.
type Outcome struct {
	Action Action          `json:"action"`
	Mode   Mode            `json:"mode,omitempty"`
	Record *catalog.Record `json:"record,omitempty"`
	Cells  int             `json:"cells"`
}

// Handler aplica ediciones. Crear con New.
type Handler struct {
	cfg     Config
	books   sheet.Workbook
	catalog Lookuper
}

func New(cfg Config, books sheet.Workbook, lk Lookuper) *Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{cfg: cfg, books: books, catalog: lk}
}

func (h *Handler) mode(sheetName string) (Mode, bool) {
	switch sheetName {
	case h.cfg.PurchasesSheet:
		return ModePurchase, true
	case h.cfg.SalesSheet:
		return ModeSale, true
	}
	return "", false
}

// ClearColumns columnas que se limpian cuando se borra el código.
func (h *Handler) ClearColumns(m Mode) []int {
	c := h.cfg.Columns
	if m == ModeSale {
		return []int{c.Timestamp, c.Name, c.Quantity, c.Price}
	}
	return []int{c.Timestamp, c.Name, c.Quantity}
}

// HandleEdit sólo reacciona a la columna de código de compras/ventas desde FirstRow.
// Con la fuente caída no escribe nada y devuelve el error del catálogo.
func (h *Handler) HandleEdit(ctx context.Context, e Edit) (Outcome, error) {
	m, ok := h.mode(e.Sheet)
	if !ok || e.Column != h.cfg.Columns.Code || e.Row < h.cfg.FirstRow {
		return Outcome{Action: ActionIgnored}, nil
	}
	log := logger.From(ctx).With(logger.Sheet(e.Sheet), logger.Row(e.Row))

	tbl, err := h.books.Sheet(ctx, e.Sheet)
	if err != nil {
		return Outcome{}, fmt.Errorf("pos: open sheet %q: %w", e.Sheet, err)
	}
	ap := mutation.New(tbl)

	code := strings.TrimSpace(catalog.FormatCell(e.Value))
	if code == "" {
		n, err := ap.Clear(ctx, e.Row, h.ClearColumns(m))
		log.Debug("row cleared", logger.Count(n))
		return Outcome{Action: ActionCleared, Mode: m, Cells: n}, err
	}

	rec, found, err := h.catalog.Lookup(ctx, code)
	if err != nil {
		return Outcome{Mode: m}, err
	}
	c := h.cfg.Columns
	if !found {
		log.Info("product not found", logger.Code(code))
		n, err := ap.Apply(ctx, []mutation.Mutation{{Row: e.Row, Column: c.Name, Value: h.cfg.NotFoundMarker}})
		return Outcome{Action: ActionNotFound, Mode: m, Cells: n}, err
	}

	muts := []mutation.Mutation{
		{Row: e.Row, Column: c.Timestamp, Value: h.cfg.Now()},
		{Row: e.Row, Column: c.Name, Value: rec.Name},
		{Row: e.Row, Column: c.Quantity, Value: 1},
	}
	if m == ModeSale {
		muts = append(muts, mutation.Mutation{Row: e.Row, Column: c.Price, Value: rec.Price})
	}
	n, err := ap.Apply(ctx, muts)
	log.Info("row filled", logger.Code(code), logger.String("mode", string(m)), logger.Count(n))
	return Outcome{Action: ActionFilled, Mode: m, Record: &rec, Cells: n}, err
}
