// Package mutation aplica escrituras celda a celda sobre una hoja agrupándolas en
// la menor cantidad de llamadas de rango: una por cada tramo contiguo de columnas.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dropDatabas3/hellopos/internal/observability/logger"
	"github.com/dropDatabas3/hellopos/internal/sheet"
)

// Mutation escritura de una celda (1-based).
type Mutation struct {
	Row    int `json:"row"`
	Column int `json:"column"`
	Value  any `json:"value"`
}

// PartialFailureError algunas mutaciones no se aplicaron. No se reintentan.
type PartialFailureError struct {
	Failed []Mutation
	Total  int
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("mutation: %d of %d cells failed: %v", len(e.Failed), e.Total, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// ErrInvalidCell fila o columna < 1.
var ErrInvalidCell = errors.New("mutation: invalid cell")

// Run tramo de columnas contiguas.
type Run struct {
	Start int
	Len   int
}

// Runs agrupa columnas (ordenadas, sin duplicados) en tramos contiguos maximales.
func Runs(cols []int) []Run {
	var out []Run
	for _, c := range cols {
		if n := len(out); n > 0 && out[n-1].Start+out[n-1].Len == c {
			out[n-1].Len++
			continue
		}
		out = append(out, Run{Start: c, Len: 1})
	}
	return out
}

// Applier aplica mutaciones sobre una hoja.
type Applier struct {
	t sheet.Table
}

func New(t sheet.Table) *Applier { return &Applier{t: t} }

// Apply agrupa por fila (ascendente), la última escritura a una celda gana, y
// escribe cada tramo contiguo con un solo WriteRange. Sigue ante fallas.
//
// El conteo es de celdas distintas, no de mutaciones: dos escrituras a la misma
// celda cuentan 1. PartialFailureError.Total usa la misma unidad (más las
// mutaciones inválidas, que se reportan una por una).
func (a *Applier) Apply(ctx context.Context, muts []Mutation) (int, error) {
	if len(muts) == 0 {
		return 0, nil
	}
	var failed []Mutation
	var errs []error

	byRow := make(map[int]map[int]any)
	for _, m := range muts {
		if m.Row < 1 || m.Column < 1 {
			failed = append(failed, m)
			errs = append(errs, fmt.Errorf("%w: row=%d col=%d", ErrInvalidCell, m.Row, m.Column))
			continue
		}
		cells := byRow[m.Row]
		if cells == nil {
			cells = make(map[int]any)
			byRow[m.Row] = cells
		}
		cells[m.Column] = m.Value
	}

	total := len(failed)
	applied := 0
	for _, row := range sortedKeys(byRow) {
		cells := byRow[row]
		cols := sortedKeys(cells)
		total += len(cols)
		for _, run := range Runs(cols) {
			values := make([]any, run.Len)
			for i := range values {
				values[i] = cells[run.Start+i]
			}
			if err := a.t.WriteRange(ctx, row, run.Start, [][]any{values}); err != nil {
				logger.From(ctx).Warn("range write failed", logger.Row(row), logger.Column(run.Start), logger.Count(run.Len), logger.Err(err))
				errs = append(errs, err)
				for i, v := range values {
					failed = append(failed, Mutation{Row: row, Column: run.Start + i, Value: v})
				}
				continue
			}
			applied += run.Len
		}
	}

	if len(failed) > 0 {
		return applied, &PartialFailureError{Failed: failed, Total: total, Err: errors.Join(errs...)}
	}
	return applied, nil
}

// Clear borra las columnas cols de row. Lee el tramo una sola vez y saltea los
// tramos que ya están vacíos, así limpiar dos veces no hace llamadas de borrado.
// Devuelve cuántas celdas borró.
func (a *Applier) Clear(ctx context.Context, row int, cols []int) (int, error) {
	set := make(map[int]struct{}, len(cols))
	for _, c := range cols {
		if row < 1 || c < 1 {
			return 0, fmt.Errorf("%w: row=%d col=%d", ErrInvalidCell, row, c)
		}
		set[c] = struct{}{}
	}
	if len(set) == 0 {
		return 0, nil
	}
	sorted := sortedKeys(set)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	grid, err := a.t.ReadRange(ctx, row, lo, 1, hi-lo+1)
	if err != nil {
		return 0, fmt.Errorf("mutation: read row %d: %w", row, err)
	}
	var current []any
	if len(grid) > 0 {
		current = grid[0]
	}

	var failed []Mutation
	var errs []error
	cleared := 0
	for _, run := range Runs(sorted) {
		if allEmpty(current, run.Start-lo, run.Len) {
			continue
		}
		if err := a.t.ClearRange(ctx, row, run.Start, run.Len); err != nil {
			logger.From(ctx).Warn("range clear failed", logger.Row(row), logger.Column(run.Start), logger.Count(run.Len), logger.Err(err))
			errs = append(errs, err)
			for i := 0; i < run.Len; i++ {
				failed = append(failed, Mutation{Row: row, Column: run.Start + i})
			}
			continue
		}
		cleared += run.Len
	}
	if len(failed) > 0 {
		return cleared, &PartialFailureError{Failed: failed, Total: len(sorted), Err: errors.Join(errs...)}
	}
	return cleared, nil
}

func allEmpty(cells []any, off, n int) bool {
	for i := off; i < off+n; i++ {
		if i < len(cells) && !sheet.IsEmpty(cells[i]) {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
