package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/hellopos/internal/sheet"
)

// Grid es una hoja en memoria. Útil para desarrollo y testing.
type Grid struct {
	mu    sync.RWMutex
	cells map[int]map[int]any
}

// NewGrid crea una hoja vacía.
func NewGrid() *Grid {
	return &Grid{cells: make(map[int]map[int]any)}
}

// FromRows crea una hoja con rows empezando en la fila 1.
func FromRows(rows [][]any) *Grid {
	g := NewGrid()
	for i, r := range rows {
		g.setRow(i+1, 1, r)
	}
	return g
}

func (g *Grid) setRow(row, col int, values []any) {
	for j, v := range values {
		c := col + j
		if sheet.IsEmpty(v) {
			if m := g.cells[row]; m != nil {
				delete(m, c)
				if len(m) == 0 {
					delete(g.cells, row)
				}
			}
			continue
		}
		m := g.cells[row]
		if m == nil {
			m = make(map[int]any)
			g.cells[row] = m
		}
		m[c] = v
	}
}

func (g *Grid) RowCount(ctx context.Context) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	last := 0
	for r := range g.cells {
		if r > last {
			last = r
		}
	}
	return last, nil
}

func (g *Grid) ColumnCount(ctx context.Context) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	last := 0
	for _, m := range g.cells {
		for c := range m {
			if c > last {
				last = c
			}
		}
	}
	return last, nil
}

func (g *Grid) ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([][]any, error) {
	if err := sheet.CheckRange(startRow, startCol, numRows, numCols); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([][]any, numRows)
	for i := 0; i < numRows; i++ {
		row := make([]any, numCols)
		if m := g.cells[startRow+i]; m != nil {
			for j := 0; j < numCols; j++ {
				row[j] = m[startCol+j]
			}
		}
		out[i] = row
	}
	return out, nil
}

func (g *Grid) WriteRange(ctx context.Context, row, col int, values [][]any) error {
	if err := sheet.CheckRange(row, col, len(values), 0); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, r := range values {
		g.setRow(row+i, col, r)
	}
	return nil
}

func (g *Grid) ClearRange(ctx context.Context, row, col, numCols int) error {
	if err := sheet.CheckRange(row, col, 1, numCols); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setRow(row, col, make([]any, numCols))
	return nil
}

// Workbook implementa sheet.Workbook en memoria. Las hojas se crean al primer acceso.
type Workbook struct {
	mu     sync.Mutex
	sheets map[string]*Grid
}

func NewWorkbook() *Workbook {
	return &Workbook{sheets: make(map[string]*Grid)}
}

// Put reemplaza (o crea) una hoja.
func (w *Workbook) Put(name string, g *Grid) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[name] = g
}

func (w *Workbook) Sheet(ctx context.Context, name string) (sheet.Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	g, ok := w.sheets[name]
	if !ok {
		g = NewGrid()
		w.sheets[name] = g
	}
	return g, nil
}

func (w *Workbook) Close() error { return nil }
