package sheet

import (
	"context"

	"golang.org/x/time/rate"
)

// throttled limita la cantidad de llamadas por segundo contra la fuente.
// Cada operación de rango consume un token, sin importar su tamaño.
type throttled struct {
	t   Table
	lim *rate.Limiter
}

// Throttle envuelve t con un token bucket de rps llamadas/seg y ráfaga burst.
// Si rps <= 0 devuelve t sin envolver.
func Throttle(t Table, rps float64, burst int) Table {
	if rps <= 0 || t == nil {
		return t
	}
	if burst < 1 {
		burst = 1
	}
	return &throttled{t: t, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (th *throttled) RowCount(ctx context.Context) (int, error) {
	if err := th.lim.Wait(ctx); err != nil {
		return 0, err
	}
	return th.t.RowCount(ctx)
}

func (th *throttled) ColumnCount(ctx context.Context) (int, error) {
	if err := th.lim.Wait(ctx); err != nil {
		return 0, err
	}
	return th.t.ColumnCount(ctx)
}

func (th *throttled) ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([][]any, error) {
	if err := th.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return th.t.ReadRange(ctx, startRow, startCol, numRows, numCols)
}

func (th *throttled) WriteRange(ctx context.Context, row, col int, values [][]any) error {
	if err := th.lim.Wait(ctx); err != nil {
		return err
	}
	return th.t.WriteRange(ctx, row, col, values)
}

func (th *throttled) ClearRange(ctx context.Context, row, col, numCols int) error {
	if err := th.lim.Wait(ctx); err != nil {
		return err
	}
	return th.t.ClearRange(ctx, row, col, numCols)
}

// ThrottleWorkbook aplica Throttle a cada hoja devuelta por wb.
// Todas las hojas comparten el mismo limiter: el rate limit es de la fuente, no de la hoja.
func ThrottleWorkbook(wb Workbook, rps float64, burst int) Workbook {
	if rps <= 0 || wb == nil {
		return wb
	}
	if burst < 1 {
		burst = 1
	}
	return &throttledWorkbook{wb: wb, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

type throttledWorkbook struct {
	wb  Workbook
	lim *rate.Limiter
}

func (tw *throttledWorkbook) Sheet(ctx context.Context, name string) (Table, error) {
	t, err := tw.wb.Sheet(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttled{t: t, lim: tw.lim}, nil
}

func (tw *throttledWorkbook) Close() error { return tw.wb.Close() }
