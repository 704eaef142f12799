package sheet

import (
	"context"

	"github.com/dropDatabas3/hellopos/internal/metrics"
)

// Instrument cuenta cada operación de rango en sheet_range_ops_total{op}.
func Instrument(wb Workbook) Workbook {
	if wb == nil {
		return nil
	}
	return &instrumentedWorkbook{wb: wb}
}

type instrumentedWorkbook struct{ wb Workbook }

func (iw *instrumentedWorkbook) Sheet(ctx context.Context, name string) (Table, error) {
	t, err := iw.wb.Sheet(ctx, name)
	if err != nil {
		return nil, err
	}
	return instrumented{t: t}, nil
}

func (iw *instrumentedWorkbook) Close() error { return iw.wb.Close() }

type instrumented struct{ t Table }

func observe(op string) { metrics.SheetOps.WithLabelValues(op).Inc() }

func (i instrumented) RowCount(ctx context.Context) (int, error) {
	observe("row_count")
	return i.t.RowCount(ctx)
}

func (i instrumented) ColumnCount(ctx context.Context) (int, error) {
	observe("column_count")
	return i.t.ColumnCount(ctx)
}

func (i instrumented) ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([][]any, error) {
	observe("read")
	return i.t.ReadRange(ctx, startRow, startCol, numRows, numCols)
}

func (i instrumented) WriteRange(ctx context.Context, row, col int, values [][]any) error {
	observe("write")
	return i.t.WriteRange(ctx, row, col, values)
}

func (i instrumented) ClearRange(ctx context.Context, row, col, numCols int) error {
	observe("clear")
	return i.t.ClearRange(ctx, row, col, numCols)
}
