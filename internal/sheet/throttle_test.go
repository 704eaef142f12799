package sheet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopos/internal/sheet"
	"github.com/dropDatabas3/hellopos/internal/sheet/memory"
)

func TestThrottle_PassThrough(t *testing.T) {
	ctx := context.Background()
	g := memory.FromRows([][]any{{"h"}, {"a", "b"}})

	require.Same(t, sheet.Table(g), sheet.Throttle(g, 0, 0))

	th := sheet.Throttle(g, 1000, 10)
	n, err := th.RowCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, th.WriteRange(ctx, 3, 1, [][]any{{"c"}}))
	rows, err := th.ReadRange(ctx, 3, 1, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "c", rows[0][0])
}

func TestThrottle_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	th := sheet.Throttle(memory.NewGrid(), 1, 1)
	_, err := th.RowCount(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestThrottleWorkbook_SharesSheets(t *testing.T) {
	ctx := context.Background()
	wb := memory.NewWorkbook()
	wb.Put("products", memory.FromRows([][]any{{"h"}}))

	tw := sheet.Instrument(sheet.ThrottleWorkbook(wb, 1000, 5))
	tbl, err := tw.Sheet(ctx, "products")
	require.NoError(t, err)
	n, err := tbl.RowCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, tw.Close())
}

func TestCheckRange(t *testing.T) {
	require.NoError(t, sheet.CheckRange(1, 1, 0, 0))
	require.ErrorIs(t, sheet.CheckRange(0, 1, 1, 1), sheet.ErrInvalidRange)
	require.ErrorIs(t, sheet.CheckRange(1, 1, -1, 1), sheet.ErrInvalidRange)
}

func TestEncodeDecodeCell(t *testing.T) {
	raw, err := sheet.EncodeCell(9.99)
	require.NoError(t, err)
	v, err := sheet.DecodeCell(raw)
	require.NoError(t, err)
	require.Equal(t, 9.99, v)

	_, err = sheet.DecodeCell("{")
	require.Error(t, err)
}
