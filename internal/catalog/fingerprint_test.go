package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopos/internal/sheet"
	"github.com/dropDatabas3/hellopos/internal/sheet/memory"
)

func productsGrid() *memory.Grid {
	return memory.FromRows([][]any{
		{"date", "name", "qty", "code", "price"},
		{nil, "Widget", 1, "ABC123", 9.99},
		{nil, "Gadget", 1, "XYZ", 5.0},
	})
}

func TestFingerprint_StableWithoutChanges(t *testing.T) {
	ctx := context.Background()
	g := productsGrid()

	a := ComputeFingerprint(ctx, g, DefaultLayout())
	b := ComputeFingerprint(ctx, g, DefaultLayout())

	require.False(t, a.IsSentinel())
	require.Equal(t, a, b)
	require.True(t, a.Matches(b))
	// filas_columnas_largo de la muestra_xxhash64 de la muestra
	require.Regexp(t, `^3_5_\d+_[0-9a-f]{16}$`, string(a))
}

func TestFingerprint_LastRowChange(t *testing.T) {
	ctx := context.Background()
	g := productsGrid()
	before := ComputeFingerprint(ctx, g, DefaultLayout())

	// mismo largo, distinto contenido
	require.NoError(t, g.WriteRange(ctx, 3, 2, [][]any{{"Gadgez"}}))
	after := ComputeFingerprint(ctx, g, DefaultLayout())
	require.NotEqual(t, before, after)

	// fila nueva al final
	require.NoError(t, g.WriteRange(ctx, 4, 1, [][]any{{nil, "New", 1, "N1", 1}}))
	require.NotEqual(t, after, ComputeFingerprint(ctx, g, DefaultLayout()))
}

func TestFingerprint_Sentinels(t *testing.T) {
	ctx := context.Background()

	require.Equal(t, FingerprintNoSource, ComputeFingerprint(ctx, nil, DefaultLayout()))

	header := memory.FromRows([][]any{{"date", "name", "qty", "code", "price"}})
	empty := ComputeFingerprint(ctx, header, DefaultLayout())
	require.Equal(t, Fingerprint("empty_source"), empty)
	require.False(t, empty.Matches(empty))

	e1 := ComputeFingerprint(ctx, failingTable{}, DefaultLayout())
	e2 := ComputeFingerprint(ctx, failingTable{}, DefaultLayout())
	require.True(t, e1.IsSentinel())
	require.True(t, e1.IsError())
	require.Regexp(t, `^error:\d+$`, string(e1))
	require.NotEqual(t, e1, e2)
	require.False(t, e1.Matches(e1))
}

type failingTable struct{}

var errDown = errors.New("down")

func (failingTable) RowCount(context.Context) (int, error)    { return 0, errDown }
func (failingTable) ColumnCount(context.Context) (int, error) { return 0, errDown }
func (failingTable) ReadRange(context.Context, int, int, int, int) ([][]any, error) {
	return nil, errDown
}
func (failingTable) WriteRange(context.Context, int, int, [][]any) error { return errDown }
func (failingTable) ClearRange(context.Context, int, int, int) error     { return errDown }

var _ sheet.Table = failingTable{}
