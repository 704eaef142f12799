package storefactory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopos/internal/sheet/memory"
	"github.com/dropDatabas3/hellopos/internal/snapshot"
	snapfs "github.com/dropDatabas3/hellopos/internal/snapshot/fs"
)

func TestOpen_MemoryAndFS(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := Open(ctx, Config{
		Source:   SourceConfig{Driver: "memory", RPS: 100, Burst: 10},
		Snapshot: snapshot.Config{Driver: "fs", Path: dir},
	})
	require.NoError(t, err)
	defer st.Close()

	require.IsType(t, &memory.Workbook{}, st.Raw)
	require.IsType(t, &snapfs.Store{}, st.Snapshot)

	tbl, err := st.Workbook.Sheet(ctx, "products")
	require.NoError(t, err)
	require.NoError(t, tbl.WriteRange(ctx, 1, 1, [][]any{{"x"}}))
	n, err := tbl.RowCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestOpen_SQLiteSharesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pos.db")
	st, err := Open(ctx, Config{
		Source:   SourceConfig{Driver: "sqlite", Path: path},
		Snapshot: snapshot.Config{Driver: "sqlite"},
	})
	require.NoError(t, err)

	require.NoError(t, st.Snapshot.WriteBlob(ctx, []byte(`{"v":1}`)))
	b, err := st.Snapshot.ReadBlob(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"v":1}`, string(b))
	require.NoError(t, st.Close())
}

func TestOpen_NoSnapshot(t *testing.T) {
	st, err := Open(context.Background(), Config{Snapshot: snapshot.Config{Driver: "none"}})
	require.NoError(t, err)
	require.Nil(t, st.Snapshot)
	require.NoError(t, st.Close())
}

func TestOpen_UnknownDrivers(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, Config{Source: SourceConfig{Driver: "excel"}})
	require.ErrorContains(t, err, "unknown source driver")

	_, err = Open(ctx, Config{Snapshot: snapshot.Config{Driver: "gcs"}})
	require.ErrorContains(t, err, "unknown snapshot driver")
}
