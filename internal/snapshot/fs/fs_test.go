package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopos/internal/snapshot"
)

func TestStore_ReadWrite(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	s := New(dir, "")

	_, err := s.ReadBlob(ctx)
	require.ErrorIs(t, err, snapshot.ErrNotFound)

	require.NoError(t, s.WriteBlob(ctx, []byte(`{"a":1}`)))
	require.NoError(t, s.WriteBlob(ctx, []byte(`{"a":2}`)))

	b, err := s.ReadBlob(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"a":2}`, string(b))

	// no quedan temporales
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, snapshot.DefaultName, entries[0].Name())
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(t.TempDir(), "x.json")
	require.ErrorIs(t, s.WriteBlob(ctx, []byte("x")), context.Canceled)
}
