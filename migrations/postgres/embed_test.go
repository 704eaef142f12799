package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	stmts []string
	fail  string
}

func (r *recorder) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if r.fail != "" && strings.Contains(sql, r.fail) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	r.stmts = append(r.stmts, sql)
	return pgconn.CommandTag{}, nil
}

func TestApply_InOrder(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.Equal(t, []string{"0001_sheet_cells.sql", "0002_catalog_snapshots.sql"}, names)

	r := &recorder{}
	require.NoError(t, Apply(context.Background(), r))
	require.Len(t, r.stmts, 2)
	require.Contains(t, r.stmts[0], "sheet_cells")
	require.Contains(t, r.stmts[1], "catalog_snapshots")
}

func TestApply_ReportsFile(t *testing.T) {
	err := Apply(context.Background(), &recorder{fail: "catalog_snapshots"})
	require.ErrorContains(t, err, "0002_catalog_snapshots.sql")
}
