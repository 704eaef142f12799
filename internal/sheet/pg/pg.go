// Package pg guarda las hojas en Postgres (tabla sheet_cells) usando pgxpool.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellopos/internal/observability/logger"
	"github.com/dropDatabas3/hellopos/internal/sheet"
	migrations "github.com/dropDatabas3/hellopos/migrations/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig tuning opcional del pool.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

// NewPool construye un pgxpool con los límites indicados.
// El ping inicial no es bloqueante: si falla se loguea y la app arranca igual.
func NewPool(ctx context.Context, dsn string, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	log := logger.Named("pg")
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return pool, nil
}

// Workbook implementa sheet.Workbook sobre un pool compartido.
type Workbook struct {
	pool  *pgxpool.Pool
	owned bool
}

// Open crea el pool y la tabla.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*Workbook, error) {
	pool, err := NewPool(ctx, dsn, cfg)
	if err != nil {
		return nil, err
	}
	wb, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	wb.owned = true
	return wb, nil
}

// New usa un pool existente (no lo cierra en Close).
func New(ctx context.Context, pool *pgxpool.Pool) (*Workbook, error) {
	if err := migrations.Apply(ctx, pool); err != nil {
		return nil, fmt.Errorf("pg schema: %w", err)
	}
	return &Workbook{pool: pool}, nil
}

// Pool expone el pool interno (lo reutiliza el snapshot store pg).
func (w *Workbook) Pool() *pgxpool.Pool { return w.pool }

func (w *Workbook) Sheet(ctx context.Context, name string) (sheet.Table, error) {
	if name == "" {
		return nil, sheet.ErrSheetNotFound
	}
	return &table{pool: w.pool, name: name}, nil
}

func (w *Workbook) Close() error {
	if w.owned {
		w.pool.Close()
	}
	return nil
}

type table struct {
	pool *pgxpool.Pool
	name string
}

func (t *table) RowCount(ctx context.Context) (int, error) {
	var n int
	err := t.pool.QueryRow(ctx, `SELECT COALESCE(MAX(row_idx), 0) FROM sheet_cells WHERE sheet = $1`, t.name).Scan(&n)
	return n, err
}

func (t *table) ColumnCount(ctx context.Context) (int, error) {
	var n int
	err := t.pool.QueryRow(ctx, `SELECT COALESCE(MAX(col_idx), 0) FROM sheet_cells WHERE sheet = $1`, t.name).Scan(&n)
	return n, err
}

func (t *table) ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([][]any, error) {
	if err := sheet.CheckRange(startRow, startCol, numRows, numCols); err != nil {
		return nil, err
	}
	out := make([][]any, numRows)
	for i := range out {
		out[i] = make([]any, numCols)
	}
	if numRows == 0 || numCols == 0 {
		return out, nil
	}
	rows, err := t.pool.Query(ctx, `SELECT row_idx, col_idx, value FROM sheet_cells
		WHERE sheet = $1 AND row_idx BETWEEN $2 AND $3 AND col_idx BETWEEN $4 AND $5`,
		t.name, startRow, startRow+numRows-1, startCol, startCol+numCols-1)
	if err != nil {
		return nil, fmt.Errorf("select sheet_cells: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r, c int
		var raw string
		if err := rows.Scan(&r, &c, &raw); err != nil {
			return nil, err
		}
		v, err := sheet.DecodeCell(raw)
		if err != nil {
			return nil, err
		}
		out[r-startRow][c-startCol] = v
	}
	return out, rows.Err()
}

// WriteRange manda todo el rango en un único batch dentro de una transacción.
func (t *table) WriteRange(ctx context.Context, row, col int, values [][]any) error {
	if err := sheet.CheckRange(row, col, len(values), 0); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for i, r := range values {
		for j, v := range r {
			if sheet.IsEmpty(v) {
				batch.Queue(`DELETE FROM sheet_cells WHERE sheet = $1 AND row_idx = $2 AND col_idx = $3`, t.name, row+i, col+j)
				continue
			}
			raw, err := sheet.EncodeCell(v)
			if err != nil {
				return err
			}
			batch.Queue(`INSERT INTO sheet_cells (sheet, row_idx, col_idx, value) VALUES ($1, $2, $3, $4)
				ON CONFLICT (sheet, row_idx, col_idx) DO UPDATE SET value = EXCLUDED.value`, t.name, row+i, col+j, raw)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (t *table) ClearRange(ctx context.Context, row, col, numCols int) error {
	if err := sheet.CheckRange(row, col, 1, numCols); err != nil {
		return err
	}
	_, err := t.pool.Exec(ctx, `DELETE FROM sheet_cells WHERE sheet = $1 AND row_idx = $2 AND col_idx BETWEEN $3 AND $4`,
		t.name, row, col, col+numCols-1)
	return err
}
