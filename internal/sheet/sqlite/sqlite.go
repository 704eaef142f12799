// Package sqlite persiste las hojas en un archivo SQLite (driver pure-go modernc).
// Cada celda no vacía es una fila de la tabla cells con su valor en JSON.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dropDatabas3/hellopos/internal/sheet"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `CREATE TABLE IF NOT EXISTS cells (
	sheet TEXT NOT NULL,
	row_idx INTEGER NOT NULL,
	col_idx INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (sheet, row_idx, col_idx)
)`

// Workbook implementa sheet.Workbook sobre un único archivo.
type Workbook struct {
	db *sql.DB
}

// Open abre (o crea) el archivo en path.
func Open(path string) (*Workbook, error) {
	if path == "" {
		path = "hellopos.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializa escrituras; una conexión evita SQLITE_BUSY entre goroutines.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cells table: %w", err)
	}
	return &Workbook{db: db}, nil
}

// DB expone la conexión (la comparte el snapshot store sqlite cuando usan el mismo archivo).
func (w *Workbook) DB() *sql.DB { return w.db }

func (w *Workbook) Sheet(ctx context.Context, name string) (sheet.Table, error) {
	if name == "" {
		return nil, sheet.ErrSheetNotFound
	}
	return &table{db: w.db, name: name}, nil
}

func (w *Workbook) Close() error { return w.db.Close() }

type table struct {
	db   *sql.DB
	name string
}

func (t *table) RowCount(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(row_idx), 0) FROM cells WHERE sheet = ?`, t.name).Scan(&n)
	return n, err
}

func (t *table) ColumnCount(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(col_idx), 0) FROM cells WHERE sheet = ?`, t.name).Scan(&n)
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
	rows, err := t.db.QueryContext(ctx, `SELECT row_idx, col_idx, value FROM cells
		WHERE sheet = ? AND row_idx BETWEEN ? AND ? AND col_idx BETWEEN ? AND ?`,
		t.name, startRow, startRow+numRows-1, startCol, startCol+numCols-1)
	if err != nil {
		return nil, fmt.Errorf("select cells: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var r, c int
		var raw string
		if err := rows.Scan(&r, &c, &raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		v, err := sheet.DecodeCell(raw)
		if err != nil {
			return nil, err
		}
		out[r-startRow][c-startCol] = v
	}
	return out, rows.Err()
}

func (t *table) WriteRange(ctx context.Context, row, col int, values [][]any) (retErr error) {
	if err := sheet.CheckRange(row, col, len(values), 0); err != nil {
		return err
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for i, r := range values {
		for j, v := range r {
			if sheet.IsEmpty(v) {
				if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE sheet = ? AND row_idx = ? AND col_idx = ?`,
					t.name, row+i, col+j); err != nil {
					return fmt.Errorf("delete cell: %w", err)
				}
				continue
			}
			raw, err := sheet.EncodeCell(v)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO cells (sheet, row_idx, col_idx, value) VALUES (?, ?, ?, ?)
				ON CONFLICT (sheet, row_idx, col_idx) DO UPDATE SET value = excluded.value`,
				t.name, row+i, col+j, raw); err != nil {
				return fmt.Errorf("upsert cell: %w", err)
			}
		}
	}
	return tx.Commit()
}

func (t *table) ClearRange(ctx context.Context, row, col, numCols int) error {
	if err := sheet.CheckRange(row, col, 1, numCols); err != nil {
		return err
	}
	_, err := t.db.ExecContext(ctx, `DELETE FROM cells WHERE sheet = ? AND row_idx = ? AND col_idx BETWEEN ? AND ?`,
		t.name, row, col, col+numCols-1)
	return err
}
