// Package sheet define la fuente autoritativa tabular (una "planilla") sobre la que
// trabaja el catálogo.
//
// Soporta:
//   - memory (in-process, para desarrollo/testing)
//   - sqlite (archivo local, modernc.org/sqlite)
//   - pg (Postgres compartido, pgx)
//
// Filas y columnas son 1-based, igual que en una planilla. La fila 1 suele ser el header.
package sheet

import (
	"context"
	"errors"
	"fmt"
)

// Table es una hoja individual. Sólo expone granularidad de rango.
type Table interface {
	// RowCount devuelve el índice de la última fila con datos (0 si está vacía).
	RowCount(ctx context.Context) (int, error)

	// ColumnCount devuelve el índice de la última columna con datos.
	ColumnCount(ctx context.Context) (int, error)

	// ReadRange lee numRows x numCols celdas. Las celdas vacías vuelven como nil.
	ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([][]any, error)

	// WriteRange escribe la grilla empezando en (row, col).
	WriteRange(ctx context.Context, row, col int, values [][]any) error

	// ClearRange borra el contenido de numCols celdas de una fila.
	ClearRange(ctx context.Context, row, col, numCols int) error
}

// Workbook agrupa hojas por nombre.
type Workbook interface {
	Sheet(ctx context.Context, name string) (Table, error)
	Close() error
}

var (
	ErrSheetNotFound = errors.New("sheet: not found")
	ErrInvalidRange  = errors.New("sheet: invalid range")
)

// CheckRange valida coordenadas 1-based. Los drivers la usan antes de tocar el backend.
func CheckRange(row, col, numRows, numCols int) error {
	if row < 1 || col < 1 || numRows < 0 || numCols < 0 {
		return fmt.Errorf("%w: row=%d col=%d rows=%d cols=%d", ErrInvalidRange, row, col, numRows, numCols)
	}
	return nil
}

// IsEmpty reporta si una celda cuenta como vacía (nil o string vacío).
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}
