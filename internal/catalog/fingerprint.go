package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/dropDatabas3/hellopos/internal/sheet"
)

// Fingerprint firma barata del dataset autoritativo.
type Fingerprint string

const (
	FingerprintNoSource Fingerprint = "no_source"
	FingerprintEmpty    Fingerprint = "empty_source"
	// FingerprintCleared lo escribe InvalidateAll en el snapshot store.
	FingerprintCleared Fingerprint = "cleared"

	errorPrefix = "error:"
)

var errorSeq atomic.Uint64

// ErrorFingerprint genera un sentinel de error único en el proceso.
func ErrorFingerprint() Fingerprint {
	return Fingerprint(errorPrefix + strconv.FormatUint(errorSeq.Add(1), 10))
}

// IsSentinel reporta si fp no describe contenido real.
func (fp Fingerprint) IsSentinel() bool {
	switch fp {
	case "", FingerprintNoSource, FingerprintEmpty, FingerprintCleared:
		return true
	}
	return fp.IsError()
}

// IsError reporta si fp es un sentinel de fuente inalcanzable.
func (fp Fingerprint) IsError() bool { return strings.HasPrefix(string(fp), errorPrefix) }

// Matches es la única comparación válida entre fingerprints: un sentinel nunca matchea.
func (fp Fingerprint) Matches(other Fingerprint) bool {
	return !fp.IsSentinel() && !other.IsSentinel() && fp == other
}

func (fp Fingerprint) String() string { return string(fp) }

// ComputeFingerprint lee sólo RowCount, ColumnCount y la última fila (acotada a
// layout.SampleWidth celdas). Dos datasets que difieren sólo en filas intermedias
// pueden dar el mismo fingerprint: es un tradeoff aceptado.
//
// Nunca falla: si la fuente no responde devuelve un sentinel de error.
func ComputeFingerprint(ctx context.Context, t sheet.Table, layout Layout) Fingerprint {
	if t == nil {
		return FingerprintNoSource
	}
	rows, err := t.RowCount(ctx)
	if err != nil {
		return ErrorFingerprint()
	}
	if rows < layout.FirstDataRow() {
		return FingerprintEmpty
	}
	cols, err := t.ColumnCount(ctx)
	if err != nil {
		return ErrorFingerprint()
	}
	width := cols
	if width > layout.SampleWidth {
		width = layout.SampleWidth
	}
	if width < 1 {
		return FingerprintEmpty
	}
	grid, err := t.ReadRange(ctx, rows, 1, 1, width)
	if err != nil || len(grid) != 1 {
		return ErrorFingerprint()
	}
	sample := joinCells(grid[0])
	return Fingerprint(fmt.Sprintf("%d_%d_%d_%016x", rows, cols, len(sample), xxhash.Sum64String(sample)))
}

func joinCells(cells []any) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = FormatCell(c)
	}
	return strings.Join(parts, "|")
}
