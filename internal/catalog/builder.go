package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BuildStats conteo informativo de un Build. Nunca bloquea la construcción.
type BuildStats struct {
	Rows       int `json:"rows"`
	Valid      int `json:"valid"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// Build arma el índice en una sola pasada. firstRow es el número de fila de rows[0]
// (para SourceRow). Filas sin código se cuentan y se saltean; códigos duplicados: gana el último.
func Build(rows [][]any, firstRow int, layout Layout, fp Fingerprint, now time.Time) (*Snapshot, BuildStats) {
	stats := BuildStats{Rows: len(rows)}
	recs := make(map[string]Record, len(rows))

	for i, row := range rows {
		code := strings.TrimSpace(FormatCell(cell(row, layout.CodeColumn)))
		if code == "" {
			stats.Skipped++
			continue
		}
		name := strings.TrimSpace(FormatCell(cell(row, layout.NameColumn)))
		if name == "" {
			name = layout.DefaultName
		}
		if _, dup := recs[code]; dup {
			stats.Duplicates++
		} else {
			stats.Valid++
		}
		recs[code] = Record{
			Code:      code,
			Name:      name,
			Price:     ParsePrice(cell(row, layout.PriceColumn)),
			SourceRow: firstRow + i,
		}
	}

	return &Snapshot{Records: recs, Fingerprint: fp, GeneratedAt: now}, stats
}

func cell(row []any, col int) any {
	if col < 1 || col > len(row) {
		return nil
	}
	return row[col-1]
}

// FormatCell convierte una celda a texto. Los números enteros salen sin exponente
// (los códigos de barra numéricos llegan como float64).
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// ParsePrice acepta números o strings numéricos (con coma decimal). Cualquier otra cosa es 0.
func ParsePrice(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
