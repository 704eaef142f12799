package sheet

import (
	"encoding/json"
	"fmt"
	"time"
)

// EncodeCell serializa una celda para drivers que persisten texto (sqlite, pg).
// Las fechas se guardan como RFC3339 en UTC.
func EncodeCell(v any) (string, error) {
	if t, ok := v.(time.Time); ok {
		v = t.UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sheet: encode cell: %w", err)
	}
	return string(b), nil
}

// DecodeCell es el inverso de EncodeCell. Los números vuelven como float64.
func DecodeCell(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("sheet: decode cell: %w", err)
	}
	return v, nil
}
