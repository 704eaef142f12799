package catalog

import "fmt"

// Layout describe dónde vive cada campo en la hoja de productos (columnas 1-based).
type Layout struct {
	HeaderRows  int
	CodeColumn  int
	NameColumn  int
	PriceColumn int
	// Width cantidad de columnas que se leen por fila.
	Width int
	// SampleWidth tope de celdas de la última fila que entran al fingerprint.
	SampleWidth int
	DefaultName string
}

// DefaultLayout es la hoja "1. Товары" original: A..E, nombre en B, código en D, precio en E.
func DefaultLayout() Layout {
	return Layout{
		HeaderRows:  1,
		CodeColumn:  4,
		NameColumn:  2,
		PriceColumn: 5,
		Width:       5,
		SampleWidth: 5,
		DefaultName: "Untitled",
	}
}

// FirstDataRow primera fila con productos.
func (l Layout) FirstDataRow() int { return l.HeaderRows + 1 }

// Validate chequea que las columnas entren en Width.
func (l Layout) Validate() error {
	if l.HeaderRows < 0 {
		return fmt.Errorf("catalog: header_rows must be >= 0")
	}
	if l.Width < 1 {
		return fmt.Errorf("catalog: width must be >= 1")
	}
	for name, c := range map[string]int{"code": l.CodeColumn, "name": l.NameColumn, "price": l.PriceColumn} {
		if c < 1 || c > l.Width {
			return fmt.Errorf("catalog: %s column %d out of range 1..%d", name, c, l.Width)
		}
	}
	if l.SampleWidth < 1 {
		return fmt.Errorf("catalog: sample_width must be >= 1")
	}
	return nil
}
