package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellopos/internal/app"
)

func importCmd(g *globals) *cobra.Command {
	var (
		startRow int
		comma    string
	)
	cmd := &cobra.Command{
		Use:   "import <sheet> <file.csv>",
		Short: "Carga un CSV en una hoja de la fuente (útil con los drivers memory/sqlite/pg)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readCSV(args[1], comma)
			if err != nil {
				return err
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Stores.Workbook.Sheet(ctx, args[0])
				if err != nil {
					return err
				}
				if err := t.WriteRange(ctx, startRow, 1, rows); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "imported %d rows into %q\n", len(rows), args[0])
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&startRow, "row", 1, "Fila donde empieza la escritura")
	cmd.Flags().StringVar(&comma, "comma", ",", "Separador del CSV")
	return cmd
}

// readCSV lee el archivo; las celdas numéricas se cargan como número.
func readCSV(path, comma string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if comma != "" {
		r.Comma = []rune(comma)[0]
	}
	var rows [][]any
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = parseCell(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCell(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	// los códigos de barras con ceros a la izquierda quedan como texto
	if len(v) > 1 && v[0] == '0' && !strings.ContainsAny(v, ".,") {
		return v
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
