// Package snapshot define el store durable del catálogo: un único blob (el payload
// serializado) que sobrevive a reinicios y se comparte entre procesos.
//
// Drivers:
//   - fs: archivo local con escritura atómica
//   - sqlite: tabla snapshots en un archivo modernc
//   - pg: tabla catalog_snapshots en Postgres
//   - s3: objeto en un bucket S3/MinIO
//
// Ninguna operación llama a un "delete": invalidar escribe un tombstone.
package snapshot

import (
	"context"
	"errors"
)

// Store lee y escribe el blob completo. La última escritura gana.
type Store interface {
	// ReadBlob devuelve ErrNotFound si todavía no se escribió nada.
	ReadBlob(ctx context.Context) ([]byte, error)
	WriteBlob(ctx context.Context, data []byte) error
	Close() error
}

// ErrNotFound no hay blob guardado.
var ErrNotFound = errors.New("snapshot: blob not found")

// Config selecciona y parametriza el driver.
type Config struct {
	Driver string // fs | sqlite | pg | s3
	// Name identifica el blob (archivo, fila u objeto).
	Name string

	Path string // fs: directorio; sqlite: archivo
	DSN  string // pg

	S3 S3Config
}

// S3Config parámetros del driver s3.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// DefaultName nombre del blob cuando no se configura otro.
const DefaultName = "catalog_snapshot.json"
