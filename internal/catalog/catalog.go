// Package catalog contiene el modelo del catálogo (código -> producto), el motor de
// fingerprint y el builder del índice.
//
// # Design Decisions
//
//   - Snapshot es un valor: cada tier guarda su propia copia (Clone), nunca un puntero compartido.
//   - Fingerprint es barato y no criptográfico: detecta "probablemente cambió" vs "seguro no cambió".
//   - Los sentinels de fingerprint (error, hoja vacía) nunca matchean, ni siquiera consigo mismos.
package catalog

import "time"

// Record es un producto del catálogo. Inmutable una vez construido.
type Record struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	// SourceRow es sólo diagnóstico (fila de la planilla de la que salió).
	SourceRow int `json:"row"`
}

// Snapshot es el dataset materializado completo.
type Snapshot struct {
	Records     map[string]Record
	Fingerprint Fingerprint
	GeneratedAt time.Time
}

// Lookup busca un código ya normalizado.
func (s *Snapshot) Lookup(code string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	r, ok := s.Records[code]
	return r, ok
}

// Len cantidad de productos.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Clone devuelve una copia independiente.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	recs := make(map[string]Record, len(s.Records))
	for k, v := range s.Records {
		recs[k] = v
	}
	return &Snapshot{Records: recs, Fingerprint: s.Fingerprint, GeneratedAt: s.GeneratedAt}
}

// Validated copia con GeneratedAt = at. Se usa cuando el fingerprint se
// reconfirmó contra la fuente: el contenido sigue vigente a partir de at.
func (s *Snapshot) Validated(at time.Time) *Snapshot {
	c := s.Clone()
	if c != nil {
		c.GeneratedAt = at
	}
	return c
}

// Age edad del snapshot respecto de now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil || s.GeneratedAt.IsZero() {
		return 0
	}
	return now.Sub(s.GeneratedAt)
}
