package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// PayloadVersion versión del formato compartido por el tier efímero y el snapshot store.
const PayloadVersion = 1

type payload struct {
	Version     int                     `json:"version"`
	Fingerprint Fingerprint             `json:"fingerprint"`
	GeneratedAt int64                   `json:"generated_at"` // unix ms
	Records     map[string]payloadEntry `json:"records"`
}

type payloadEntry struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Row   int     `json:"row"`
}

// Encode serializa un snapshot.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("catalog: encode nil snapshot")
	}
	p := payload{
		Version:     PayloadVersion,
		Fingerprint: s.Fingerprint,
		GeneratedAt: s.GeneratedAt.UnixMilli(),
		Records:     make(map[string]payloadEntry, len(s.Records)),
	}
	for code, r := range s.Records {
		p.Records[code] = payloadEntry{Name: r.Name, Price: r.Price, Row: r.SourceRow}
	}
	return json.Marshal(p)
}

// Tombstone payload que deja InvalidateAll en el snapshot store.
func Tombstone() []byte {
	b, _ := json.Marshal(payload{Version: PayloadVersion, Fingerprint: FingerprintCleared, Records: map[string]payloadEntry{}})
	return b
}

// Decode valida estructuralmente y reconstruye el snapshot (FromPayload).
// Devuelve ErrCleared para un tombstone y ErrMalformedPayload para cualquier otra cosa inválida.
func Decode(b []byte) (*Snapshot, error) {
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Version != PayloadVersion {
		return nil, fmt.Errorf("%w: version %d", ErrMalformedPayload, p.Version)
	}
	if p.Fingerprint == FingerprintCleared {
		return nil, ErrCleared
	}
	if p.Fingerprint.IsSentinel() {
		return nil, fmt.Errorf("%w: sentinel fingerprint %q", ErrMalformedPayload, p.Fingerprint)
	}
	if p.GeneratedAt <= 0 {
		return nil, fmt.Errorf("%w: missing generated_at", ErrMalformedPayload)
	}
	if p.Records == nil {
		return nil, fmt.Errorf("%w: missing records", ErrMalformedPayload)
	}
	recs := make(map[string]Record, len(p.Records))
	for code, e := range p.Records {
		if code == "" {
			return nil, fmt.Errorf("%w: empty code", ErrMalformedPayload)
		}
		recs[code] = Record{Code: code, Name: e.Name, Price: e.Price, SourceRow: e.Row}
	}
	return &Snapshot{
		Records:     recs,
		Fingerprint: p.Fingerprint,
		GeneratedAt: time.UnixMilli(p.GeneratedAt),
	}, nil
}
