package resolver

import (
	"time"

	"github.com/dropDatabas3/hellopos/internal/catalog"
)

// Tier identifica de dónde salió un snapshot.
type Tier string

const (
	TierInProcess     Tier = "in_process"
	TierEphemeral     Tier = "ephemeral"
	TierDurableMirror Tier = "durable_mirror"
	TierSnapshot      Tier = "snapshot"
	TierSource        Tier = "source"
)

// TierState un snapshot con su vencimiento. ExpiresAt cero = no vence.
type TierState struct {
	Snapshot  *catalog.Snapshot
	ExpiresAt time.Time
}

// Fresh reporta si hay snapshot y no venció.
func (s TierState) Fresh(now time.Time) bool {
	if s.Snapshot == nil {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// CacheState estado por proceso del resolver. Lo protege Resolver.mu.
type CacheState struct {
	InProcess TierState
	// Durable refleja lo último leído de / escrito al snapshot store.
	Durable TierState

	// Un payload malformado deja su tier sin leer hasta que el resolver lo sobrescriba.
	EphemeralDistrusted bool
	SnapshotDistrusted  bool

	// generation sube con cada InvalidateAll; las escrituras diferidas de una
	// generación anterior se descartan.
	generation uint64
}
