package resolver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/dropDatabas3/hellopos/internal/background"
	"github.com/dropDatabas3/hellopos/internal/cache"
	"github.com/dropDatabas3/hellopos/internal/catalog"
	"github.com/dropDatabas3/hellopos/internal/snapshot"
)

// TierStatus foto de un tier.
type TierStatus struct {
	Configured  bool   `json:"configured"`
	Present     bool   `json:"present"`
	Records     int    `json:"records"`
	Fingerprint string `json:"fingerprint,omitempty"`
	AgeSeconds  int64  `json:"age_seconds,omitempty"`
	// ExpiresInSeconds sólo para el in-process.
	ExpiresInSeconds int64  `json:"expires_in_seconds,omitempty"`
	Distrusted       bool   `json:"distrusted,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Status foto del resolver y de sus tiers.
type Status struct {
	SourceFingerprint string               `json:"source_fingerprint"`
	InProcess         TierStatus           `json:"in_process"`
	DurableMirror     TierStatus           `json:"durable_mirror"`
	Ephemeral         TierStatus           `json:"ephemeral"`
	Snapshot          TierStatus           `json:"snapshot"`
	Hits              map[Tier]uint64      `json:"hits"`
	SlowPaths         uint64               `json:"slow_paths"`
	PendingWrites     int                  `json:"pending_writes"`
	WriteFailures     []background.Failure `json:"write_failures,omitempty"`
}

// Status lee (sin modificar el estado) cada tier y la fuente.
func (r *Resolver) Status(ctx context.Context) Status {
	now := r.cfg.Now()

	r.mu.Lock()
	st := r.state
	hits := maps.Clone(r.hits)
	slow := r.slow
	r.mu.Unlock()

	out := Status{
		SourceFingerprint: catalog.ComputeFingerprint(ctx, r.deps.Source, r.cfg.Layout).String(),
		InProcess:         describe(st.InProcess.Snapshot, now),
		DurableMirror:     describe(st.Durable.Snapshot, now),
		Hits:              hits,
		SlowPaths:         slow,
	}
	if st.InProcess.Snapshot != nil && !st.InProcess.ExpiresAt.IsZero() {
		out.InProcess.ExpiresInSeconds = int64(st.InProcess.ExpiresAt.Sub(now) / time.Second)
	}

	out.Ephemeral = TierStatus{Configured: r.deps.Ephemeral != nil, Distrusted: st.EphemeralDistrusted}
	if r.deps.Ephemeral != nil {
		b, err := r.deps.Ephemeral.Get(ctx, r.cfg.EphemeralKey)
		if err != nil && !cache.IsNotFound(err) {
			out.Ephemeral.Error = err.Error()
		} else if err == nil {
			fillPayload(&out.Ephemeral, b, now)
		}
	}

	out.Snapshot = TierStatus{Configured: r.deps.Snapshot != nil, Distrusted: st.SnapshotDistrusted}
	if r.deps.Snapshot != nil {
		b, err := r.deps.Snapshot.ReadBlob(ctx)
		if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
			out.Snapshot.Error = err.Error()
		} else if err == nil {
			fillPayload(&out.Snapshot, b, now)
		}
	}

	if q := r.deps.Queue; q != nil {
		out.PendingWrites = q.Pending()
		out.WriteFailures = q.Failures()
	}
	return out
}

func describe(s *catalog.Snapshot, now time.Time) TierStatus {
	ts := TierStatus{Configured: true}
	if s == nil {
		return ts
	}
	ts.Present = true
	ts.Records = s.Len()
	ts.Fingerprint = s.Fingerprint.String()
	ts.AgeSeconds = int64(s.Age(now) / time.Second)
	return ts
}

func fillPayload(ts *TierStatus, b []byte, now time.Time) {
	s, err := catalog.Decode(b)
	switch {
	case errors.Is(err, catalog.ErrCleared):
		ts.Fingerprint = catalog.FingerprintCleared.String()
	case err != nil:
		ts.Error = err.Error()
	default:
		conf, distrusted := ts.Configured, ts.Distrusted
		*ts = describe(s, now)
		ts.Configured, ts.Distrusted = conf, distrusted
	}
}

// Report resultado de Check.
type Report struct {
	OK          bool     `json:"ok"`
	SourceRows  int      `json:"source_rows"`
	Sampled     int      `json:"sampled"`
	EmptyCodes  int      `json:"empty_codes"`
	EmptyNames  int      `json:"empty_names"`
	Fingerprint string   `json:"fingerprint"`
	Issues      []string `json:"issues,omitempty"`
}

// CheckSampleRows cuántas filas de datos revisa Check.
const CheckSampleRows = 100

// Check revisa la integridad: fuente alcanzable, filas de muestra sin código o
// nombre, payloads legibles en cada tier y el in-process alineado con la fuente.
// Sólo reporta; no repara nada.
func (r *Resolver) Check(ctx context.Context) Report {
	rep := Report{}
	layout := r.cfg.Layout
	src := r.deps.Source

	fp := catalog.ComputeFingerprint(ctx, src, layout)
	rep.Fingerprint = fp.String()

	rows, err := src.RowCount(ctx)
	if err != nil {
		rep.Issues = append(rep.Issues, fmt.Sprintf("source unreachable: %v", err))
		return rep
	}
	rep.SourceRows = rows
	first := layout.FirstDataRow()
	if rows < first {
		rep.Issues = append(rep.Issues, "source has no data rows")
	} else {
		n := rows - first + 1
		if n > CheckSampleRows {
			n = CheckSampleRows
		}
		sample, err := src.ReadRange(ctx, first, 1, n, layout.Width)
		if err != nil {
			rep.Issues = append(rep.Issues, fmt.Sprintf("source read failed: %v", err))
		}
		rep.Sampled = len(sample)
		for _, row := range sample {
			if cellText(row, layout.CodeColumn) == "" {
				rep.EmptyCodes++
			}
			if cellText(row, layout.NameColumn) == "" {
				rep.EmptyNames++
			}
		}
		if rep.EmptyCodes > 0 {
			rep.Issues = append(rep.Issues, fmt.Sprintf("%d sampled rows without code", rep.EmptyCodes))
		}
		if rep.EmptyNames > 0 {
			rep.Issues = append(rep.Issues, fmt.Sprintf("%d sampled rows without name", rep.EmptyNames))
		}
	}

	st := r.Status(ctx)
	if st.Ephemeral.Error != "" {
		rep.Issues = append(rep.Issues, "ephemeral: "+st.Ephemeral.Error)
	}
	if st.Snapshot.Error != "" {
		rep.Issues = append(rep.Issues, "snapshot: "+st.Snapshot.Error)
	}
	if st.InProcess.Present && !fp.Matches(catalog.Fingerprint(st.InProcess.Fingerprint)) {
		rep.Issues = append(rep.Issues, "in-process index is behind the source")
	}
	for _, f := range st.WriteFailures {
		rep.Issues = append(rep.Issues, "deferred write failed: "+f.Err)
	}
	rep.OK = len(rep.Issues) == 0
	return rep
}

func cellText(row []any, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return strings.TrimSpace(catalog.FormatCell(row[col-1]))
}
