// Package resolver orquesta los tiers del catálogo para resolver un código escaneado.
//
// Orden de un lookup:
//  1. índice in-process, si no venció (sin chequear fingerprint)
//  2. tier efímero, si el payload es más nuevo que EphemeralTTL
//  3. fingerprint actual de la fuente contra el mirror del snapshot durable
//  4. snapshot store, si su fingerprint es el actual
//  5. slow path: lectura completa de la fuente y escritura de los tres tiers
//
// Cualquier error de tier se degrada a miss. Sólo la fuente inalcanzable llega al caller.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/hellopos/internal/background"
	"github.com/dropDatabas3/hellopos/internal/cache"
	"github.com/dropDatabas3/hellopos/internal/catalog"
	"github.com/dropDatabas3/hellopos/internal/metrics"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
	"github.com/dropDatabas3/hellopos/internal/sheet"
	"github.com/dropDatabas3/hellopos/internal/snapshot"
)

// Config del resolver.
type Config struct {
	Layout catalog.Layout

	InProcessTTL time.Duration
	// EphemeralTTL edad máxima (por generated_at) de un payload efímero aceptable.
	EphemeralTTL time.Duration
	// EphemeralStoreTTL TTL con el que se guarda la key. Debe ser >= EphemeralTTL.
	EphemeralStoreTTL time.Duration
	EphemeralKey      string

	// AsyncSnapshotWrites difiere la escritura al snapshot store a la cola de background.
	AsyncSnapshotWrites bool

	// Now reloj; nil usa time.Now.
	Now func() time.Time
}

// DefaultConfig valores de la planilla original: 30 min in-process, 2 h efímero.
func DefaultConfig() Config {
	return Config{
		Layout:            catalog.DefaultLayout(),
		InProcessTTL:      30 * time.Minute,
		EphemeralTTL:      2 * time.Hour,
		EphemeralStoreTTL: 2 * time.Hour,
		EphemeralKey:      "products_catalog_v1",
	}
}

// Validate chequea TTLs y layout.
func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if c.InProcessTTL <= 0 || c.EphemeralTTL <= 0 {
		return fmt.Errorf("resolver: ttls must be > 0")
	}
	if c.EphemeralStoreTTL < c.EphemeralTTL {
		return fmt.Errorf("resolver: ephemeral store ttl (%s) must be >= ephemeral ttl (%s)", c.EphemeralStoreTTL, c.EphemeralTTL)
	}
	if strings.TrimSpace(c.EphemeralKey) == "" {
		return fmt.Errorf("resolver: ephemeral key required")
	}
	return nil
}

// Deps colaboradores. Ephemeral, Snapshot y Queue son opcionales.
type Deps struct {
	Source    sheet.Table
	Ephemeral cache.Client
	Snapshot  snapshot.Store
	Queue     *background.Queue
}

// Resolver es seguro para uso concurrente. Crear con New.
type Resolver struct {
	cfg  Config
	deps Deps

	mu    sync.Mutex
	state CacheState
	hits  map[Tier]uint64
	slow  uint64

	sf singleflight.Group
}

// New valida cfg y arma el resolver.
func New(cfg Config, deps Deps) (*Resolver, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("resolver: source table required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{
		cfg:  cfg,
		deps: deps,
		hits: make(map[Tier]uint64),
	}, nil
}

// Lookup resuelve un código. Un código ausente devuelve (zero, false, nil);
// con la fuente caída devuelve (zero, false, ErrSourceUnreachable).
func (r *Resolver) Lookup(ctx context.Context, code string) (catalog.Record, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return catalog.Record{}, false, nil
	}
	snap, tier, err := r.resolve(ctx)
	if err != nil {
		logger.From(ctx).Warn("lookup failed", logger.Code(code), logger.Err(err))
		return catalog.Record{}, false, err
	}
	rec, ok := snap.Lookup(code)
	logger.From(ctx).Debug("lookup", logger.Code(code), logger.Tier(string(tier)), logger.Bool("found", ok))
	return rec, ok, nil
}

// State copia del estado por proceso (para diagnóstico y tests).
func (r *Resolver) State() CacheState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Hits copia de los contadores por tier que respondió.
func (r *Resolver) Hits() map[Tier]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.hits)
}

func (r *Resolver) resolve(ctx context.Context) (*catalog.Snapshot, Tier, error) {
	now := r.cfg.Now()

	// 1. in-process
	r.mu.Lock()
	if r.state.InProcess.Fresh(now) {
		s := r.state.InProcess.Snapshot
		r.mu.Unlock()
		r.hit(TierInProcess)
		return s, TierInProcess, nil
	}
	r.mu.Unlock()

	// 2. efímero
	if s := r.readEphemeral(ctx, now); s != nil {
		r.setInProcess(s, now)
		r.hit(TierEphemeral)
		return s, TierEphemeral, nil
	}

	// 3. mirror del durable
	fp := catalog.ComputeFingerprint(ctx, r.deps.Source, r.cfg.Layout)
	r.mu.Lock()
	mirror := r.state.Durable.Snapshot
	r.mu.Unlock()
	if mirror != nil && fp.Matches(mirror.Fingerprint) {
		s := mirror.Validated(now)
		r.writeEphemeral(ctx, s)
		r.setInProcess(s, now)
		r.hit(TierDurableMirror)
		return s, TierDurableMirror, nil
	}

	// 4. snapshot store
	if s := r.readSnapshot(ctx); s != nil && fp.Matches(s.Fingerprint) {
		r.setDurable(s)
		s = s.Validated(now)
		r.writeEphemeral(ctx, s)
		r.setInProcess(s, now)
		r.hit(TierSnapshot)
		return s, TierSnapshot, nil
	}

	// 5. slow path
	s, _, err := r.rebuild(ctx, fp)
	if err != nil {
		return nil, TierSource, err
	}
	r.hit(TierSource)
	return s, TierSource, nil
}

func (r *Resolver) hit(t Tier) {
	metrics.Lookups.WithLabelValues(string(t)).Inc()
	r.mu.Lock()
	r.hits[t]++
	r.mu.Unlock()
}

func (r *Resolver) tierError(ctx context.Context, t Tier, kind string, err error) {
	metrics.TierErrors.WithLabelValues(string(t), kind).Inc()
	logger.From(ctx).Warn("tier degraded to miss", logger.Tier(string(t)), logger.String("kind", kind), logger.Err(err))
}

func (r *Resolver) setInProcess(s *catalog.Snapshot, now time.Time) {
	r.mu.Lock()
	r.state.InProcess = TierState{Snapshot: s, ExpiresAt: now.Add(r.cfg.InProcessTTL)}
	r.mu.Unlock()
	metrics.Records.Set(float64(s.Len()))
}

// setDurable guarda una copia propia: el mirror no comparte puntero con InProcess.
func (r *Resolver) setDurable(s *catalog.Snapshot) {
	c := s.Clone()
	r.mu.Lock()
	r.state.Durable = TierState{Snapshot: c}
	r.mu.Unlock()
}

// ---- tier efímero ----

func (r *Resolver) readEphemeral(ctx context.Context, now time.Time) *catalog.Snapshot {
	if r.deps.Ephemeral == nil {
		return nil
	}
	r.mu.Lock()
	distrusted := r.state.EphemeralDistrusted
	r.mu.Unlock()
	if distrusted {
		return nil
	}

	b, err := r.deps.Ephemeral.Get(ctx, r.cfg.EphemeralKey)
	if err != nil {
		if !cache.IsNotFound(err) {
			r.tierError(ctx, TierEphemeral, "read", fmt.Errorf("%w: %v", catalog.ErrTierUnavailable, err))
		}
		return nil
	}
	s, err := catalog.Decode(b)
	switch {
	case errors.Is(err, catalog.ErrCleared):
		return nil
	case err != nil:
		r.mu.Lock()
		r.state.EphemeralDistrusted = true
		r.mu.Unlock()
		r.tierError(ctx, TierEphemeral, "malformed", err)
		return nil
	}
	if s.Age(now) >= r.cfg.EphemeralTTL {
		return nil
	}
	return s
}

func (r *Resolver) writeEphemeral(ctx context.Context, s *catalog.Snapshot) {
	if r.deps.Ephemeral == nil || s.Fingerprint.IsSentinel() {
		return
	}
	b, err := catalog.Encode(s)
	if err != nil {
		r.tierError(ctx, TierEphemeral, "encode", err)
		return
	}
	if err := r.deps.Ephemeral.Put(ctx, r.cfg.EphemeralKey, b, r.cfg.EphemeralStoreTTL); err != nil {
		r.tierError(ctx, TierEphemeral, "write", fmt.Errorf("%w: %v", catalog.ErrTierUnavailable, err))
		return
	}
	r.mu.Lock()
	r.state.EphemeralDistrusted = false
	r.mu.Unlock()
}

// ---- snapshot store ----

func (r *Resolver) readSnapshot(ctx context.Context) *catalog.Snapshot {
	if r.deps.Snapshot == nil {
		return nil
	}
	r.mu.Lock()
	distrusted := r.state.SnapshotDistrusted
	r.mu.Unlock()
	if distrusted {
		return nil
	}

	b, err := r.deps.Snapshot.ReadBlob(ctx)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			r.tierError(ctx, TierSnapshot, "read", fmt.Errorf("%w: %v", catalog.ErrTierUnavailable, err))
		}
		return nil
	}
	s, err := catalog.Decode(b)
	switch {
	case errors.Is(err, catalog.ErrCleared):
		return nil
	case err != nil:
		r.mu.Lock()
		r.state.SnapshotDistrusted = true
		r.mu.Unlock()
		r.tierError(ctx, TierSnapshot, "malformed", err)
		return nil
	}
	return s
}

// persistSnapshot escribe inline o encola según la config. El mirror se actualiza
// al encolar: refleja lo que el store va a tener.
func (r *Resolver) persistSnapshot(ctx context.Context, s *catalog.Snapshot) {
	if r.deps.Snapshot == nil || s.Fingerprint.IsSentinel() {
		return
	}
	b, err := catalog.Encode(s)
	if err != nil {
		r.tierError(ctx, TierSnapshot, "encode", err)
		return
	}

	r.mu.Lock()
	gen := r.state.generation
	r.mu.Unlock()

	if r.cfg.AsyncSnapshotWrites && r.deps.Queue != nil {
		queued := r.deps.Queue.Submit("snapshot_write", func(bctx context.Context) error {
			r.mu.Lock()
			stale := r.state.generation != gen
			r.mu.Unlock()
			if stale {
				return nil
			}
			return r.writeSnapshot(bctx, b)
		})
		if queued {
			r.setDurable(s)
			return
		}
	}

	if err := r.writeSnapshot(ctx, b); err != nil {
		r.tierError(ctx, TierSnapshot, "write", err)
		return
	}
	r.setDurable(s)
}

func (r *Resolver) writeSnapshot(ctx context.Context, b []byte) error {
	if err := r.deps.Snapshot.WriteBlob(ctx, b); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrTierUnavailable, err)
	}
	r.mu.Lock()
	r.state.SnapshotDistrusted = false
	r.mu.Unlock()
	return nil
}

// ---- slow path ----

// rebuild lee la fuente completa y escribe los tres tiers con el mismo fingerprint.
// Rebuilds concurrentes del mismo proceso se comparten.
func (r *Resolver) rebuild(ctx context.Context, fp catalog.Fingerprint) (*catalog.Snapshot, catalog.BuildStats, error) {
	type result struct {
		snap  *catalog.Snapshot
		stats catalog.BuildStats
	}
	v, err, shared := r.sf.Do("rebuild", func() (any, error) {
		s, st, err := r.rebuildOnce(ctx, fp)
		return result{s, st}, err
	})
	if err != nil {
		return nil, catalog.BuildStats{}, err
	}
	if shared {
		logger.From(ctx).Debug("rebuild shared with concurrent caller")
	}
	res := v.(result)
	return res.snap, res.stats, nil
}

func (r *Resolver) rebuildOnce(ctx context.Context, fp catalog.Fingerprint) (*catalog.Snapshot, catalog.BuildStats, error) {
	start := time.Now()
	log := logger.From(ctx).With(logger.Op("rebuild"))
	layout := r.cfg.Layout
	src := r.deps.Source

	if fp == "" {
		fp = catalog.ComputeFingerprint(ctx, src, layout)
	}
	rows, err := src.RowCount(ctx)
	if err != nil {
		return nil, catalog.BuildStats{}, fmt.Errorf("%w: %v", catalog.ErrSourceUnreachable, err)
	}
	first := layout.FirstDataRow()
	var raw [][]any
	if rows >= first {
		raw, err = src.ReadRange(ctx, first, 1, rows-first+1, layout.Width)
		if err != nil {
			return nil, catalog.BuildStats{}, fmt.Errorf("%w: %v", catalog.ErrSourceUnreachable, err)
		}
	}
	// la fuente respondió recién: un sentinel de error viejo no describe este contenido
	if fp.IsError() {
		fp = catalog.ComputeFingerprint(ctx, src, layout)
	}

	now := r.cfg.Now()
	snap, stats := catalog.Build(raw, first, layout, fp, now)

	if fp == catalog.FingerprintEmpty {
		// sin filas: lo publicado en los tiers compartidos describe productos que ya no existen
		_ = r.clearShared(ctx)
	} else {
		r.writeEphemeral(ctx, snap)
		r.persistSnapshot(ctx, snap)
	}
	r.setInProcess(snap, now)

	r.mu.Lock()
	r.slow++
	r.mu.Unlock()
	elapsed := time.Since(start)
	metrics.SlowPathSeconds.Observe(elapsed.Seconds())
	log.Info("catalog rebuilt from source",
		logger.Records(snap.Len()),
		logger.Int("skipped", stats.Skipped),
		logger.Int("duplicates", stats.Duplicates),
		logger.Fingerprint(fp),
		logger.Duration(elapsed))
	return snap, stats, nil
}

// ---- operaciones de mantenimiento ----

// InvalidateAll vacía el estado in-process, borra la key efímera y deja un
// tombstone en el snapshot store. El próximo lookup toma el slow path.
// Devuelve los errores de tier (ErrTierUnavailable) pero siempre limpia lo local.
func (r *Resolver) InvalidateAll(ctx context.Context) error {
	r.mu.Lock()
	r.state = CacheState{generation: r.state.generation}
	r.mu.Unlock()
	metrics.Records.Set(0)

	err := r.clearShared(ctx)
	r.mu.Lock()
	gen := r.state.generation
	r.mu.Unlock()
	logger.From(ctx).Info("catalog caches invalidated", logger.Int("generation", int(gen)))
	return err
}

// clearShared borra la key efímera, deja un tombstone en el snapshot store y
// olvida el mirror. Sube la generación: las escrituras diferidas pendientes se descartan.
func (r *Resolver) clearShared(ctx context.Context) error {
	r.mu.Lock()
	r.state.generation++
	r.state.Durable = TierState{}
	r.mu.Unlock()

	var errs []error
	if r.deps.Ephemeral != nil {
		if err := r.deps.Ephemeral.Remove(ctx, r.cfg.EphemeralKey); err != nil {
			r.tierError(ctx, TierEphemeral, "remove", err)
			errs = append(errs, fmt.Errorf("%w: ephemeral: %v", catalog.ErrTierUnavailable, err))
		}
	}
	if r.deps.Snapshot != nil {
		if err := r.deps.Snapshot.WriteBlob(ctx, catalog.Tombstone()); err != nil {
			r.tierError(ctx, TierSnapshot, "write", err)
			errs = append(errs, fmt.Errorf("%w: snapshot: %v", catalog.ErrTierUnavailable, err))
		}
	}
	return errors.Join(errs...)
}

// Refresh fuerza el slow path sin tocar el orden de tiers.
func (r *Resolver) Refresh(ctx context.Context) (catalog.BuildStats, error) {
	_, stats, err := r.rebuild(ctx, "")
	return stats, err
}

// PreloadResult resumen de un Preload.
type PreloadResult struct {
	Tier        Tier                `json:"tier"`
	Records     int                 `json:"records"`
	Fingerprint catalog.Fingerprint `json:"fingerprint"`
}

// Preload resuelve por el camino normal para dejar los tiers calientes.
func (r *Resolver) Preload(ctx context.Context) (PreloadResult, error) {
	s, tier, err := r.resolve(ctx)
	if err != nil {
		return PreloadResult{}, err
	}
	return PreloadResult{Tier: tier, Records: s.Len(), Fingerprint: s.Fingerprint}, nil
}

// Flush espera las escrituras diferidas al snapshot store.
func (r *Resolver) Flush(ctx context.Context) error {
	if r.deps.Queue == nil {
		return nil
	}
	return r.deps.Queue.Drain(ctx)
}
