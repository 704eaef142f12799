// Package storefactory abre la fuente tabular y el snapshot store según config.
// Si ambos usan sqlite (mismo archivo) o pg (mismo DSN) comparten la conexión.
package storefactory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellopos/internal/observability/logger"
	"github.com/dropDatabas3/hellopos/internal/sheet"
	smem "github.com/dropDatabas3/hellopos/internal/sheet/memory"
	spg "github.com/dropDatabas3/hellopos/internal/sheet/pg"
	ssqlite "github.com/dropDatabas3/hellopos/internal/sheet/sqlite"
	"github.com/dropDatabas3/hellopos/internal/snapshot"
	snapfs "github.com/dropDatabas3/hellopos/internal/snapshot/fs"
	snappg "github.com/dropDatabas3/hellopos/internal/snapshot/pg"
	snaps3 "github.com/dropDatabas3/hellopos/internal/snapshot/s3"
	snapsqlite "github.com/dropDatabas3/hellopos/internal/snapshot/sqlite"
	"github.com/dropDatabas3/hellopos/internal/util"
)

// SourceConfig driver de la fuente autoritativa.
type SourceConfig struct {
	Driver string // memory | sqlite | pg
	Path   string
	DSN    string
	Pool   spg.PoolConfig
	// RPS 0 = sin throttle.
	RPS   float64
	Burst int
}

type Config struct {
	Source   SourceConfig
	Snapshot snapshot.Config // Driver "none" o "" = sin snapshot store
}

// Stores lo que abrió Open. Workbook ya viene throttled e instrumentado.
type Stores struct {
	Workbook sheet.Workbook
	// Raw workbook sin wrappers (seed/tests).
	Raw      sheet.Workbook
	Snapshot snapshot.Store

	closers []func() error
}

// Open abre la fuente y el snapshot store. Ante error cierra lo ya abierto.
func Open(ctx context.Context, cfg Config) (_ *Stores, err error) {
	log := logger.Named("storefactory")
	st := &Stores{}
	defer func() {
		if err != nil {
			_ = st.Close()
		}
	}()

	var (
		sqliteWB *ssqlite.Workbook
		pgWB     *spg.Workbook
	)
	switch strings.ToLower(cfg.Source.Driver) {
	case "memory", "":
		st.Raw = smem.NewWorkbook()
	case "sqlite":
		sqliteWB, err = ssqlite.Open(cfg.Source.Path)
		if err != nil {
			return nil, fmt.Errorf("storefactory: source sqlite: %w", err)
		}
		st.Raw = sqliteWB
	case "pg":
		if cfg.Source.DSN == "" {
			return nil, errors.New("storefactory: source pg requires dsn")
		}
		pgWB, err = spg.Open(ctx, cfg.Source.DSN, cfg.Source.Pool)
		if err != nil {
			return nil, fmt.Errorf("storefactory: source pg: %w", err)
		}
		st.Raw = pgWB
	default:
		return nil, fmt.Errorf("storefactory: unknown source driver %q", cfg.Source.Driver)
	}
	st.closers = append(st.closers, st.Raw.Close)

	wb := st.Raw
	if cfg.Source.RPS > 0 {
		wb = sheet.ThrottleWorkbook(wb, cfg.Source.RPS, cfg.Source.Burst)
	}
	st.Workbook = sheet.Instrument(wb)

	sc := cfg.Snapshot
	switch strings.ToLower(sc.Driver) {
	case "none", "":
		log.Info("snapshot store disabled")
	case "fs":
		st.Snapshot = snapfs.New(sc.Path, sc.Name)
	case "sqlite":
		if sqliteWB != nil && (sc.Path == "" || sc.Path == cfg.Source.Path) {
			st.Snapshot, err = snapsqlite.New(sqliteWB.DB(), sc.Name)
		} else {
			st.Snapshot, err = snapsqlite.Open(sc.Path, sc.Name)
		}
	case "pg":
		if pgWB != nil && (sc.DSN == "" || sc.DSN == cfg.Source.DSN) {
			st.Snapshot, err = snappg.New(ctx, pgWB.Pool(), sc.Name)
			break
		}
		if sc.DSN == "" {
			return nil, errors.New("storefactory: snapshot pg requires dsn")
		}
		pool, perr := spg.NewPool(ctx, sc.DSN, spg.PoolConfig{})
		if perr != nil {
			return nil, fmt.Errorf("storefactory: snapshot pg: %w", perr)
		}
		st.closers = append(st.closers, func() error { pool.Close(); return nil })
		st.Snapshot, err = snappg.New(ctx, pool, sc.Name)
	case "s3":
		st.Snapshot, err = snaps3.New(ctx, sc.S3, sc.Name)
	default:
		return nil, fmt.Errorf("storefactory: unknown snapshot driver %q", sc.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("storefactory: snapshot %s: %w", sc.Driver, err)
	}
	if st.Snapshot != nil {
		// antes que la fuente: puede compartir su conexión
		st.closers = append(st.closers, st.Snapshot.Close)
	}
	log.Info("stores ready",
		logger.String("source", cfg.Source.Driver),
		logger.String("source_dsn", util.MaskDSN(firstNonEmpty(cfg.Source.DSN, cfg.Source.Path))),
		logger.String("snapshot", sc.Driver),
		logger.String("snapshot_dsn", util.MaskDSN(firstNonEmpty(sc.DSN, sc.Path))))
	return st, nil
}

// Close cierra en orden inverso.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
