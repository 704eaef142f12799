package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopos/internal/background"
	"github.com/dropDatabas3/hellopos/internal/catalog"
)

func productRows() [][]any {
	return [][]any{
		{"date", "name", "qty", "code", "price"},
		{nil, "Widget", 1, "ABC123", 9.99},
		{nil, "Gadget", 1, "XYZ", "5,50"},
		{nil, "", nil, "  777  ", nil},
		{nil, "sin código", nil, "", 3},
	}
}

type fixture struct {
	src   *countingTable
	eph   *fakeCache
	snaps *fakeSnapshots
	clk   *clock
	cfg   Config
}

func newFixture() *fixture {
	clk := newClock()
	cfg := DefaultConfig()
	cfg.Now = clk.Now
	return &fixture{
		src:   newCountingTable(productRows()),
		eph:   newFakeCache(),
		snaps: &fakeSnapshots{},
		clk:   clk,
		cfg:   cfg,
	}
}

func (f *fixture) resolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := New(f.cfg, Deps{Source: f.src, Ephemeral: f.eph, Snapshot: f.snaps})
	require.NoError(t, err)
	return r
}

func TestLookup_AbsentCode(t *testing.T) {
	r := newFixture().resolver(t)

	rec, ok, err := r.Lookup(context.Background(), "NOPE")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, rec)

	_, ok, err = r.Lookup(context.Background(), "   ")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLookup_MatchesFreshBuildAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r := f.resolver(t)
	require.NoError(t, r.InvalidateAll(ctx))

	rows := productRows()
	want, _ := catalog.Build(rows[1:], 2, catalog.DefaultLayout(), "", time.Now())
	require.Equal(t, 3, want.Len())

	for code, exp := range want.Records {
		got, ok, err := r.Lookup(ctx, " "+code+" ")
		require.NoError(t, err)
		require.True(t, ok, code)
		require.Equal(t, exp, got)
	}
	rec, _, _ := r.Lookup(ctx, "777")
	require.Equal(t, "Untitled", rec.Name)
	require.Zero(t, rec.Price)
}

func TestLookup_SecondLookupSkipsSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r := f.resolver(t)

	_, ok, err := r.Lookup(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	calls, full := f.src.counts()
	require.Equal(t, 1, full)
	require.Positive(t, calls)

	_, ok, err = r.Lookup(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	calls2, full2 := f.src.counts()
	require.Equal(t, calls, calls2)
	require.Equal(t, 1, full2)
}

func TestInvalidateThenLookup_AllTiersShareFingerprint(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r := f.resolver(t)

	require.NoError(t, r.InvalidateAll(ctx))
	_, err := catalog.Decode(f.snaps.raw())
	require.ErrorIs(t, err, catalog.ErrCleared)
	require.Nil(t, f.eph.raw(f.cfg.EphemeralKey))

	_, _, err = r.Lookup(ctx, "ABC123")
	require.NoError(t, err)

	current := catalog.ComputeFingerprint(ctx, f.src.t, f.cfg.Layout)
	require.False(t, current.IsSentinel())

	st := r.State()
	require.Equal(t, current, st.InProcess.Snapshot.Fingerprint)
	require.Equal(t, current, st.Durable.Snapshot.Fingerprint)

	eph, err := catalog.Decode(f.eph.raw(f.cfg.EphemeralKey))
	require.NoError(t, err)
	require.Equal(t, current, eph.Fingerprint)

	durable, err := catalog.Decode(f.snaps.raw())
	require.NoError(t, err)
	require.Equal(t, current, durable.Fingerprint)
}

func TestLookup_OtherProcessUsesEphemeral(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.resolver(t).Preload(ctx)
	require.NoError(t, err)
	before, _ := f.src.counts()

	// mismo tier efímero y snapshot store, otro proceso
	other := f.resolver(t)
	res, err := other.Preload(ctx)
	require.NoError(t, err)
	require.Equal(t, TierEphemeral, res.Tier)
	require.Equal(t, 3, res.Records)

	after, _ := f.src.counts()
	require.Equal(t, before, after)
}

func TestLookup_StaleEphemeralFallsBackToSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.resolver(t).Preload(ctx)
	require.NoError(t, err)

	f.clk.Advance(f.cfg.EphemeralTTL + time.Minute)
	other := f.resolver(t)
	res, err := other.Preload(ctx)
	require.NoError(t, err)
	require.Equal(t, TierSnapshot, res.Tier)
	_, full := f.src.counts()
	require.Equal(t, 1, full)

	// el efímero quedó revalidado: un tercer proceso no toca la fuente
	before, _ := f.src.counts()
	res, err = f.resolver(t).Preload(ctx)
	require.NoError(t, err)
	require.Equal(t, TierEphemeral, res.Tier)
	after, _ := f.src.counts()
	require.Equal(t, before, after)
}

func TestLookup_DurableMirrorAfterExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.eph = nil
	r, err := New(f.cfg, Deps{Source: f.src, Snapshot: f.snaps})
	require.NoError(t, err)

	_, err = r.Preload(ctx)
	require.NoError(t, err)
	reads := f.snaps.reads

	f.clk.Advance(f.cfg.InProcessTTL + time.Second)
	res, err := r.Preload(ctx)
	require.NoError(t, err)
	require.Equal(t, TierDurableMirror, res.Tier)
	require.Equal(t, reads, f.snaps.reads)
	_, full := f.src.counts()
	require.Equal(t, 1, full)
}

func TestLookup_SourceChangeTriggersRebuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.eph = nil
	r, err := New(f.cfg, Deps{Source: f.src, Snapshot: f.snaps})
	require.NoError(t, err)

	_, ok, _ := r.Lookup(ctx, "NEW1")
	require.False(t, ok)

	require.NoError(t, f.src.WriteRange(ctx, 6, 1, [][]any{{nil, "Nuevo", 1, "NEW1", 2}}))
	f.clk.Advance(f.cfg.InProcessTTL + time.Second)

	rec, ok, err := r.Lookup(ctx, "NEW1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 6, rec.SourceRow)
	_, full := f.src.counts()
	require.Equal(t, 2, full)
}

func TestLookup_SourceUnreachable(t *testing.T) {
	f := newFixture()
	f.src.setFail(true)
	r := f.resolver(t)

	rec, ok, err := r.Lookup(context.Background(), "ABC123")
	require.ErrorIs(t, err, catalog.ErrSourceUnreachable)
	require.False(t, ok)
	require.Zero(t, rec)
}

func TestLookup_TierErrorsDegradeToMiss(t *testing.T) {
	f := newFixture()
	f.eph.failGet = true
	f.eph.failPut = true
	f.snaps.failRead = true
	r := f.resolver(t)

	rec, ok, err := r.Lookup(context.Background(), "XYZ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5.5, rec.Price)
}

func TestLookup_MalformedEphemeralIsDistrusted(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.eph.data[f.cfg.EphemeralKey] = []byte(`{"version":1,"records":`)
	f.eph.failPut = true
	r := f.resolver(t)

	_, ok, err := r.Lookup(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, r.State().EphemeralDistrusted)

	gets := f.eph.getCount()
	f.clk.Advance(f.cfg.InProcessTTL + time.Second)
	_, _, err = r.Lookup(ctx, "ABC123")
	require.NoError(t, err)
	require.Equal(t, gets, f.eph.getCount(), "distrusted tier must not be read")

	// cuando el resolver logra sobrescribirlo vuelve a confiar
	f.eph.mu.Lock()
	f.eph.failPut = false
	f.eph.mu.Unlock()
	_, err = r.Refresh(ctx)
	require.NoError(t, err)
	require.False(t, r.State().EphemeralDistrusted)
}

func TestLookup_MalformedSnapshotIsDistrusted(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.snaps.blob = []byte("garbage")
	f.eph = nil
	r, err := New(f.cfg, Deps{Source: f.src, Snapshot: f.snaps})
	require.NoError(t, err)

	_, ok, err := r.Lookup(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	// el slow path lo sobrescribió
	require.False(t, r.State().SnapshotDistrusted)
	_, err = catalog.Decode(f.snaps.raw())
	require.NoError(t, err)
}

func TestLookup_ConcurrentSlowPathsCoalesce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.eph = nil
	f.snaps = nil

	const n = 8
	release := make(chan struct{})
	var once sync.Once
	f.src.beforeFull = func() { once.Do(func() { <-release }) }
	r, err := New(f.cfg, Deps{Source: f.src})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := r.Lookup(ctx, "ABC123")
			if err == nil && !ok {
				err = catalog.ErrTierUnavailable
			}
			errs <- err
		}()
	}

	// todos calcularon su fingerprint (1 lectura de fila c/u) antes de liberar
	require.Eventually(t, func() bool {
		f.src.mu.Lock()
		defer f.src.mu.Unlock()
		return f.src.rowReads >= n
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	_, full := f.src.counts()
	require.Equal(t, 1, full)
}

func TestAsyncSnapshotWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := background.New(background.Config{Size: 4})
	t.Cleanup(func() { _ = q.Close(context.Background()) })

	cfg := f.cfg
	cfg.AsyncSnapshotWrites = true
	r, err := New(cfg, Deps{Source: f.src, Ephemeral: f.eph, Snapshot: f.snaps, Queue: q})
	require.NoError(t, err)

	_, err = r.Preload(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Flush(ctx))

	s, err := catalog.Decode(f.snaps.raw())
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
}

func TestInvalidateAll_DropsQueuedSnapshotWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := background.New(background.Config{Size: 4})
	t.Cleanup(func() { _ = q.Close(context.Background()) })

	release := make(chan struct{})
	require.True(t, q.Submit("block", func(context.Context) error { <-release; return nil }))

	cfg := f.cfg
	cfg.AsyncSnapshotWrites = true
	r, err := New(cfg, Deps{Source: f.src, Ephemeral: f.eph, Snapshot: f.snaps, Queue: q})
	require.NoError(t, err)

	_, err = r.Preload(ctx)
	require.NoError(t, err)
	require.NoError(t, r.InvalidateAll(ctx))
	close(release)
	require.NoError(t, r.Flush(ctx))

	_, err = catalog.Decode(f.snaps.raw())
	require.ErrorIs(t, err, catalog.ErrCleared)
}

func TestRefresh_ReportsStats(t *testing.T) {
	f := newFixture()
	r := f.resolver(t)
	stats, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, catalog.BuildStats{Rows: 4, Valid: 3, Skipped: 1}, stats)
}

func TestEmptySource_ClearsSharedTiers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.src = newCountingTable([][]any{{"date", "name", "qty", "code", "price"}})
	r := f.resolver(t)

	_, ok, err := r.Lookup(ctx, "ABC123")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, f.eph.raw(f.cfg.EphemeralKey))
	_, err = catalog.Decode(f.snaps.raw())
	require.ErrorIs(t, err, catalog.ErrCleared)
}

func TestEmptiedSource_NoStaleRecordsAfterRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r := f.resolver(t)
	_, err := r.Preload(ctx)
	require.NoError(t, err)

	for row := 2; row <= 5; row++ {
		require.NoError(t, f.src.ClearRange(ctx, row, 1, 5))
	}
	_, err = r.Refresh(ctx)
	require.NoError(t, err)
	require.Nil(t, f.eph.raw(f.cfg.EphemeralKey))

	f.clk.Advance(f.cfg.InProcessTTL + time.Second)
	_, ok, err := r.Lookup(ctx, "ABC123")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, r.State().Durable.Snapshot)

	// otro proceso con los mismos tiers compartidos
	_, ok, err = f.resolver(t).Lookup(ctx, "ABC123")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDurableMirror_IsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r := f.resolver(t)
	require.NoError(t, r.InvalidateAll(ctx))
	_, err := r.Preload(ctx)
	require.NoError(t, err)

	st := r.State()
	require.NotNil(t, st.Durable.Snapshot)
	require.NotSame(t, st.InProcess.Snapshot, st.Durable.Snapshot)
	require.Equal(t, st.InProcess.Snapshot.Records, st.Durable.Snapshot.Records)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.EphemeralStoreTTL = cfg.EphemeralTTL - time.Second
	require.Error(t, cfg.Validate())

	_, err := New(DefaultConfig(), Deps{})
	require.Error(t, err)
}
