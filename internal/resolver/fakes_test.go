package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dropDatabas3/hellopos/internal/cache"
	"github.com/dropDatabas3/hellopos/internal/sheet"
	"github.com/dropDatabas3/hellopos/internal/sheet/memory"
	"github.com/dropDatabas3/hellopos/internal/snapshot"
)

var errFake = errors.New("fake: unavailable")

// countingTable cuenta llamadas contra la fuente y puede fallar a pedido.
type countingTable struct {
	t sheet.Table

	mu        sync.Mutex
	calls     int
	fullReads int
	rowReads  int
	fail      bool
	// beforeFull, si no es nil, corre antes de cada lectura de más de una fila.
	beforeFull func()
}

func newCountingTable(rows [][]any) *countingTable {
	return &countingTable{t: memory.FromRows(rows)}
}

func (c *countingTable) enter(numRows int) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return nil, errFake
	}
	var hook func()
	switch {
	case numRows > 1:
		c.fullReads++
		hook = c.beforeFull
	case numRows == 1:
		c.rowReads++
	}
	return hook, nil
}

func (c *countingTable) setFail(v bool) {
	c.mu.Lock()
	c.fail = v
	c.mu.Unlock()
}

func (c *countingTable) counts() (calls, full int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.fullReads
}

func (c *countingTable) RowCount(ctx context.Context) (int, error) {
	if _, err := c.enter(0); err != nil {
		return 0, err
	}
	return c.t.RowCount(ctx)
}

func (c *countingTable) ColumnCount(ctx context.Context) (int, error) {
	if _, err := c.enter(0); err != nil {
		return 0, err
	}
	return c.t.ColumnCount(ctx)
}

func (c *countingTable) ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([][]any, error) {
	hook, err := c.enter(numRows)
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook()
	}
	return c.t.ReadRange(ctx, startRow, startCol, numRows, numCols)
}

func (c *countingTable) WriteRange(ctx context.Context, row, col int, values [][]any) error {
	return c.t.WriteRange(ctx, row, col, values)
}

func (c *countingTable) ClearRange(ctx context.Context, row, col, numCols int) error {
	return c.t.ClearRange(ctx, row, col, numCols)
}

// fakeCache tier efímero en memoria, sin expiración propia.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	puts    int
	failGet bool
	failPut bool
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet {
		return nil, errFake
	}
	b, ok := f.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return b, nil
}

func (f *fakeCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failPut {
		return errFake
	}
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeCache) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeCache) Ping(context.Context) error { return nil }
func (f *fakeCache) Close() error               { return nil }

func (f *fakeCache) raw(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key]
}

func (f *fakeCache) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// fakeSnapshots snapshot store en memoria.
type fakeSnapshots struct {
	mu       sync.Mutex
	blob     []byte
	reads    int
	writes   int
	failRead bool
}

func (f *fakeSnapshots) ReadBlob(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failRead {
		return nil, errFake
	}
	if f.blob == nil {
		return nil, snapshot.ErrNotFound
	}
	return f.blob, nil
}

func (f *fakeSnapshots) WriteBlob(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.blob = append([]byte(nil), data...)
	return nil
}

func (f *fakeSnapshots) Close() error { return nil }

func (f *fakeSnapshots) raw() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blob
}

// clock reloj manual.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
