package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue_RunsInOrderAndDrains(t *testing.T) {
	q := New(Config{Size: 8})
	t.Cleanup(func() { _ = q.Close(context.Background()) })

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, q.Submit("write", func(context.Context) error {
			order = append(order, i)
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
	require.Zero(t, q.Pending())
}

func TestQueue_RecordsFailuresAndPanics(t *testing.T) {
	q := New(Config{MaxFailures: 2})
	t.Cleanup(func() { _ = q.Close(context.Background()) })

	q.Submit("a", func(context.Context) error { return errors.New("boom a") })
	q.Submit("b", func(context.Context) error { panic("boom b") })
	q.Submit("c", func(context.Context) error { return errors.New("boom c") })
	require.NoError(t, q.Drain(context.Background()))

	f := q.Failures()
	require.Len(t, f, 2)
	require.Equal(t, "b", f[0].Name)
	require.Contains(t, f[0].Err, "panic")
	require.Equal(t, "c", f[1].Name)
}

func TestQueue_FullAndClosed(t *testing.T) {
	q := New(Config{Size: 1})
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, q.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, q.Submit("queued", func(context.Context) error { return nil }))
	require.False(t, q.Submit("overflow", func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, q.Close(context.Background()))
	require.False(t, q.Submit("late", func(context.Context) error { return nil }))
}

func TestQueue_DrainHonorsContext(t *testing.T) {
	q := New(Config{})
	release := make(chan struct{})
	var ran atomic.Bool
	q.Submit("slow", func(context.Context) error {
		<-release
		ran.Store(true)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Drain(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, q.Close(context.Background()))
	require.True(t, ran.Load())
}
