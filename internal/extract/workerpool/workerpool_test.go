package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(paths ...string) <-chan string {
	ch := make(chan string, len(paths))
	for _, p := range paths {
		ch <- p
	}
	close(ch)
	return ch
}

func TestPoolProcessesEverything(t *testing.T) {
	pool := New(Config{Workers: 3})

	var mu sync.Mutex
	seen := map[string]bool{}
	err := pool.Run(context.Background(), feed("a", "b", "c", "d", "e"), func(ctx context.Context, path string) {
		mu.Lock()
		seen[path] = true
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Len(t, seen, 5)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := New(Config{Workers: 2})

	var active, peak int32
	err := pool.Run(context.Background(), feed("a", "b", "c", "d", "e", "f"), func(ctx context.Context, path string) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestPoolStopsOnCancel(t *testing.T) {
	pool := New(Config{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())

	paths := make(chan string)
	go func() {
		paths <- "first"
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		done <- pool.Run(ctx, paths, func(ctx context.Context, path string) {})
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop on cancellation")
	}
}

func TestDefaultsApplied(t *testing.T) {
	pool := New(Config{})
	assert.Equal(t, 4, pool.cfg.Workers)
	assert.Greater(t, pool.cfg.ItemTimeout, time.Duration(0))
}
