package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestPutTake(t *testing.T) {
	tbl := New[string]()
	require.NoError(t, tbl.Put("a", "answer", time.Minute))

	v, err := tbl.Take("a")
	require.NoError(t, err)
	assert.Equal(t, "answer", v)

	_, err = tbl.Take("a")
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestPut_Duplicate(t *testing.T) {
	tbl := New[int]()
	require.NoError(t, tbl.Put("a", 1, time.Minute))
	assert.ErrorIs(t, tbl.Put("a", 2, time.Minute), ErrDuplicateID)

	v, err := tbl.Take("a")
	require.NoError(t, err)
	assert.Equal(t, 1, v, "duplicate put must not overwrite")
}

func TestTake_Unknown(t *testing.T) {
	tbl := New[int]()
	_, err := tbl.Take("missing")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestTake_Expired(t *testing.T) {
	clk := newClock()
	tbl := New[int](WithClock(clk.Now))
	require.NoError(t, tbl.Put("a", 1, 10*time.Second))

	clk.Advance(10 * time.Second)
	require.NoError(t, tbl.Put("b", 2, 10*time.Second))
	clk.Advance(time.Millisecond)

	_, err := tbl.Take("a")
	assert.ErrorIs(t, err, ErrExpired)
	_, err = tbl.Take("a")
	assert.ErrorIs(t, err, ErrUnknown, "expired entries are dropped on take")

	v, err := tbl.Take("b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestTake_ExactTTLStillValid(t *testing.T) {
	clk := newClock()
	tbl := New[int](WithClock(clk.Now))
	require.NoError(t, tbl.Put("a", 1, time.Second))
	clk.Advance(time.Second)

	_, err := tbl.Take("a")
	assert.NoError(t, err)
}

func TestSweep(t *testing.T) {
	clk := newClock()
	tbl := New[int](WithClock(clk.Now))
	require.NoError(t, tbl.Put("old", 1, time.Second))
	require.NoError(t, tbl.Put("used", 2, time.Second))
	_, err := tbl.Take("used")
	require.NoError(t, err)

	clk.Advance(500 * time.Millisecond)
	require.NoError(t, tbl.Put("fresh", 3, time.Second))
	assert.Equal(t, 0, tbl.Sweep())

	clk.Advance(600 * time.Millisecond)
	assert.Equal(t, 2, tbl.Sweep())
	assert.Equal(t, 1, tbl.Len())

	v, err := tbl.Take("fresh")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestTake_ConcurrentSingleWinner(t *testing.T) {
	tbl := New[int]()
	for i := 0; i < 50; i++ {
		require.NoError(t, tbl.Put(fmt.Sprint(i), i, time.Minute))
	}

	var wins [50]atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := tbl.Take(fmt.Sprint(i)); err == nil {
					wins[i].Add(1)
				}
			}
		}()
	}
	wg.Wait()

	for i := range wins {
		assert.Equal(t, int32(1), wins[i].Load(), "id %d", i)
	}
}

func TestStartClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	clk := newClock()
	tbl := New[int](WithClock(clk.Now))
	require.NoError(t, tbl.Put("a", 1, time.Millisecond))
	clk.Advance(time.Second)

	swept := make(chan int, 8)
	tbl.Start(context.Background(), 5*time.Millisecond, func(n int) {
		select {
		case swept <- n:
		default:
		}
	})

	select {
	case n := <-swept:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ran")
	}

	tbl.Close()
	tbl.Close()
	assert.Equal(t, 0, tbl.Len())
}

func TestStart_ContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	tbl := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	tbl.Start(ctx, time.Hour, nil)
	cancel()
	tbl.Close()
}
