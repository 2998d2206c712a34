// File: store.go
package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrDuplicateID     = errors.New("store: duplicate challenge id")
	ErrUnknown         = errors.New("store: unknown challenge")
	ErrExpired         = errors.New("store: challenge expired")
	ErrAlreadyConsumed = errors.New("store: challenge already consumed")
)

type entry[V any] struct {
	value    V
	issuedAt time.Time
	ttl      time.Duration
	consumed bool
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.issuedAt) > e.ttl
}

// Table maps challenge ids to pending solutions. An id can be taken successfully
// at most once; consumed entries stay behind as tombstones until their TTL runs
// out so replays are reported as ErrAlreadyConsumed instead of ErrUnknown.
type Table[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	now     func() time.Time

	stopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[V any](opts ...Option) *Table[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Table[V]{
		entries: make(map[string]*entry[V]),
		now:     o.now,
	}
}

// Put registers a new pending value.
func (t *Table[V]) Put(id string, v V, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; ok {
		return ErrDuplicateID
	}
	t.entries[id] = &entry[V]{value: v, issuedAt: t.now(), ttl: ttl}
	return nil
}

// Take checks expiry and consumption and marks the entry consumed in one step.
func (t *Table[V]) Take(id string) (V, error) {
	var zero V
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return zero, ErrUnknown
	}
	if e.consumed {
		return zero, ErrAlreadyConsumed
	}
	if e.expired(t.now()) {
		delete(t.entries, id)
		return zero, ErrExpired
	}
	e.consumed = true
	return e.value, nil
}

// Sweep drops every entry past its TTL and reports how many were removed.
func (t *Table[V]) Sweep() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, e := range t.entries {
		if e.expired(now) {
			delete(t.entries, id)
			n++
		}
	}
	return n
}

// Len counts pending and tombstoned entries.
func (t *Table[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Start runs Sweep every interval until ctx is done or Close is called.
// onSweep, when non-nil, receives the number of removed entries.
func (t *Table[V]) Start(ctx context.Context, interval time.Duration, onSweep func(int)) {
	t.stopMu.Lock()
	defer t.stopMu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n := t.Sweep()
				if onSweep != nil {
					onSweep(n)
				}
			}
		}
	}(t.done)
}

// Close stops the sweeper and waits for it to exit. Safe to call more than once.
func (t *Table[V]) Close() {
	t.stopMu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.stopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
