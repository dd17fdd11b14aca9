// Package memo provides a small keyed cache for expensive upstream fetches.
// Entries live until their TTL passes or the table is invalidated, for
// example after the user saves new preferences.
package memo

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Table memoizes the results of a fetch function per key. The zero value is
// not usable; construct with New.
type Table[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// New constructs a table whose entries expire after ttl.
func New[K comparable, V any](ttl time.Duration) *Table[K, V] {
	return &Table[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Do returns the cached value for key, calling fetch to populate it when the
// entry is missing or expired. A failed fetch caches nothing.
func (t *Table[K, V]) Do(ctx context.Context, key K, fetch func(context.Context) (V, error)) (V, error) {
	t.mu.Lock()
	if e, ok := t.entries[key]; ok && t.now().Sub(e.fetchedAt) < t.ttl {
		t.mu.Unlock()
		return e.value, nil
	}
	t.mu.Unlock()

	value, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	t.mu.Lock()
	t.entries[key] = entry[V]{value: value, fetchedAt: t.now()}
	t.mu.Unlock()
	return value, nil
}

// Invalidate drops every entry so the next Do call fetches fresh data.
func (t *Table[K, V]) Invalidate() {
	t.mu.Lock()
	t.entries = make(map[K]entry[V])
	t.mu.Unlock()
}
