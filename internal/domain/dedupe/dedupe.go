// Package dedupe provides idempotency tracking for analysis artifacts:
// similarity-edge pair keys, bootstrap run IDs, and fit job IDs.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys so repeated submissions are processed at most
// once.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it
	// if not. Returns true when key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing it to be resubmitted. Intended for
	// keys that were recorded but whose processing failed.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper is a map-backed Deduper. In bounded mode (maxSize > 0) a
// FIFO ring of keys drives eviction of the oldest entries; with maxSize <= 0
// the set grows without limit.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates an in-memory deduper. The default capacity of
// 50000 keys suits a single screening campaign.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: 50000}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.maxSize > 0 {
		// Evict whatever occupied this ring slot maxSize insertions ago.
		if old := d.ring[d.next]; old != "" {
			if _, exists := d.seen[old]; exists {
				delete(d.seen, old)
				d.size.Add(-1)
			}
		}
		d.ring[d.next] = key
		d.next = (d.next + 1) % d.maxSize
	}

	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
