package ingest

import "sync"

// DefaultRingCapacity bounds the creation-observed mint buffer.
const DefaultRingCapacity = 4096

// Ring is a fixed-capacity buffer of the most recently created mints.
// The normalizer records init and pool-creation candidates into it;
// membership lookups back the fresh-mint swap policy and Recent serves
// polling consumers.
type Ring struct {
	mu     sync.RWMutex
	buf    []string
	index  map[string]int
	next   int
	filled bool
}

// NewRing creates a ring holding up to capacity asset IDs.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		buf:   make([]string, capacity),
		index: make(map[string]int, capacity),
	}
}

// Add records an asset ID, evicting the oldest entry when full.
// Re-adding a present ID is a no-op.
func (r *Ring) Add(assetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[assetID]; ok {
		return
	}

	if evicted := r.buf[r.next]; evicted != "" {
		delete(r.index, evicted)
	}
	r.buf[r.next] = assetID
	r.index[assetID] = r.next
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.filled = true
	}
}

// Contains reports whether the asset ID is still in the buffer.
func (r *Ring) Contains(assetID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[assetID]
	return ok
}

// Recent returns up to n asset IDs, newest first.
func (r *Ring) Recent(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.filled {
		size = len(r.buf)
	}
	if n > size {
		n = size
	}

	out := make([]string, 0, n)
	pos := r.next - 1
	for len(out) < n {
		if pos < 0 {
			pos = len(r.buf) - 1
		}
		out = append(out, r.buf[pos])
		pos--
	}
	return out
}

// Len returns the number of buffered asset IDs.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.filled {
		return len(r.buf)
	}
	return r.next
}
