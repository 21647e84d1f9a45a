// Package dedupe provides time-boxed single-flight admission control per
// asset ID, preventing duplicate enrichment work.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// Gate admits at most one enrichment per asset ID within a TTL window.
// Implementations must be safe under concurrent callers: two simultaneous
// admission attempts for the same asset ID yield exactly one true.
// On a backing-store failure the caller must treat the result as a denial
// (fail closed).
type Gate interface {
	// TryAdmit atomically checks for an unexpired entry and records a new
	// one when absent. Returns true when the caller owns the admission.
	TryAdmit(ctx context.Context, assetID string, ttl time.Duration) (bool, error)
}

// entry is one recorded admission.
type entry struct {
	lastAttemptAtMs int64
	ttlMs           int64
}

// MemoryGate is the in-process Gate backing for single-instance
// deployments.
type MemoryGate struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryGate creates an empty in-process gate.
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// TryAdmit implements Gate. It never fails.
func (g *MemoryGate) TryAdmit(_ context.Context, assetID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nowMs := g.now().UnixMilli()

	if e, ok := g.entries[assetID]; ok {
		if nowMs < e.lastAttemptAtMs+e.ttlMs {
			return false, nil
		}
	}

	g.entries[assetID] = entry{lastAttemptAtMs: nowMs, ttlMs: ttl.Milliseconds()}

	// Opportunistic sweep keeps the map from growing without bound.
	if len(g.entries) > 4096 {
		for id, e := range g.entries {
			if nowMs >= e.lastAttemptAtMs+e.ttlMs {
				delete(g.entries, id)
			}
		}
	}

	return true, nil
}

// Len returns the number of tracked entries, expired ones included.
func (g *MemoryGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
