// Package tracker accumulates per-engine usage statistics across the process
// lifetime. Counters complement the registry's last-outcome health records:
// the registry answers "is it healthy now", the tracker answers "how has it
// been doing".
package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks invocation statistics per engine.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*EngineStats
}

// EngineStats holds counters for one engine.
// Fields are accessed atomically.
type EngineStats struct {
	Calls       int64
	Successes   int64
	Failures    int64
	Timeouts    int64
	ZeroResults int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*EngineStats),
	}
}

// getStats returns the stats object for an engine, creating it if needed.
func (t *Tracker) getStats(engine string) *EngineStats {
	t.mu.RLock()
	s, ok := t.stats[engine]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[engine]; ok {
		return s
	}
	s = &EngineStats{}
	t.stats[engine] = s
	return s
}

// TrackSuccess counts a completed invocation. zeroResult marks a success
// that produced no descriptions.
func (t *Tracker) TrackSuccess(engine string, zeroResult bool) {
	s := t.getStats(engine)
	atomic.AddInt64(&s.Calls, 1)
	atomic.AddInt64(&s.Successes, 1)
	if zeroResult {
		atomic.AddInt64(&s.ZeroResults, 1)
	}
}

// TrackFailure counts a failed invocation.
func (t *Tracker) TrackFailure(engine string, timeout bool) {
	s := t.getStats(engine)
	atomic.AddInt64(&s.Calls, 1)
	atomic.AddInt64(&s.Failures, 1)
	if timeout {
		atomic.AddInt64(&s.Timeouts, 1)
	}
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]EngineStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]EngineStats)
	for k, v := range t.stats {
		result[k] = EngineStats{
			Calls:       atomic.LoadInt64(&v.Calls),
			Successes:   atomic.LoadInt64(&v.Successes),
			Failures:    atomic.LoadInt64(&v.Failures),
			Timeouts:    atomic.LoadInt64(&v.Timeouts),
			ZeroResults: atomic.LoadInt64(&v.ZeroResults),
		}
	}
	return result
}
