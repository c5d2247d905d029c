package monitor

import (
	"sort"
	"time"

	"github.com/rewired-gh/mobatips/internal/models"
)

// mapRegistry remembers processed map identifiers. A zero ttl keeps entries forever.
type mapRegistry struct {
	ttl     time.Duration
	entries map[string]time.Time
}

func newMapRegistry(ttl time.Duration) *mapRegistry {
	return &mapRegistry{ttl: ttl, entries: make(map[string]time.Time)}
}

func (r *mapRegistry) MarkProcessed(mapID string, at time.Time) {
	r.entries[mapID] = at
}

func (r *mapRegistry) Contains(mapID string, now time.Time) bool {
	at, ok := r.entries[mapID]
	if !ok {
		return false
	}
	return r.ttl <= 0 || now.Sub(at) < r.ttl
}

// Prune drops expired entries and returns how many were removed.
func (r *mapRegistry) Prune(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	removed := 0
	for id, at := range r.entries {
		if now.Sub(at) >= r.ttl {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

func (r *mapRegistry) Clear() int {
	n := len(r.entries)
	r.entries = make(map[string]time.Time)
	return n
}

func (r *mapRegistry) Len() int {
	return len(r.entries)
}

// rateWindow is a sliding window over tip generation timestamps.
type rateWindow struct {
	limit  int
	window time.Duration
	stamps []time.Time
}

func newRateWindow(limit int, window time.Duration) *rateWindow {
	return &rateWindow{limit: limit, window: window}
}

func (w *rateWindow) prune(now time.Time) {
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if now.Sub(ts) < w.window {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept
}

// Available reports whether another tip may be generated now.
func (w *rateWindow) Available(now time.Time) bool {
	w.prune(now)
	return len(w.stamps) < w.limit
}

// TryReserve records a generation at now if a slot is free.
func (w *rateWindow) TryReserve(now time.Time) bool {
	if !w.Available(now) {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

func (w *rateWindow) Len(now time.Time) int {
	w.prune(now)
	return len(w.stamps)
}

// tipTable holds generated tips by tip ID until they are evicted.
type tipTable struct {
	tips map[string]*models.GeneratedTip
}

func newTipTable() *tipTable {
	return &tipTable{tips: make(map[string]*models.GeneratedTip)}
}

func (t *tipTable) Put(gt *models.GeneratedTip) {
	t.tips[gt.Tip.ID] = gt
}

func (t *tipTable) Delete(id string) {
	delete(t.tips, id)
}

func (t *tipTable) Len() int {
	return len(t.tips)
}

// Sorted returns the tips ordered by generation time, then ID.
func (t *tipTable) Sorted() []*models.GeneratedTip {
	out := make([]*models.GeneratedTip, 0, len(t.tips))
	for _, gt := range t.tips {
		out = append(out, gt)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.Before(out[j].GeneratedAt)
		}
		return out[i].Tip.ID < out[j].Tip.ID
	})
	return out
}

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// ttlCache is a keyed cache whose entries expire after ttl.
type ttlCache[V any] struct {
	ttl     time.Duration
	entries map[string]cacheEntry[V]
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{ttl: ttl, entries: make(map[string]cacheEntry[V])}
}

func (c *ttlCache[V]) Get(key string, now time.Time) (V, bool) {
	e, ok := c.entries[key]
	if !ok || now.Sub(e.storedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *ttlCache[V]) Put(key string, value V, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.entries[key] = cacheEntry[V]{value: value, storedAt: now}
}

func (c *ttlCache[V]) Prune(now time.Time) int {
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *ttlCache[V]) Len() int {
	return len(c.entries)
}
