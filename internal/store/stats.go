package store

import (
	"context"
	"sync"
	"time"

	"github.com/cairnmcp/cairn/internal/entity"
)

// Stats is the aggregate health view of the store.
type Stats struct {
	Projects       int    `json:"projects"`
	Tasks          int    `json:"tasks"`
	Memories       int    `json:"memories"`
	Templates      int    `json:"templates"`
	QueueDepth     int    `json:"queue_depth"`
	LastUpdated    string `json:"last_updated"`
	EstimatedBytes int64  `json:"estimated_bytes"`

	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Stats returns the current aggregate view. A short-lived cache absorbs
// repeated polling: entries expire after the configured TTL and are
// invalidated by any commit that changed an entity collection.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if st, ok := s.stats.get(s.cfg.StatsTTL); ok {
		return s.refreshVolatile(st), nil
	}

	gen := s.stats.generation()
	res, err := s.Submit(ctx, func(db *entity.Database) (Outcome, error) {
		return Outcome{Result: Stats{
			Projects:       len(db.Projects),
			Tasks:          len(db.Tasks),
			Memories:       len(db.Memories),
			Templates:      len(db.Templates),
			LastUpdated:    db.Meta.LastUpdated,
			EstimatedBytes: s.guard.Estimate(db),
		}}, nil
	})
	if err != nil {
		return Stats{}, err
	}
	st := res.(Stats)
	s.stats.put(st, gen)
	return s.refreshVolatile(st), nil
}

// refreshVolatile overlays the fields that change between cache refreshes.
func (s *Store) refreshVolatile(st Stats) Stats {
	st.QueueDepth = s.QueueDepth()
	st.CacheHits, st.CacheMisses = s.stats.counters()
	st.AvgLatencyMs = s.latency.averageMs()
	return st
}

// statsCache is a single-entry read cache with TTL expiry and
// commit-driven invalidation, with hit/miss counters.
type statsCache struct {
	mu     sync.Mutex
	value  Stats
	stored time.Time
	valid  bool
	gen    uint64
	hits   uint64
	misses uint64
}

func (c *statsCache) get(ttl time.Duration) (Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && time.Since(c.stored) < ttl {
		c.hits++
		return c.value, true
	}
	c.misses++
	return Stats{}, false
}

// generation returns the current invalidation counter. A refresh reads
// it before computing the entry and hands it back to put, so an entry
// computed against state that was invalidated in the meantime is
// discarded rather than cached.
func (c *statsCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *statsCache) put(st Stats, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.value = st
	c.stored = time.Now()
	c.valid = true
}

// invalidate drops the cached entry when a commit touched any entity
// collection. Meta-only commits keep the counts valid, so the entry
// survives those.
func (c *statsCache) invalidate(changed entity.ChangeSet) {
	if changed&^entity.ChangedMeta == 0 {
		return
	}
	c.mu.Lock()
	c.valid = false
	c.gen++
	c.mu.Unlock()
}

func (c *statsCache) counters() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// latencyWindow keeps a rolling window of recent operation durations
// for the reported average.
const latencyWindowSize = 64

type latencyWindow struct {
	mu      sync.Mutex
	samples [latencyWindowSize]time.Duration
	next    int
	filled  int
}

func (w *latencyWindow) observe(d time.Duration) {
	w.mu.Lock()
	w.samples[w.next] = d
	w.next = (w.next + 1) % latencyWindowSize
	if w.filled < latencyWindowSize {
		w.filled++
	}
	w.mu.Unlock()
}

func (w *latencyWindow) averageMs() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.filled == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < w.filled; i++ {
		total += w.samples[i]
	}
	return float64(total.Microseconds()) / 1000 / float64(w.filled)
}
