package memo

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"maxSize"`
	HitRatio  float64 `json:"hitRatio"`
}

// Stats returns the current counters. HitRatio is zero before any lookup.
func (c *Cache[V]) Stats() Stats {
	s := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.Len(),
		MaxSize:   c.opts.maxEntries,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}

// ResetStats zeroes the counters without touching entries.
func (c *Cache[V]) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	c.evictions.Store(0)
}
