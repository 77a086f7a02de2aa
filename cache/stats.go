package cache

import "sync"

// statsCounter tracks per-Manager usage. Counters are process-local and never persisted.
type statsCounter struct {
	mu    sync.Mutex
	stats Stats
}

func (s *statsCounter) hit() {
	s.mu.Lock()
	s.stats.Hits++
	s.recomputeLocked()
	s.mu.Unlock()
}

func (s *statsCounter) miss() {
	s.mu.Lock()
	s.stats.Misses++
	s.recomputeLocked()
	s.mu.Unlock()
}

func (s *statsCounter) set() {
	s.mu.Lock()
	s.stats.Sets++
	s.mu.Unlock()
}

func (s *statsCounter) deleted(n int64) {
	s.mu.Lock()
	s.stats.Deletes += n
	s.mu.Unlock()
}

func (s *statsCounter) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *statsCounter) reset() {
	s.mu.Lock()
	s.stats = Stats{}
	s.mu.Unlock()
}

func (s *statsCounter) recomputeLocked() {
	total := s.stats.Hits + s.stats.Misses
	if total == 0 {
		s.stats.HitRate = 0
		return
	}
	s.stats.HitRate = float64(s.stats.Hits) / float64(total)
}
