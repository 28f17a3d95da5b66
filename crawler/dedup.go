package crawler

// SeenSet tracks which cross-referenced entity ids have already been
// emitted as definition records during the current run. Entities are
// captured by value at first observation; later sightings never re-emit.
// Single-writer: the crawl engine owns it for the run's lifetime.
type SeenSet struct {
	ids map[int64]struct{}
}

// NewSeenSet returns an empty run-scoped seen set.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[int64]struct{})}
}

// Observe records a sighting of id and reports whether this was the first,
// in which case the caller must emit the definition record.
func (s *SeenSet) Observe(id int64) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of distinct ids observed.
func (s *SeenSet) Len() int {
	return len(s.ids)
}
