package orchestrator

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// statusCache fronts GetStatus with a short-lived in-memory cache, the
// same ephemeral local-cache shape the teacher stack uses for its
// session store: cheap reads under a hot polling loop, correctness
// unaffected because every stage transition writes through it
// immediately (there is no staleness window longer than one poll
// interval, and Orchestrator is single-writer per runId anyway).
type statusCache struct {
	c *gocache.Cache
}

func newStatusCache() *statusCache {
	return &statusCache{c: gocache.New(2*time.Second, 10*time.Second)}
}

func (s *statusCache) put(runID string, snap *StatusSnapshot) {
	s.c.SetDefault(runID, snap)
}

func (s *statusCache) get(runID string) (*StatusSnapshot, bool) {
	v, ok := s.c.Get(runID)
	if !ok {
		return nil, false
	}
	snap, ok := v.(*StatusSnapshot)
	return snap, ok
}
