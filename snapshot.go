package transit

import (
	"sync"
	"time"

	"github.com/lodzlive/transit/model"
)

// Snapshot is one complete, immutable result of a successful poll
// cycle. Consumers must treat it as read-only.
type Snapshot struct {
	Records []model.JoinedRecord
	Alerts  []model.AlertRecord

	VehicleEntities    int
	StopTimeUpdateRows int
	FeedTimestamp      uint64
	FetchedAt          time.Time
}

// Store holds the latest published snapshot. It has exactly one
// writer (the poll loop) and any number of readers; readers receive
// the snapshot pointer and never mutate through it. A failed cycle
// publishes nothing, so readers keep seeing the last good snapshot.
type Store struct {
	mu     sync.RWMutex
	latest *Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Publish swaps in a new snapshot.
func (s *Store) Publish(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = snap
}

// Latest returns the most recent snapshot, or nil before the first
// successful cycle.
func (s *Store) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
