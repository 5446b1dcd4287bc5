package selection

import (
	"context"
	"sync"
	"time"

	id "anima/pkg/domain"
	"anima/pkg/platform/sentinel"
)

type pending struct {
	siteID    id.SiteID
	expiresAt time.Time
}

// InMemoryStore keeps pending choices in a map with lazy expiry.
type InMemoryStore struct {
	mu      sync.Mutex
	pending map[id.UserID]pending
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pending: make(map[id.UserID]pending),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Put(_ context.Context, userID id.UserID, siteID id.SiteID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = pending{siteID: siteID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Take(_ context.Context, userID id.UserID) (id.SiteID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	if !ok {
		return id.SiteID{}, sentinel.ErrNotFound
	}
	delete(s.pending, userID)
	if !s.now().Before(p.expiresAt) {
		return id.SiteID{}, sentinel.ErrNotFound
	}
	return p.siteID, nil
}
