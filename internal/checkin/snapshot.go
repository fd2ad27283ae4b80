package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

// Snapshot is the in-memory copy of check-in eligible reservations that
// lookups run against.  It is only replaced wholesale by Refresh.
type Snapshot struct {
	mu        sync.RWMutex
	items     []model.Reservation
	fetchedAt time.Time
}

// Refresh replaces the snapshot with the gateway's current eligible set.  On
// error the previous contents are kept.
func (s *Snapshot) Refresh(ctx context.Context, gw Gateway, now time.Time) error {
	items, err := gw.FindEligibleReservations(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = items
	s.fetchedAt = now
	s.mu.Unlock()
	return nil
}

// Items returns a copy of the current snapshot.
func (s *Snapshot) Items() []model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reservation, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of reservations held.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// FetchedAt returns when the snapshot was last refreshed.
func (s *Snapshot) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}
