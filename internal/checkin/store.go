package checkin

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 8 * time.Hour

// Store keeps one Session per operator.
type Store struct {
	opts SessionOptions
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[uint64]*Session
}

// NewStore returns an empty store.  Every session it creates shares opts.
func NewStore(opts SessionOptions, ttl time.Duration) *Store {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{opts: opts, ttl: ttl, sessions: make(map[uint64]*Session)}
}

// Get returns the operator's session, creating it and loading its snapshot
// on first use.  A session whose first load fails is not kept.
func (st *Store) Get(ctx context.Context, op Operator) (*Session, error) {
	now := st.opts.Clock.Now()

	st.mu.Lock()
	st.evictLocked(now)
	s, ok := st.sessions[op.AccountID]
	st.mu.Unlock()
	if ok {
		s.touch(now)
		return s, nil
	}

	s = NewSession(op, st.opts)
	if err := s.Refresh(ctx); err != nil {
		logger.Errorf("operator %d: load eligible reservations: %v", op.AccountID, err)
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if existing, ok := st.sessions[op.AccountID]; ok {
		existing.touch(now)
		return existing, nil
	}
	st.sessions[op.AccountID] = s
	return s, nil
}

// Drop discards the operator's session, releasing its camera.
func (st *Store) Drop(accountID uint64) {
	st.mu.Lock()
	s, ok := st.sessions[accountID]
	delete(st.sessions, accountID)
	st.mu.Unlock()
	if ok {
		_ = s.StopScanner()
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) evictLocked(now time.Time) {
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.ttl {
			_ = s.StopScanner()
			delete(st.sessions, id)
		}
	}
}
