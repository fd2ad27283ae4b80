package registration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoPending is returned when no unexpired registration exists for an
// email.
var ErrNoPending = errors.New("no pending registration for this email")

// Pending is a registration waiting for its code.  The password is already
// hashed.
type Pending struct {
	Form         Form      `json:"form"`
	PasswordHash string    `json:"password_hash"`
	Code         string    `json:"code"`
	SentAt       time.Time `json:"sent_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Attempts     int       `json:"attempts"`
}

// Store parks pending registrations keyed by normalized email.
type Store interface {
	Save(ctx context.Context, email string, p Pending, ttl time.Duration) error
	Load(ctx context.Context, email string) (Pending, error)
	Delete(ctx context.Context, email string) error
}

// RedisStore keeps pending registrations as JSON strings with a TTL.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore returns a store writing keys "<prefix>:<email>".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(email string) string { return s.prefix + ":" + email }

func (s *RedisStore) Save(ctx context.Context, email string, p Pending, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(email), b, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, email string) (Pending, error) {
	b, err := s.rdb.Get(ctx, s.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, ErrNoPending
	}
	if err != nil {
		return Pending{}, err
	}
	var p Pending
	if err := json.Unmarshal(b, &p); err != nil {
		return Pending{}, err
	}
	return p, nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, s.key(email)).Err()
}

// MemoryStore is the single-process fallback used when Redis is not
// reachable.
type MemoryStore struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	p       Pending
	expires time.Time
}

// NewMemoryStore returns an empty store.  A nil now means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(_ context.Context, email string, p Pending, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[email] = memoryEntry{p: p, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, email string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[email]
	if !ok {
		return Pending{}, ErrNoPending
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, email)
		return Pending{}, ErrNoPending
	}
	return e.p, nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
	return nil
}
