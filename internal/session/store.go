package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/kalambet/skinshop/internal/catalog"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Store holds conversation sessions.
type Store interface {
	Create(ctx context.Context) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	GetOrCreate(ctx context.Context, id string) (Session, bool, error)
	AppendTurn(ctx context.Context, id string, t Turn) error
	ExtractPreferences(ctx context.Context, id, query string) (catalog.Preferences, error)
	Summary(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// MemoryStore keeps sessions in process memory. Writers on the same session
// are serialized by a per-session mutex; different sessions never contend.
// Every returned Session is a deep copy.
type MemoryStore struct {
	cache *cache.Cache
	clock Clock

	locks sync.Map // id -> *sync.Mutex
}

// NewMemoryStore creates a MemoryStore. A positive ttl expires sessions that
// have been idle that long; zero keeps them until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return NewMemoryStoreWithClock(ttl, realClock{})
}

// NewMemoryStoreWithClock creates a MemoryStore with a custom clock (for testing).
func NewMemoryStoreWithClock(ttl time.Duration, clock Clock) *MemoryStore {
	exp, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		exp, cleanup = ttl, ttl/2
	}
	s := &MemoryStore{cache: cache.New(exp, cleanup), clock: clock}
	s.cache.OnEvicted(func(id string, _ any) {
		slog.Debug("session evicted", "session_id", id)
	})
	return s
}

func (s *MemoryStore) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *MemoryStore) load(id string) (*Session, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// save refreshes the idle timer as a side effect.
func (s *MemoryStore) save(sess *Session) {
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
}

func (s *MemoryStore) create(id string) *Session {
	now := s.clock.Now()
	sess := &Session{ID: id, History: []Turn{}, CreatedAt: now, LastActivity: now}
	s.save(sess)
	slog.Debug("session created", "session_id", id)
	return sess
}

// Create starts a session under a fresh id.
func (s *MemoryStore) Create(ctx context.Context) (Session, error) {
	sess, _, err := s.GetOrCreate(ctx, "")
	return sess, err
}

// Get returns the session and marks it active.
func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, ok := s.load(id)
	if !ok {
		return Session{}, ErrNotFound
	}
	sess.LastActivity = s.clock.Now()
	s.save(sess)
	return sess.clone(), nil
}

// GetOrCreate returns the session for id, creating it when missing. An empty
// id gets a new random one. The bool reports whether a session was created.
func (s *MemoryStore) GetOrCreate(_ context.Context, id string) (Session, bool, error) {
	if id == "" {
		id = uuid.NewString()
	}
	unlock := s.lock(id)
	defer unlock()

	if sess, ok := s.load(id); ok {
		sess.LastActivity = s.clock.Now()
		s.save(sess)
		return sess.clone(), false, nil
	}
	return s.create(id).clone(), true, nil
}

// AppendTurn records a turn, keeping at most MaxHistory.
func (s *MemoryStore) AppendTurn(_ context.Context, id string, t Turn) error {
	unlock := s.lock(id)
	defer unlock()

	sess, ok := s.load(id)
	if !ok {
		return ErrNotFound
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = s.clock.Now()
	}
	if t.ProductIDs != nil {
		t.ProductIDs = append([]string(nil), t.ProductIDs...)
	}
	sess.appendTurn(t)
	sess.LastActivity = s.clock.Now()
	s.save(sess)
	return nil
}

// ExtractPreferences merges what query reveals into the session preferences
// and returns the result.
func (s *MemoryStore) ExtractPreferences(_ context.Context, id, query string) (catalog.Preferences, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, ok := s.load(id)
	if !ok {
		return catalog.Preferences{}, ErrNotFound
	}
	sess.Preferences = Extract(query, sess.Preferences)
	s.save(sess)
	if !sess.Preferences.IsZero() {
		slog.Debug("preferences updated", "session_id", id, "preferences", sess.Preferences.Summary())
	}
	return sess.Preferences.Clone(), nil
}

// Summary returns the conversation summary for id.
func (s *MemoryStore) Summary(_ context.Context, id string) (string, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, ok := s.load(id)
	if !ok {
		return "", ErrNotFound
	}
	return Summarize(sess.History), nil
}

// Delete removes the session. Unknown ids return ErrNotFound.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	if _, ok := s.load(id); !ok {
		return ErrNotFound
	}
	s.cache.Delete(id)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
