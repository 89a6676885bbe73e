package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"campus-idcards/editor"
)

// DefaultSessionTTL is how long an idle editor session is kept
const DefaultSessionTTL = 2 * time.Hour

const maxUpdateAttempts = 10

func decodeSession(data []byte) (*editor.CanvasState, error) {
	var state editor.CanvasState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &state, nil
}

// MemorySessionStore keeps sessions in process. Entries expire after ttl of inactivity.
// Implements SessionStoreInterface
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	locks    sync.Map // session id -> *sync.Mutex held by Update
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	data      []byte
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-memory store
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Ensure MemorySessionStore implements SessionStoreInterface
var _ SessionStoreInterface = (*MemorySessionStore)(nil)

// Create stores a new session and returns its id
func (s *MemorySessionStore) Create(ctx context.Context, state *editor.CanvasState) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	s.sessions[id] = memorySession{data: data, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	log.Printf("✓ Editor session created: %s", id)
	return id, nil
}

// Get returns a copy of the session state; changes go through Update
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*editor.CanvasState, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		if ok {
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
		}
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return decodeSession(entry.data)
}

func (s *MemorySessionStore) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Update applies fn to the session. Updates of one session run one at a time.
func (s *MemorySessionStore) Update(ctx context.Context, id string, fn func(state *editor.CanvasState) error) (*editor.CanvasState, error) {
	unlock := s.lock(id)
	defer unlock()

	state, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	if err := s.save(id, state); err != nil {
		return nil, err
	}
	return state, nil
}

// save replaces the session state and refreshes its expiry
func (s *MemorySessionStore) save(id string, state *editor.CanvasState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.sessions, id)
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.sessions[id] = memorySession{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Delete removes a session; unknown ids are ignored
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.locks.Delete(id)
	return nil
}

// RedisSessionStore keeps sessions as JSON values with a TTL.
// Implements SessionStoreInterface
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a store on an existing client
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Ensure RedisSessionStore implements SessionStoreInterface
var _ SessionStoreInterface = (*RedisSessionStore)(nil)

func sessionKey(id string) string {
	return "idcards:session:" + id
}

// Create stores a new session and returns its id
func (s *RedisSessionStore) Create(ctx context.Context, state *editor.CanvasState) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(id), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	log.Printf("✓ Editor session created: %s", id)
	return id, nil
}

// Get loads the session state
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*editor.CanvasState, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return decodeSession(data)
}

// Update applies fn under WATCH and writes the result in a MULTI block,
// retrying when another request changed the session in between. The TTL is
// refreshed; a session that expired is not recreated.
func (s *RedisSessionStore) Update(ctx context.Context, id string, fn func(state *editor.CanvasState) error) (*editor.CanvasState, error) {
	key := sessionKey(id)
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		var state *editor.CanvasState
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
			}
			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}
			if state, err = decodeSession(data); err != nil {
				return err
			}
			if err := fn(state); err != nil {
				return err
			}
			out, err := json.Marshal(state)
			if err != nil {
				return fmt.Errorf("failed to encode session: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, s.ttl)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			log.Printf("🔄 Session %s changed during update, retrying (%d/%d)", id, attempt, maxUpdateAttempts)
			continue
		}
		if err != nil {
			return nil, err
		}
		return state, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionBusy, id)
}

// Delete removes a session
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
