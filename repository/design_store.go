package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DesignHash is the content address of a design image
func DesignHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoryDesignStore keeps design images in process. Entries expire after ttl
// without a Put, Get or Touch.
// Implements DesignStoreInterface
type MemoryDesignStore struct {
	mu      sync.Mutex
	designs map[string]memoryDesign
	ttl     time.Duration
	now     func() time.Time
}

type memoryDesign struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryDesignStore creates an in-memory design store
func NewMemoryDesignStore(ttl time.Duration) *MemoryDesignStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryDesignStore{
		designs: make(map[string]memoryDesign),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Ensure MemoryDesignStore implements DesignStoreInterface
var _ DesignStoreInterface = (*MemoryDesignStore)(nil)

// Put stores data and returns its hash. Storing the same bytes twice keeps one copy.
func (s *MemoryDesignStore) Put(ctx context.Context, data []byte) (string, error) {
	hash := DesignHash(data)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for h, d := range s.designs {
		if now.After(d.expiresAt) {
			delete(s.designs, h)
		}
	}
	s.designs[hash] = memoryDesign{data: data, expiresAt: now.Add(s.ttl)}
	log.Printf("💾 Design stored: %s (%d bytes)", hash[:12], len(data))
	return hash, nil
}

// Get returns the design bytes and refreshes the expiry
func (s *MemoryDesignStore) Get(ctx context.Context, hash string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.refresh(hash)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDesignNotFound, hash)
	}
	return d.data, nil
}

// Touch refreshes the expiry of a stored design
func (s *MemoryDesignStore) Touch(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refresh(hash); !ok {
		return fmt.Errorf("%w: %s", ErrDesignNotFound, hash)
	}
	return nil
}

// refresh extends a live entry. Callers hold mu.
func (s *MemoryDesignStore) refresh(hash string) (memoryDesign, bool) {
	d, ok := s.designs[hash]
	now := s.now()
	if !ok || now.After(d.expiresAt) {
		delete(s.designs, hash)
		return memoryDesign{}, false
	}
	d.expiresAt = now.Add(s.ttl)
	s.designs[hash] = d
	return d, true
}

// RedisDesignStore keeps design images as raw values with a TTL.
// Implements DesignStoreInterface
type RedisDesignStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDesignStore creates a design store on an existing client
func NewRedisDesignStore(client *redis.Client, ttl time.Duration) *RedisDesignStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisDesignStore{client: client, ttl: ttl}
}

// Ensure RedisDesignStore implements DesignStoreInterface
var _ DesignStoreInterface = (*RedisDesignStore)(nil)

func designKey(hash string) string {
	return "idcards:design:" + hash
}

// Put stores data under its hash
func (s *RedisDesignStore) Put(ctx context.Context, data []byte) (string, error) {
	hash := DesignHash(data)
	if err := s.client.Set(ctx, designKey(hash), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store design: %w", err)
	}
	log.Printf("💾 Design stored: %s (%d bytes)", hash[:12], len(data))
	return hash, nil
}

// Get returns the design bytes and refreshes the TTL
func (s *RedisDesignStore) Get(ctx context.Context, hash string) ([]byte, error) {
	data, err := s.client.GetEx(ctx, designKey(hash), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrDesignNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load design: %w", err)
	}
	return data, nil
}

// Touch refreshes the TTL of a stored design
func (s *RedisDesignStore) Touch(ctx context.Context, hash string) error {
	ok, err := s.client.Expire(ctx, designKey(hash), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh design: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDesignNotFound, hash)
	}
	return nil
}
