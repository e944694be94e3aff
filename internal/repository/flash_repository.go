package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/course-enrollment/internal/models"
)

// RedisFlashRepository keeps pending flash messages in a Redis list per session.
type RedisFlashRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFlashRepository constructs a Redis-backed flash store.
func NewRedisFlashRepository(client *redis.Client, ttl time.Duration) *RedisFlashRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisFlashRepository{client: client, ttl: ttl}
}

func flashKey(sessionID string) string {
	return "flash:" + sessionID
}

// Push appends a flash to the session's queue and refreshes its expiry.
func (r *RedisFlashRepository) Push(ctx context.Context, sessionID string, flash models.Flash) error {
	payload, err := json.Marshal(flash)
	if err != nil {
		return fmt.Errorf("marshal flash: %w", err)
	}
	key := flashKey(sessionID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push flash: %w", err)
	}
	return nil
}

// Drain returns and removes every pending flash for the session.
func (r *RedisFlashRepository) Drain(ctx context.Context, sessionID string) ([]models.Flash, error) {
	key := flashKey(sessionID)
	var rangeCmd *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rangeCmd = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drain flashes: %w", err)
	}

	raw := rangeCmd.Val()
	flashes := make([]models.Flash, 0, len(raw))
	for _, item := range raw {
		var flash models.Flash
		if err := json.Unmarshal([]byte(item), &flash); err != nil {
			continue
		}
		flashes = append(flashes, flash)
	}
	return flashes, nil
}

// MemoryFlashRepository is an in-process flash store used when Redis is not configured.
type MemoryFlashRepository struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryFlashes
	now     func() time.Time
}

type memoryFlashes struct {
	flashes   []models.Flash
	expiresAt time.Time
}

// NewMemoryFlashRepository constructs an in-process flash store.
func NewMemoryFlashRepository(ttl time.Duration) *MemoryFlashRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryFlashRepository{ttl: ttl, entries: make(map[string]memoryFlashes), now: time.Now}
}

// Push appends a flash to the session's queue.
func (r *MemoryFlashRepository) Push(_ context.Context, sessionID string, flash models.Flash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.evictExpired(now)
	entry := r.entries[sessionID]
	entry.flashes = append(entry.flashes, flash)
	entry.expiresAt = now.Add(r.ttl)
	r.entries[sessionID] = entry
	return nil
}

// Drain returns and removes every pending flash for the session.
func (r *MemoryFlashRepository) Drain(_ context.Context, sessionID string) ([]models.Flash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	entry, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	if !ok || now.After(entry.expiresAt) {
		return []models.Flash{}, nil
	}
	return entry.flashes, nil
}

func (r *MemoryFlashRepository) evictExpired(now time.Time) {
	for id, entry := range r.entries {
		if now.After(entry.expiresAt) {
			delete(r.entries, id)
		}
	}
}
