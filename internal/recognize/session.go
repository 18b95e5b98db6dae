package recognize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ytget/media-bot/internal/model"
)

// ErrStale is returned when a selection refers to a result set that no longer exists
// or an index outside the user's current result set.
var ErrStale = errors.New("search results are stale")

// SessionKeyPrefix namespaces session entries in shared stores
const SessionKeyPrefix = "session:"

// SessionStore holds at most one result set per user. Put replaces the previous set.
type SessionStore interface {
	Get(ctx context.Context, userID int64) ([]model.TrackRecord, bool, error)
	Put(ctx context.Context, userID int64, tracks []model.TrackRecord) error
}

// SessionCache resolves selections against each user's last search
type SessionCache struct {
	store SessionStore
}

// NewSessionCache creates a cache backed by store
func NewSessionCache(store SessionStore) *SessionCache {
	return &SessionCache{store: store}
}

// Remember replaces the user's result set
func (c *SessionCache) Remember(ctx context.Context, userID int64, tracks []model.TrackRecord) error {
	snapshot := make([]model.TrackRecord, len(tracks))
	copy(snapshot, tracks)
	if err := c.store.Put(ctx, userID, snapshot); err != nil {
		return fmt.Errorf("failed to store session for user %d: %w", userID, err)
	}
	return nil
}

// Resolve returns the record at index in the user's current result set, or ErrStale
func (c *SessionCache) Resolve(ctx context.Context, userID int64, index int) (model.TrackRecord, error) {
	tracks, ok, err := c.store.Get(ctx, userID)
	if err != nil {
		return model.TrackRecord{}, fmt.Errorf("failed to load session for user %d: %w", userID, err)
	}
	if !ok || index < 0 || index >= len(tracks) {
		return model.TrackRecord{}, ErrStale
	}
	return tracks[index], nil
}

// MemoryStore keeps sessions in process memory. It has no eviction: entries grow
// with the number of distinct users for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64][]model.TrackRecord
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64][]model.TrackRecord)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) ([]model.TrackRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tracks, ok := m.sessions[userID]
	return tracks, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, userID int64, tracks []model.TrackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = tracks
	return nil
}

// Len returns the number of users with a session
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RedisStore keeps sessions in Redis as JSON, optionally expiring them after ttl
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and verifies the connection. ttl 0 disables expiry.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis not available at %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) key(userID int64) string {
	return fmt.Sprintf("%s%d", SessionKeyPrefix, userID)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) ([]model.TrackRecord, bool, error) {
	val, err := r.client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var tracks []model.TrackRecord
	if err := json.Unmarshal([]byte(val), &tracks); err != nil {
		return nil, false, fmt.Errorf("corrupt session entry: %w", err)
	}
	return tracks, true, nil
}

func (r *RedisStore) Put(ctx context.Context, userID int64, tracks []model.TrackRecord) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(userID), data, r.ttl).Err()
}

// Close releases the Redis connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}
