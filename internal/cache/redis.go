package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix   = "matchbet:"
	runLockKey  = keyPrefix + "ingest:lock"
	snapshotKey = keyPrefix + "ingest:snapshot"
)

// ErrLockHeld is returned when another run holds the ingestion lock
var ErrLockHeld = errors.New("ingestion lock held by another run")

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache wraps a Redis client with the ingestion run-lock and the
// last scraped snapshot
type RedisCache struct {
	client *redis.Client
}

// Snapshot is the last set of tokens fetched from the bracket page
type Snapshot struct {
	FetchedAt time.Time `json:"fetched_at"`
	Source    string    `json:"source"`
	Tokens    []string  `json:"tokens"`
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Int("db", cfg.DB).
		Msg("Successfully connected to redis")

	return NewFromClient(client), nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// AcquireLock takes the global ingestion lock for ttl and returns the token
// needed to release it. It returns ErrLockHeld when another run holds it.
func (c *RedisCache) AcquireLock(ctx context.Context, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	ok, err := c.client.SetNX(ctx, runLockKey, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return "", ErrLockHeld
	}

	log.Debug().Dur("ttl", ttl).Msg("Run lock acquired")
	return token, nil
}

// ReleaseLock releases the lock if token still owns it. A lock that
// expired and was taken by another run is left alone.
func (c *RedisCache) ReleaseLock(ctx context.Context, token string) error {
	released, err := releaseScript.Run(ctx, c.client, []string{runLockKey}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	if released == 0 {
		log.Warn().Msg("Run lock expired before release")
	}
	return nil
}

// SaveSnapshot stores the latest fetched tokens
func (c *RedisCache) SaveSnapshot(ctx context.Context, snap Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LastSnapshot returns the most recently saved snapshot, or nil if none
func (c *RedisCache) LastSnapshot(ctx context.Context) (*Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Health pings Redis
func (c *RedisCache) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	log.Info().Msg("Redis connection closed")
	return c.client.Close()
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
