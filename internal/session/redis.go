package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hoitoportaali/internal/auth"
)

// RedisStore keeps snapshots as JSON values. Keys carry a TTL equal to the
// snapshot's remaining lifetime; Restore still checks expiresAt itself.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "hoitoportaali:session", now: time.Now}
}

func (r *RedisStore) WithClock(now func() time.Time) *RedisStore {
	r.now = now
	return r
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(clientID string, kind auth.Kind) string {
	return r.prefix + ":" + clientID + ":" + string(kind)
}

func (r *RedisStore) Save(ctx context.Context, clientID string, kind auth.Kind, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if snap.ExpiresAt != nil {
		// Zero would mean no expiry in Redis.
		if ttl = snap.ExpiresAt.Sub(r.now()); ttl < time.Second {
			ttl = time.Second
		}
	}
	return r.client.Set(ctx, r.key(clientID, kind), data, ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, clientID string, kind auth.Kind) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(clientID, kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisStore) Delete(ctx context.Context, clientID string, kind auth.Kind) error {
	return r.client.Del(ctx, r.key(clientID, kind)).Err()
}
