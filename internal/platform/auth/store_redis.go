package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedPrefix = "auth:revoked:"
	refreshPrefix = "auth:refresh:"
)

// RedisTokenStore shares revocations and refresh tokens between replicas.
// Keys expire on their own, so no sweep is needed.
type RedisTokenStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, now: time.Now}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func (s *RedisTokenStore) RevokeJTI(ctx context.Context, jti, userID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedPrefix+jti, userID, ttl).Err()
}

func (s *RedisTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisTokenStore) SaveRefresh(ctx context.Context, token string, sess RefreshSession, ttl time.Duration) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, refreshPrefix+token, b, ttl).Err()
}

func (s *RedisTokenStore) ConsumeRefresh(ctx context.Context, token string) (*RefreshSession, error) {
	raw, err := s.rdb.GetDel(ctx, refreshPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess RefreshSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode refresh session: %w", err)
	}
	return &sess, nil
}

func (s *RedisTokenStore) DeleteRefresh(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, refreshPrefix+token).Err()
}
