package sessions

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps each refresh session as a hash under
// <prefix><refreshToken>. Redis expires the key at ExpiresAt.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	key := r.prefix + s.RefreshToken
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"id", s.ID,
			"userId", s.UserID,
			"createdAt", s.CreatedAt.UnixMilli(),
			"expiresAt", s.ExpiresAt.UnixMilli(),
		)
		p.PExpireAt(ctx, key, s.ExpiresAt)
		return nil
	})
	return err
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	h, err := r.client.HGetAll(ctx, r.prefix+refresh).Result()
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, nil
	}
	return &Session{
		ID:           h["id"],
		RefreshToken: refresh,
		UserID:       h["userId"],
		CreatedAt:    millis(h["createdAt"]),
		ExpiresAt:    millis(h["expiresAt"]),
	}, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	return r.client.Del(ctx, r.prefix+refresh).Err()
}

func millis(s string) time.Time {
	n, _ := strconv.ParseInt(s, 10, 64)
	return time.UnixMilli(n).UTC()
}
