package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client, "test:session:"), m
}

func TestRedisRepository_RoundTrip(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Millisecond)
	s := &Session{ID: "s1", RefreshToken: "r1", UserID: "user-1", CreatedAt: created, ExpiresAt: created.Add(time.Hour)}

	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, "user-1", m.HGet("test:session:r1", "userId"))
	assert.True(t, m.TTL("test:session:r1") > 0)

	got, err := repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *s, *got)

	require.NoError(t, repo.DeleteByRefresh(ctx, "r1"))
	got, err = repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisRepository_ExpiresWithSession(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	m.SetTime(now)
	require.NoError(t, repo.Create(ctx, &Session{RefreshToken: "r2", UserID: "user-2", CreatedAt: now, ExpiresAt: now.Add(time.Second)}))

	got, err := repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	require.NotNil(t, got)

	m.FastForward(2 * time.Second)
	got, err = repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisRepository_Unknown(t *testing.T) {
	repo, _ := newRedisRepo(t)
	got, err := repo.GetByRefresh(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}
