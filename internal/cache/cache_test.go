package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleUser(id int64) *domain.User {
	return &domain.User{
		ID:           id,
		Username:     "alice",
		PasswordHash: "$2a$secret",
		Email:        "alice@example.com",
		FullName:     "Alice",
		Role:         domain.RoleUser,
		Enabled:      true,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestUsersReadThrough(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(NewLRU(16, time.Minute), quietLogger())

	loads := 0
	load := func(_ context.Context, id int64) (*domain.User, error) {
		loads++
		return sampleUser(id), nil
	}

	first, err := users.Get(ctx, 1, load)
	require.NoError(t, err)
	assert.Equal(t, "$2a$secret", first.PasswordHash)

	second, err := users.Get(ctx, 1, load)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
	assert.Empty(t, second.PasswordHash, "cached copies carry no hash")
	assert.Equal(t, "alice@example.com", second.Email)

	users.Invalidate(ctx, 1)
	_, err = users.Get(ctx, 1, load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestUsersLoadErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	backend := NewLRU(16, time.Minute)
	users := NewUsers(backend, quietLogger())

	missing := errors.New("missing")
	_, err := users.Get(ctx, 9, func(context.Context, int64) (*domain.User, error) {
		return nil, missing
	})
	assert.ErrorIs(t, err, missing)
	assert.Zero(t, backend.Len())
}

func TestUsersDropsFillRacingInvalidation(t *testing.T) {
	ctx := context.Background()
	backend := NewLRU(16, time.Minute)
	users := NewUsers(backend, quietLogger())

	_, err := users.Get(ctx, 1, func(ctx context.Context, id int64) (*domain.User, error) {
		stale := sampleUser(id)
		users.Invalidate(ctx, id)
		return stale, nil
	})
	require.NoError(t, err)

	_, ok, err := backend.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "stale fill must not land after an invalidation")
}

func TestUsersFallsBackWhenBackendFails(t *testing.T) {
	mr, client := newTestRedis(t)
	users := NewUsers(NewRedis(client, "test", time.Minute), quietLogger())
	mr.Close()

	user, err := users.Get(context.Background(), 3, func(_ context.Context, id int64) (*domain.User, error) {
		return sampleUser(id), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
}

func TestLRUExpires(t *testing.T) {
	ctx := context.Background()
	backend := NewLRU(4, 20*time.Millisecond)
	require.NoError(t, backend.Set(ctx, sampleUser(1)))

	_, ok, _ := backend.Get(ctx, 1)
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok, _ := backend.Get(ctx, 1)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestRedisBackend(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	backend := NewRedis(client, "test", time.Minute)

	_, ok, err := backend.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Set(ctx, sampleUser(1).Sanitized()))
	assert.True(t, mr.Exists("test:user:1"))

	got, ok, err := backend.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleUser(1).Sanitized(), got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = backend.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Set(ctx, sampleUser(2)))
	require.NoError(t, backend.Delete(ctx, 2))
	assert.False(t, mr.Exists("test:user:2"))
}

func TestRedisBackendRejectsCorruptEntry(t *testing.T) {
	mr, client := newTestRedis(t)
	backend := NewRedis(client, "test", time.Minute)
	require.NoError(t, mr.Set("test:user:5", "{not json"))

	_, _, err := backend.Get(context.Background(), 5)
	assert.Error(t, err)
}
