package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), server
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put get delete", func(t *testing.T) {
		store, server := newTestRedisStore(t, time.Hour)
		userID := uuid.New()
		key := RegistrationKey(userID)

		require.NoError(t, store.Put(ctx, key, &State{UserID: userID, Pending: true, CheckoutSessionID: "cs_1"}))
		assert.True(t, server.Exists(redisKeyPrefix+key))

		state, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, userID, state.UserID)
		assert.True(t, state.Pending)
		assert.Equal(t, "cs_1", state.CheckoutSessionID)
		assert.False(t, state.UpdatedAt.IsZero())

		require.NoError(t, store.Delete(ctx, key))
		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("entries expire", func(t *testing.T) {
		store, server := newTestRedisStore(t, time.Minute)

		require.NoError(t, store.Put(ctx, "k", &State{Pending: true}))
		assert.Equal(t, time.Minute, server.TTL(redisKeyPrefix+"k"))

		server.FastForward(2 * time.Minute)
		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		store, server := newTestRedisStore(t, time.Hour)
		require.NoError(t, server.Set(redisKeyPrefix+"k", "{not json"))

		_, err := store.Get(ctx, "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("email verification is case insensitive", func(t *testing.T) {
		store, _ := newTestRedisStore(t, time.Hour)

		verified, err := store.IsEmailVerified(ctx, "jean@example.fr")
		require.NoError(t, err)
		assert.False(t, verified)

		require.NoError(t, store.MarkEmailVerified(ctx, " Jean@Example.FR ", time.Now()))

		verified, err = store.IsEmailVerified(ctx, "jean@example.fr")
		require.NoError(t, err)
		assert.True(t, verified)
	})

	t.Run("unreachable server", func(t *testing.T) {
		store, server := newTestRedisStore(t, time.Hour)
		require.NoError(t, store.Ping(ctx))

		server.Close()
		assert.Error(t, store.Ping(ctx))
		_, err := store.Get(ctx, "k")
		assert.Error(t, err)
	})
}
