package session

import (
	"context"
	"os"
	"testing"
	"time"

	"restaurant-menu/apperr"
	"restaurant-menu/config"
	"restaurant-menu/models"
	"restaurant-menu/statemachine"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var secret = []byte("test-secret")

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := config.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(db)
}

func newManager(t *testing.T) (*Manager, *GormStore) {
	t.Helper()
	store := newGormStore(t)
	return NewManager(store, secret, time.Hour, zaptest.NewLogger(t)), store
}

func TestStartResolveEnd(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	sess, token, err := m.Start(ctx, "", 42, statemachine.EventLogin)
	require.NoError(t, err)
	assert.EqualValues(t, 42, sess.UserID)
	assert.NotEmpty(t, token)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	require.NoError(t, m.End(ctx, token))
	_, err = m.Resolve(ctx, token)
	assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))

	_, err = store.FindSession(ctx, sess.ID)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
}

func TestStartReplacesPreviousSession(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, first, err := m.Start(ctx, "", 1, statemachine.EventSignup)
	require.NoError(t, err)
	_, second, err := m.Start(ctx, first, 1, statemachine.EventLogin)
	require.NoError(t, err)

	_, err = m.Resolve(ctx, first)
	assert.Error(t, err)
	_, err = m.Resolve(ctx, second)
	assert.NoError(t, err)
}

func TestStartRejectsLogoutEvent(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, _, err := m.Start(ctx, "", 1, statemachine.EventLogout)
	assert.Equal(t, apperr.EInternal, apperr.ErrorCode(err))

	_, token, err := m.Start(ctx, "", 1, statemachine.EventLogin)
	require.NoError(t, err)
	sess, next, err := m.Start(ctx, token, 1, statemachine.EventLogout)
	assert.Equal(t, apperr.EInternal, apperr.ErrorCode(err))
	assert.Nil(t, sess)
	assert.Empty(t, next)

	// The rejected event leaves the existing session alone.
	_, err = m.Resolve(ctx, token)
	assert.NoError(t, err)
}

func TestEndIsUnconditional(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	assert.NoError(t, m.End(ctx, ""))
	assert.NoError(t, m.End(ctx, "garbage"))
}

func TestResolveRejects(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	sess, token, err := m.Start(ctx, "", 7, statemachine.EventLogin)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := m.Resolve(ctx, "")
		assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewManager(store, []byte("other"), time.Hour, nil)
		_, err := other.Resolve(ctx, token)
		assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
	})

	t.Run("other algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{ID: sess.ID, Subject: "7"})
		signed, err := tok.SignedString(secret)
		require.NoError(t, err)
		_, err = m.Resolve(ctx, signed)
		assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
	})

	t.Run("subject mismatch", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: sess.ID, Subject: "8"})
		signed, err := tok.SignedString(secret)
		require.NoError(t, err)
		_, err = m.Resolve(ctx, signed)
		assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
	})

	t.Run("expired record is deleted", func(t *testing.T) {
		rec := &models.Session{ID: "expired", UserID: 7, CreatedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour)}
		require.NoError(t, store.CreateSession(ctx, rec))
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: rec.ID, Subject: "7"})
		signed, err := tok.SignedString(secret)
		require.NoError(t, err)

		_, err = m.Resolve(ctx, signed)
		assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
		_, err = store.FindSession(ctx, rec.ID)
		assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
	})

	t.Run("token past its exp", func(t *testing.T) {
		later := NewManager(store, secret, time.Hour, nil)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Resolve(ctx, token)
		assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
	})
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)

	ctx = NewContext(ctx, &models.Session{ID: "s", UserID: 3})
	id, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	assert.EqualValues(t, 3, id)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MENU_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MENU_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client)
	ctx := context.Background()
	sess := &models.Session{ID: "redis-test", UserID: 9, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.CreateSession(ctx, sess))

	got, err := store.FindSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 9, got.UserID)

	ttl, err := client.TTL(ctx, redisKey(sess.ID)).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	require.NoError(t, store.DeleteSession(ctx, sess.ID))
	_, err = store.FindSession(ctx, sess.ID)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
}

func TestRedisStoreRejectsExpired(t *testing.T) {
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	err := store.CreateSession(context.Background(), &models.Session{ID: "x", ExpiresAt: time.Now().Add(-time.Second)})
	assert.Equal(t, apperr.EInternal, apperr.ErrorCode(err))
}
