// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/platform/migration"
	"github.com/taibuivan/ucenter/internal/platform/postgres"
	"github.com/taibuivan/ucenter/internal/session"
)

// newPostgresStorage connects to TEST_DATABASE_URL and migrates it. Tests using
// it are skipped when the variable is unset.
func newPostgresStorage(t *testing.T, ttl time.Duration) *session.PostgresStorage {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, migration.RunUp(dsn, "../../data/migrations", discard))

	pool, err := postgres.NewPool(context.Background(), postgres.Options{DSN: dsn}, discard)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return session.NewPostgresStorage(pool, ttl)
}

/*
TestPostgresStorage_Expiry hides expired rows from Get and purges them.
*/
func TestPostgresStorage_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	storage := newPostgresStorage(t, time.Hour).WithClock(clock.Now)
	ctx := context.Background()

	namespace := "expiry-" + t.Name()
	t.Cleanup(func() { _ = storage.Delete(context.Background(), namespace, "token", "user") })

	require.NoError(t, storage.Set(ctx, namespace, "token", "abc"))
	clock.Advance(30 * time.Minute)
	require.NoError(t, storage.Set(ctx, namespace, "user", "{}"))

	clock.Advance(45 * time.Minute)
	_, found, err := storage.Get(ctx, namespace, "token")
	require.NoError(t, err)
	assert.False(t, found, "token outlived its ttl")

	value, found, err := storage.Get(ctx, namespace, "user")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "{}", value)

	purged, err := storage.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(1))

	// The purged row stays gone even once the clock no longer considers it expired.
	clock.Advance(-2 * time.Hour)
	_, found, err = storage.Get(ctx, namespace, "token")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, _ = storage.Get(ctx, namespace, "user")
	assert.True(t, found)
}

/*
TestPostgresStorage_NoTTL keeps rows without an expiry out of the purge.
*/
func TestPostgresStorage_NoTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	storage := newPostgresStorage(t, 0).WithClock(clock.Now)
	ctx := context.Background()

	namespace := "forever-" + t.Name()
	t.Cleanup(func() { _ = storage.Delete(context.Background(), namespace, "token") })

	require.NoError(t, storage.Set(ctx, namespace, "token", "abc"))
	clock.Advance(24 * 365 * time.Hour)

	_, err := storage.PurgeExpired(ctx)
	require.NoError(t, err)

	value, found, err := storage.Get(ctx, namespace, "token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", value)
}

/*
TestStore_PostgresPersistence restores a session into a fresh store through PostgreSQL.
*/
func TestStore_PostgresPersistence(t *testing.T) {
	storage := newPostgresStorage(t, time.Hour)
	t.Cleanup(func() { _ = storage.Delete(context.Background(), tab, "token", "refreshToken", "user") })
	auth := newFakeAuth()

	login(t, newStore(auth, storage))

	restored := newStore(auth, storage)
	restored.Initialize(context.Background())
	assert.True(t, restored.IsLoggedIn())
	assert.Equal(t, "refresh-1", restored.Snapshot().RefreshToken)
}
