// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/platform/constants"
	"github.com/taibuivan/ucenter/internal/platform/postgres"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

/*
TestNewPool_InvalidDSN fails before any connection attempt.
*/
func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := postgres.NewPool(context.Background(), postgres.Options{DSN: "postgres://%zz"}, discard)
	assert.ErrorContains(t, err, "invalid DSN")
}

/*
TestNewPool_Live connects to TEST_DATABASE_URL and checks the pool settings.
*/
func TestNewPool_Live(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.Options{DSN: dsn, MaxConns: 3}, discard)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	assert.Equal(t, int32(3), pool.Config().MaxConns)
	assert.NoError(t, postgres.Ping(ctx, pool))

	var applicationName string
	require.NoError(t, pool.QueryRow(ctx, "SELECT current_setting('application_name')").Scan(&applicationName))
	assert.Equal(t, constants.AppName, applicationName)
}
