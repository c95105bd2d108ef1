// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis connects the console to Redis, its durable client storage backend
when STORAGE_BACKEND=redis.

Each browser tab's persisted session fields (tokens and the cached user) live
under a namespaced key with a sliding TTL; see session.RedisStorage.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/ucenter/internal/platform/constants"
)

const (
	dialTimeout     = 3 * time.Second
	readTimeout     = 2 * time.Second
	writeTimeout    = 2 * time.Second
	pingTimeout     = 2 * time.Second
	defaultPoolSize = 8
)

// Options configures [NewClient].
type Options struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string

	// PoolSize caps open connections. Session reads are tiny and frequent, so a
	// small warm pool is enough; zero means 8.
	PoolSize int
}

// NewClient parses the URL, sizes the pool and pings the server.
//
// # Parameters
//   - context: Context for the initial ping.
//   - opts: Connection URL and pool size.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, opts Options, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.PoolSize = opts.PoolSize
	if options.PoolSize <= 0 {
		options.PoolSize = defaultPoolSize
	}
	options.MinIdleConns = 1
	options.MaxIdleConns = max(1, options.PoolSize/2)

	// Shows up in CLIENT LIST next to the other services sharing the server.
	options.ClientName = constants.AppName

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping reports whether Redis answers within the ping timeout. It backs the
// /ready check for the redis storage backend.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
