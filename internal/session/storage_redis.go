// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/ucenter/internal/platform/constants"
)

// RedisStorage implements [Storage] on Redis strings with a sliding TTL.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStorage creates a Redis-backed [Storage]. A zero ttl keeps entries forever.
func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl}
}

func redisKey(namespace, key string) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisPrefixStorage, namespace, key)
}

/*
Get retrieves one persisted entry and slides its expiry forward.

Parameters:
  - context: context.Context
  - namespace: string (browser tab id)
  - key: string

Returns:
  - string: Stored value
  - bool: false when absent or expired
  - error: Connectivity errors
*/
func (repository *RedisStorage) Get(context context.Context, namespace, key string) (string, bool, error) {
	var value string
	var err error

	if repository.ttl > 0 {
		value, err = repository.client.GetEx(context, redisKey(namespace, key), repository.ttl).Result()
	} else {
		value, err = repository.client.Get(context, redisKey(namespace, key)).Result()
	}

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis_storage_get_failed: %w", err)
	}

	return value, true, nil
}

// Set stores one entry with the configured TTL.
func (repository *RedisStorage) Set(context context.Context, namespace, key, value string) error {
	if err := repository.client.Set(context, redisKey(namespace, key), value, repository.ttl).Err(); err != nil {
		return fmt.Errorf("redis_storage_set_failed: %w", err)
	}
	return nil
}

// Delete removes the given keys in one round trip.
func (repository *RedisStorage) Delete(context context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	redisKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		redisKeys = append(redisKeys, redisKey(namespace, key))
	}

	if err := repository.client.Del(context, redisKeys...).Err(); err != nil {
		return fmt.Errorf("redis_storage_delete_failed: %w", err)
	}
	return nil
}
