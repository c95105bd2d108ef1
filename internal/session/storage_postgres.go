// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/ucenter/internal/platform/database/schema"
	"github.com/taibuivan/ucenter/internal/platform/dberr"
)

// PostgresStorage implements [Storage] on the console.storage table.
type PostgresStorage struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

// NewPostgresStorage creates a PostgreSQL-backed [Storage]. A zero ttl keeps rows forever.
func NewPostgresStorage(pool *pgxpool.Pool, ttl time.Duration) *PostgresStorage {
	return &PostgresStorage{pool: pool, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for expiry.
func (repository *PostgresStorage) WithClock(now func() time.Time) *PostgresStorage {
	repository.now = now
	return repository
}

var (
	storageTable = schema.ConsoleStorage

	getQuery = fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = $2 AND (%s IS NULL OR %s > $3)`,
		storageTable.Value, storageTable.Table,
		storageTable.Namespace, storageTable.Key,
		storageTable.ExpiresAt, storageTable.ExpiresAt)

	upsertQuery = fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (%s, %s) DO UPDATE
		SET %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s`,
		storageTable.Table, strings.Join(storageTable.Columns(), ", "),
		storageTable.Namespace, storageTable.Key,
		storageTable.Value, storageTable.Value,
		storageTable.ExpiresAt, storageTable.ExpiresAt,
		storageTable.UpdatedAt, storageTable.UpdatedAt)

	deleteQuery = fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = ANY($2)`,
		storageTable.Table, storageTable.Namespace, storageTable.Key)

	purgeQuery = fmt.Sprintf(`DELETE FROM %s WHERE %s IS NOT NULL AND %s <= $1`,
		storageTable.Table, storageTable.ExpiresAt, storageTable.ExpiresAt)
)

func (repository *PostgresStorage) expiry(now time.Time) *time.Time {
	if repository.ttl <= 0 {
		return nil
	}
	expiresAt := now.Add(repository.ttl)
	return &expiresAt
}

/*
Get retrieves one unexpired entry.

Parameters:
  - context: context.Context
  - namespace: string (browser tab id)
  - key: string

Returns:
  - string: Stored value
  - bool: false when absent or expired
  - error: Connectivity errors
*/
func (repository *PostgresStorage) Get(context context.Context, namespace, key string) (string, bool, error) {
	var value string

	err := dberr.Wrap(repository.pool.QueryRow(context, getQuery, namespace, key, repository.now()).Scan(&value), "storage_get")
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	return value, true, nil
}

// Set upserts one entry, resetting its expiry.
func (repository *PostgresStorage) Set(context context.Context, namespace, key, value string) error {
	now := repository.now()

	_, err := repository.pool.Exec(context, upsertQuery, namespace, key, value, repository.expiry(now), now)
	return dberr.Wrap(err, "storage_set")
}

// Delete removes the given keys.
func (repository *PostgresStorage) Delete(context context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := repository.pool.Exec(context, deleteQuery, namespace, keys)
	return dberr.Wrap(err, "storage_delete")
}

// PurgeExpired deletes rows whose expiry has passed and reports how many went.
func (repository *PostgresStorage) PurgeExpired(context context.Context) (int64, error) {
	tag, err := repository.pool.Exec(context, purgeQuery, repository.now())
	if err != nil {
		return 0, dberr.Wrap(err, "storage_purge")
	}
	return tag.RowsAffected(), nil
}
