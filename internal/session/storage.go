// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"sync"
)

// Storage is the durable client storage a Store persists its credentials and
// cached user into. Entries are grouped by namespace, one per browser tab.
//
// Get reports found=false for missing or expired entries without an error.
type Storage interface {
	Get(ctx context.Context, namespace, key string) (value string, found bool, err error)
	Set(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace string, keys ...string) error
}

// # In-memory backend

// MemoryStorage keeps entries in process memory. It does not survive a restart
// and is the default for local development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

// NewMemoryStorage creates an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]map[string]string)}
}

// Get implements [Storage].
func (storage *MemoryStorage) Get(_ context.Context, namespace, key string) (string, bool, error) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()

	value, found := storage.entries[namespace][key]
	return value, found, nil
}

// Set implements [Storage].
func (storage *MemoryStorage) Set(_ context.Context, namespace, key, value string) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()

	bucket, ok := storage.entries[namespace]
	if !ok {
		bucket = make(map[string]string)
		storage.entries[namespace] = bucket
	}
	bucket[key] = value
	return nil
}

// Delete implements [Storage].
func (storage *MemoryStorage) Delete(_ context.Context, namespace string, keys ...string) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()

	bucket, ok := storage.entries[namespace]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(bucket, key)
	}
	if len(bucket) == 0 {
		delete(storage.entries, namespace)
	}
	return nil
}
