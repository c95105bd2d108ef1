// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/ucenter/internal/platform/constants"
	"github.com/taibuivan/ucenter/pkg/uuid"
)

// ManagerConfig configures a [Manager].
type ManagerConfig struct {
	Storage    Storage
	SystemCode string

	// IdleTTL evicts tabs untouched for this long. Persisted entries stay in
	// Storage, so an evicted tab is restored on its next request.
	IdleTTL time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

type tab struct {
	store    *Store
	lastSeen time.Time
}

// Manager owns one [Store] per browser tab.
type Manager struct {
	auth   Authenticator
	config ManagerConfig

	mu   sync.Mutex
	tabs map[string]*tab

	evictMu sync.RWMutex
	onEvict []func(id string)
}

// NewManager creates an empty manager.
func NewManager(auth Authenticator, config ManagerConfig) *Manager {
	if config.Storage == nil {
		config.Storage = NewMemoryStorage()
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = constants.SessionIdleTTL
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Manager{
		auth:   auth,
		config: config,
		tabs:   make(map[string]*tab),
	}
}

// NewTabID returns a fresh tab id.
func (manager *Manager) NewTabID() string {
	return uuid.New()
}

// Store returns the store for id, creating and initializing it on first use.
func (manager *Manager) Store(ctx context.Context, id string) *Store {
	manager.mu.Lock()
	entry, ok := manager.tabs[id]
	if ok {
		entry.lastSeen = manager.config.Now()
		manager.mu.Unlock()

		// Blocks until a restore started by another request has finished.
		entry.store.Initialize(ctx)
		return entry.store
	}

	store := NewStore(manager.auth, Options{
		Namespace:  id,
		SystemCode: manager.config.SystemCode,
		Storage:    manager.config.Storage,
		Logger:     manager.config.Logger,
		Now:        manager.config.Now,
	})
	manager.tabs[id] = &tab{store: store, lastSeen: manager.config.Now()}
	manager.mu.Unlock()

	// The store is visible before it is restored; other requests for this
	// tab wait in Initialize above.
	store.Initialize(ctx)
	return store
}

// Lookup returns the store for id without creating one.
func (manager *Manager) Lookup(id string) (*Store, bool) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	entry, ok := manager.tabs[id]
	if !ok {
		return nil, false
	}
	return entry.store, true
}

// Len reports how many tabs are in memory.
func (manager *Manager) Len() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.tabs)
}

// OnEvict registers a callback run after a tab is evicted.
func (manager *Manager) OnEvict(callback func(id string)) {
	manager.evictMu.Lock()
	defer manager.evictMu.Unlock()
	manager.onEvict = append(manager.onEvict, callback)
}

// Sweep evicts idle tabs and returns how many went.
func (manager *Manager) Sweep() int {
	cutoff := manager.config.Now().Add(-manager.config.IdleTTL)

	manager.mu.Lock()
	var evicted []string
	for id, entry := range manager.tabs {
		if entry.lastSeen.Before(cutoff) {
			delete(manager.tabs, id)
			evicted = append(evicted, id)
		}
	}
	manager.mu.Unlock()

	manager.evictMu.RLock()
	callbacks := manager.onEvict
	manager.evictMu.RUnlock()

	for _, id := range evicted {
		for _, callback := range callbacks {
			callback(id)
		}
	}

	if len(evicted) > 0 {
		manager.config.Logger.Info("session_tabs_evicted", slog.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps idle tabs every interval until ctx is done.
func (manager *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			manager.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
