// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/taibuivan/ucenter/internal/session"
)

// Registry keeps one guarded [Router] per browser tab.
type Registry struct {
	table  *Table
	logger *slog.Logger

	mu      sync.Mutex
	routers map[string]*Router
}

// NewRegistry creates a registry that forgets a tab's router when manager
// evicts the tab.
func NewRegistry(manager *session.Manager, table *Table, logger *slog.Logger) *Registry {
	registry := &Registry{
		table:   table,
		logger:  logger,
		routers: make(map[string]*Router),
	}
	manager.OnEvict(registry.Forget)
	return registry
}

// Table returns the route table routers are built from.
func (registry *Registry) Table() *Table { return registry.table }

// For returns the router of store's tab, creating it with the navigation guard
// installed and attaching it as the store's navigator.
func (registry *Registry) For(store *session.Store) *Router {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if router, ok := registry.routers[store.Namespace()]; ok && router.owner == store {
		return router
	}

	router := NewRouter(registry.table, registry.logger)
	router.owner = store
	router.BeforeEach(Guard(store, registry.table, registry.logger))
	store.AttachNavigator(router)

	registry.routers[store.Namespace()] = router
	return router
}

// Forget drops a tab's router.
func (registry *Registry) Forget(tabID string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.routers, tabID)
}

// Len reports how many routers are held.
func (registry *Registry) Len() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.routers)
}

// Middleware attaches the tab's router to its store. It must run after
// [session.Middleware].
func (registry *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if store := session.FromContext(request.Context()); store != nil {
			registry.For(store)
		}
		next.ServeHTTP(writer, request)
	})
}
