// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/taibuivan/ucenter/internal/session"
)

// maxHops bounds redirect chains, both redirect records and guard redirects.
const maxHops = 8

var (
	// ErrRedirectLoop is returned when a navigation keeps redirecting.
	ErrRedirectLoop = errors.New("gate: redirect loop")

	// ErrInvalidPath is returned for targets that are not in-app paths.
	ErrInvalidPath = errors.New("gate: invalid path")
)

// Location is a resolved navigation target.
type Location struct {
	FullPath string            `json:"fullPath"`
	Path     string            `json:"path"`
	Query    string            `json:"query,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Route    *Route            `json:"route"`

	// RedirectedFrom is the first path when redirect records were followed.
	RedirectedFrom string `json:"redirectedFrom,omitempty"`
}

// Hook runs before every transition. Anything but [Allowed] sends the tab to
// the decision's location instead.
type Hook func(ctx context.Context, from, to *Location) Decision

// Result describes one completed navigation.
type Result struct {
	Location   *Location  `json:"location"`
	Title      string     `json:"title"`
	Decisions  []Decision `json:"decisions"`
	Redirected bool       `json:"redirected"`
}

// Router tracks one tab's current location.
//
// Hooks run without the router lock held: a hook may log the session out, and
// logout navigates through this same router.
type Router struct {
	table  *Table
	logger *slog.Logger

	hookMu sync.RWMutex
	hooks  []Hook

	mu      sync.Mutex
	current *Location

	owner *session.Store
}

// NewRouter creates a router positioned nowhere.
func NewRouter(table *Table, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{table: table, logger: logger}
}

// BeforeEach registers hook. Hooks run in registration order.
func (router *Router) BeforeEach(hook Hook) {
	router.hookMu.Lock()
	defer router.hookMu.Unlock()
	router.hooks = append(router.hooks, hook)
}

// Current returns the committed location, or nil before the first navigation.
func (router *Router) Current() *Location {
	router.mu.Lock()
	defer router.mu.Unlock()
	return router.current
}

// Title returns the document title of the current location.
func (router *Router) Title() string {
	current := router.Current()
	if current == nil {
		return router.table.Title(nil)
	}
	return router.table.Title(current.Route)
}

/*
Resolve maps a target to a route without running hooks.

Description: Redirect records are followed, and anything unmatched resolves to the
not-found page. The query string is kept on the final location.

Parameters:
  - target: string (in-app path, optionally with a query)

Returns:
  - *Location
  - error: ErrInvalidPath, ErrRedirectLoop
*/
func (router *Router) Resolve(target string) (*Location, error) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, target)
	}

	origin := cleanPath(parsed.Path)
	current := origin

	for hop := 0; hop < maxHops; hop++ {
		route, params := router.table.Match(current)
		if route == nil {
			current = router.table.NotFound
			continue
		}
		if route.Redirect != "" {
			current = cleanPath(route.Redirect)
			continue
		}

		location := &Location{
			FullPath: current,
			Path:     current,
			Query:    parsed.RawQuery,
			Params:   params,
			Route:    route,
		}
		if location.Query != "" {
			location.FullPath += "?" + location.Query
		}
		if current != origin {
			location.RedirectedFrom = origin
		}
		return location, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrRedirectLoop, target)
}

/*
Push navigates to target, running every hook before committing.

Description: A hook redirect restarts the navigation at the redirect location,
until a target is allowed or the hop bound is reached. The current location only
changes once a target is allowed.

Parameters:
  - ctx: context.Context
  - target: string

Returns:
  - *Result
  - error: ErrInvalidPath, ErrRedirectLoop
*/
func (router *Router) Push(ctx context.Context, target string) (*Result, error) {
	from := router.Current()
	result := &Result{}

	for hop := 0; hop < maxHops; hop++ {
		to, err := router.Resolve(target)
		if err != nil {
			return nil, err
		}
		if to.RedirectedFrom != "" {
			result.Redirected = true
		}

		decision := router.runHooks(ctx, from, to)
		result.Decisions = append(result.Decisions, decision)

		if decision.Outcome == Allowed {
			router.mu.Lock()
			router.current = to
			router.mu.Unlock()

			result.Location = to
			result.Title = router.table.Title(to.Route)
			return result, nil
		}

		result.Redirected = true
		target = decision.Location
	}

	router.logger.ErrorContext(ctx, "gate_redirect_loop", slog.String("target", target))
	return nil, fmt.Errorf("%w: %q", ErrRedirectLoop, target)
}

// Navigate implements [session.Navigator].
func (router *Router) Navigate(ctx context.Context, target string) (string, error) {
	result, err := router.Push(ctx, target)
	if err != nil {
		return "", err
	}
	return result.Location.FullPath, nil
}

func (router *Router) runHooks(ctx context.Context, from, to *Location) Decision {
	router.hookMu.RLock()
	hooks := router.hooks
	router.hookMu.RUnlock()

	for _, hook := range hooks {
		if decision := hook(ctx, from, to); decision.Outcome != Allowed {
			return decision
		}
	}
	return Decision{Outcome: Allowed, Target: to.FullPath}
}
