// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/taibuivan/ucenter/internal/session"
)

// # Decisions

// Outcome is the terminal state of one navigation check.
type Outcome uint8

const (
	Pending Outcome = iota
	Allowed
	RedirectLogin
	RedirectForbidden
	RedirectRoot
)

func (outcome Outcome) String() string {
	switch outcome {
	case Allowed:
		return "allowed"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	case RedirectRoot:
		return "redirect_root"
	default:
		return "pending"
	}
}

// MarshalText renders the outcome by name.
func (outcome Outcome) MarshalText() ([]byte, error) {
	return []byte(outcome.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (outcome *Outcome) UnmarshalText(text []byte) error {
	for candidate := Pending; candidate <= RedirectRoot; candidate++ {
		if candidate.String() == string(text) {
			*outcome = candidate
			return nil
		}
	}
	return fmt.Errorf("gate: unknown outcome %q", text)
}

// Decision is the guard's verdict for one target.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	// Target is the full path that was checked.
	Target string `json:"target"`
	// Location is where a redirect sends the tab; empty when allowed.
	Location string `json:"location,omitempty"`
}

// Authorizer is the part of the session the guard reads.
type Authorizer interface {
	IsLoggedIn() bool
	HasAnyPermission(codes []string) bool
}

/*
Decide runs the navigation rules against one resolved target.

Rules, first match wins:
 1. Public route: allowed, except the login page while logged in, which goes to root.
 2. Protected route while logged out: login page with the target as redirect-back.
 3. Route permissions present and none held: forbidden page.
 4. Otherwise allowed.

Parameters:
  - to: *Location (resolved, never a redirect record)
  - authorizer: Authorizer
  - table: *Table

Returns:
  - Decision
*/
func Decide(to *Location, authorizer Authorizer, table *Table) Decision {
	decision := Decision{Outcome: Allowed, Target: to.FullPath}

	switch {
	case !to.Route.RequiresAuth():
		if to.Path == table.Login && authorizer.IsLoggedIn() {
			decision.Outcome, decision.Location = RedirectRoot, table.Root
		}
	case !authorizer.IsLoggedIn():
		decision.Outcome, decision.Location = RedirectLogin, LoginLocation(table.Login, to.FullPath)
	case len(to.Route.Permissions) > 0 && !authorizer.HasAnyPermission(to.Route.Permissions):
		decision.Outcome, decision.Location = RedirectForbidden, table.Forbidden
	}

	return decision
}

// LoginLocation builds the login path carrying target as the redirect-back
// parameter. Slashes stay readable, as the SPA router writes them.
func LoginLocation(login, target string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(target), "%2F", "/")
	return login + "?redirect=" + escaped
}

// # Guard

/*
Guard returns the before-each hook enforcing [Decide] for store.

Description: Before a protected route is decided, permissions and menus restored
from storage are fetched once so the decision never runs against an empty cache.
A failed fetch leaves the cache empty, which can only deny. Redirects queue the
tab's notices.

Parameters:
  - store: *session.Store
  - table: *Table
  - logger: *slog.Logger

Returns:
  - Hook
*/
func Guard(store *session.Store, table *Table, logger *slog.Logger) Hook {
	return func(ctx context.Context, _ *Location, to *Location) Decision {
		if to.Route.RequiresAuth() && store.IsLoggedIn() {
			if err := store.EnsureHydrated(ctx); err != nil {
				logger.WarnContext(ctx, "gate_hydration_failed",
					slog.String("target", to.FullPath),
					slog.Any("error", err),
				)
			}
		}

		decision := Decide(to, store, table)

		switch decision.Outcome {
		case RedirectLogin:
			store.Notices().Push(session.NoticeWarning, "Please log in")
			logger.InfoContext(ctx, "gate_redirect_login", slog.String("target", to.FullPath))
		case RedirectForbidden:
			store.Notices().Push(session.NoticeError, "Access denied")
			logger.WarnContext(ctx, "gate_redirect_forbidden",
				slog.String("target", to.FullPath),
				slog.Any("required", to.Route.Permissions),
			)
		case RedirectRoot:
			logger.DebugContext(ctx, "gate_redirect_root", slog.String("target", to.FullPath))
		}

		return decision
	}
}
