// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/ucenter/internal/platform/constants"
	"github.com/taibuivan/ucenter/internal/platform/ctxkey"
	"github.com/taibuivan/ucenter/internal/platform/ctxutil"
	"github.com/taibuivan/ucenter/pkg/uuid"
)

// # Context

// WithStore returns a context carrying store.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, store)
}

// FromContext returns the tab's store, or nil outside [Middleware].
func FromContext(ctx context.Context) *Store {
	store, _ := ctx.Value(ctxkey.KeySession).(*Store)
	return store
}

// # Middleware

// CookieConfig describes the tab cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Middleware resolves the tab cookie to a [Store], issuing a new tab id when the
// cookie is missing or malformed, and puts the store on the request context.
//
// A logged-in store whose access token is about to expire is refreshed before
// the request continues.
func Middleware(manager *Manager, cookie CookieConfig) func(http.Handler) http.Handler {
	if cookie.Name == "" {
		cookie.Name = constants.SessionCookieName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			tabID := ""
			if existing, err := request.Cookie(cookie.Name); err == nil && uuid.IsValid(existing.Value) {
				tabID = existing.Value
			}

			if tabID == "" {
				tabID = manager.NewTabID()
				http.SetCookie(writer, &http.Cookie{
					Name:     cookie.Name,
					Value:    tabID,
					Path:     constants.SessionCookiePath,
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := ctxutil.WithTabID(request.Context(), tabID)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.String("tab", tabID)))
			store := manager.Store(ctx, tabID)
			ctx = WithStore(ctx, store)

			refreshIfExpiring(ctx, store, constants.TokenRefreshLeeway)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// refreshIfExpiring refreshes ahead of expiry. A failed refresh has already
// logged the store out, which is all the request needs to know.
func refreshIfExpiring(ctx context.Context, store *Store, leeway time.Duration) {
	if _, err := store.RefreshIfNeeded(ctx, leeway); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_proactive_refresh_failed", slog.Any("error", err))
	}
}
