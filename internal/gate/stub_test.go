// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/gate"
	"github.com/taibuivan/ucenter/internal/rbac"
	"github.com/taibuivan/ucenter/internal/session"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubAuth grants a fixed permission and role set.
type stubAuth struct {
	permissions []string
	roles       []string
}

func (auth *stubAuth) user() *rbac.User {
	return &rbac.User{ID: "1", Username: "user", Status: rbac.StatusActive, RoleIDs: auth.roles}
}

func (auth *stubAuth) Login(context.Context, session.Credentials) (*session.LoginResult, error) {
	return &session.LoginResult{Token: "access", RefreshToken: "refresh", User: auth.user(), Permissions: auth.permissions}, nil
}

func (auth *stubAuth) Logout(context.Context, string) error { return nil }

func (auth *stubAuth) Refresh(context.Context, string) (string, error) { return "access-2", nil }

func (auth *stubAuth) CurrentUser(context.Context, string) (*rbac.User, error) {
	return auth.user(), nil
}

func (auth *stubAuth) CurrentPermissions(context.Context, string, string) ([]string, error) {
	return auth.permissions, nil
}

func (auth *stubAuth) CurrentMenus(context.Context, string, string) ([]*rbac.Menu, error) {
	return nil, nil
}

func routeTable(t *testing.T) *gate.Table {
	t.Helper()
	table, err := gate.DefaultRoutes()
	require.NoError(t, err)
	return table
}

func newStore(auth session.Authenticator, storage session.Storage) *session.Store {
	return session.NewStore(auth, session.Options{Namespace: "tab", SystemCode: "ucenter", Storage: storage, Logger: discard})
}

func loggedIn(t *testing.T, permissions ...string) *session.Store {
	t.Helper()
	store := newStore(&stubAuth{permissions: permissions, roles: []string{"user"}}, nil)
	require.NoError(t, store.Login(context.Background(), session.Credentials{Username: "user", Password: "123456"}))
	store.Notices().Drain()
	return store
}
