// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/taibuivan/ucenter/internal/rbac"
	"github.com/taibuivan/ucenter/internal/session"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeAuth is an in-memory Authenticator with switchable failures.
type fakeAuth struct {
	mu sync.Mutex

	result      *session.LoginResult
	loginErr    error
	loginGate   chan struct{}
	loginEnter  chan struct{}
	refreshed   string
	refreshErr  error
	fetchErr    error
	logoutErr   error
	logoutCalls int
	user        *rbac.User
	permissions map[string][]string
	menus       map[string][]*rbac.Menu
	lastSystem  string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		result: &session.LoginResult{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			User:         &rbac.User{ID: "2", Username: "user", Nickname: "Operator", Status: rbac.StatusActive, RoleIDs: []string{"user"}},
			Permissions:  []string{"user:list", "user:view"},
			Menus: []*rbac.Menu{
				{ID: "2", Name: "Users", Type: rbac.TypeModule, Sort: 2, Children: []*rbac.Menu{
					{ID: "2-1", Name: "User list", Type: rbac.TypeView},
				}},
				{ID: "1", Name: "Dashboard", Type: rbac.TypeModule, Sort: 1},
			},
		},
		refreshed: "access-2",
		user:      &rbac.User{ID: "2", Username: "user", Nickname: "Renamed", Status: rbac.StatusActive},
		permissions: map[string][]string{
			"":    {"user:list", "user:view", "role:list"},
			"crm": {"crm:lead:list"},
		},
		menus: map[string][]*rbac.Menu{
			"":    {{ID: "1", Name: "Dashboard", Type: rbac.TypeModule}},
			"crm": {{ID: "c1", Name: "Leads", Type: rbac.TypeModule}},
		},
	}
}

func (auth *fakeAuth) set(apply func(auth *fakeAuth)) {
	auth.mu.Lock()
	defer auth.mu.Unlock()
	apply(auth)
}

func (auth *fakeAuth) Login(ctx context.Context, _ session.Credentials) (*session.LoginResult, error) {
	auth.mu.Lock()
	gate, enter := auth.loginGate, auth.loginEnter
	result, err := auth.result, auth.loginErr
	auth.mu.Unlock()

	if enter != nil {
		close(enter)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, err
}

func (auth *fakeAuth) Logout(context.Context, string) error {
	auth.mu.Lock()
	defer auth.mu.Unlock()
	auth.logoutCalls++
	return auth.logoutErr
}

func (auth *fakeAuth) Refresh(context.Context, string) (string, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()
	return auth.refreshed, auth.refreshErr
}

func (auth *fakeAuth) CurrentUser(context.Context, string) (*rbac.User, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()
	return auth.user, auth.fetchErr
}

func (auth *fakeAuth) systemKey(systemCode string) string {
	if systemCode == "ucenter" {
		return ""
	}
	return systemCode
}

func (auth *fakeAuth) CurrentPermissions(_ context.Context, _ string, systemCode string) ([]string, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()
	auth.lastSystem = systemCode
	if auth.fetchErr != nil {
		return nil, auth.fetchErr
	}
	return auth.permissions[auth.systemKey(systemCode)], nil
}

func (auth *fakeAuth) CurrentMenus(_ context.Context, _ string, systemCode string) ([]*rbac.Menu, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()
	if auth.fetchErr != nil {
		return nil, auth.fetchErr
	}
	return auth.menus[auth.systemKey(systemCode)], nil
}

// recordingNavigator remembers every navigation.
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (navigator *recordingNavigator) Navigate(_ context.Context, path string) (string, error) {
	navigator.mu.Lock()
	defer navigator.mu.Unlock()
	navigator.paths = append(navigator.paths, path)
	return path, nil
}

func (navigator *recordingNavigator) visited() []string {
	navigator.mu.Lock()
	defer navigator.mu.Unlock()
	return append([]string(nil), navigator.paths...)
}
