// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"

	"github.com/taibuivan/ucenter/internal/rbac"
)

// Credentials is the login form payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Captcha  string `json:"captcha,omitempty"`
}

// LoginResult is everything the authentication service returns on a successful login.
type LoginResult struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *rbac.User   `json:"user"`
	Permissions  []string     `json:"permissions"`
	Menus        []*rbac.Menu `json:"menus"`
}

// Authenticator is the remote authentication collaborator.
//
// Implementations return [*Error] values: [KindAuth] for rejected credentials or
// tokens and [KindNetwork] for transport failures. An empty systemCode means
// the service's default system.
type Authenticator interface {
	Login(ctx context.Context, credentials Credentials) (*LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	CurrentUser(ctx context.Context, accessToken string) (*rbac.User, error)
	CurrentPermissions(ctx context.Context, accessToken, systemCode string) ([]string, error)
	CurrentMenus(ctx context.Context, accessToken, systemCode string) ([]*rbac.Menu, error)
}

// Navigator moves the tab to a new location and reports where it ended up
// after redirects.
type Navigator interface {
	Navigate(ctx context.Context, path string) (string, error)
}
