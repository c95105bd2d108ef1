// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package devauth is an in-process stand-in for the platform authentication API.

It serves the development accounts over the same REST contract the console's
authclient package consumes, so a console can run end to end without the platform.

# Accounts

  - admin / 123456: every console permission in ucenter, a sales role in crm.
  - user / 123456: user:list and user:view in ucenter.

Access tokens are HS256 JWTs. Refresh tokens are opaque and stored hashed.
Nothing is persisted; restarting the process signs everybody out.
*/
package devauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/ucenter/internal/platform/constants"
	"github.com/taibuivan/ucenter/internal/platform/sec"
	"github.com/taibuivan/ucenter/internal/rbac"
	"github.com/taibuivan/ucenter/pkg/slice"
)

// # Errors

var (
	ErrInvalidCredentials  = errors.New("devauth: invalid username or password")
	ErrAccountDisabled     = errors.New("devauth: account disabled")
	ErrInvalidRefreshToken = errors.New("devauth: invalid or expired refresh token")
	ErrTokenRevoked        = errors.New("devauth: token revoked")
	ErrUnknownUser         = errors.New("devauth: unknown user")
	ErrUnknownSystem       = errors.New("devauth: unknown system")
)

// # Definitions & Constructors

// Config configures a [Service].
type Config struct {
	// Secret signs access tokens; at least 32 bytes.
	Secret   string
	Fixtures Fixtures

	// Password replaces [DefaultPassword] for every account when set.
	Password string

	// PasswordCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	PasswordCost int

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

type refreshGrant struct {
	userID    string
	expiresAt time.Time
}

// Service answers the authentication contract from a fixed data set.
type Service struct {
	tokens     *sec.TokenService
	fixtures   Fixtures
	hashes     map[string]string
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	refresh map[string]refreshGrant
	revoked map[string]time.Time
}

/*
New hashes the account passwords and prepares the token signer.

Parameters:
  - cfg: Config (zero TTLs take the console defaults)

Returns:
  - *Service
  - error: The signer rejected the secret, or hashing failed
*/
func New(cfg Config) (*Service, error) {
	tokens, err := sec.NewTokenService(cfg.Secret, constants.AuthIssuer)
	if err != nil {
		return nil, fmt.Errorf("devauth_signer_init_failed: %w", err)
	}

	if cfg.Password == "" {
		cfg.Password = DefaultPassword
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = constants.DevAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	hash, err := sec.HashPassword(cfg.Password, cfg.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("devauth_password_hash_failed: %w", err)
	}
	hashes := make(map[string]string, len(cfg.Fixtures.Users))
	for _, user := range cfg.Fixtures.Users {
		hashes[user.Username] = hash
	}

	return &Service{
		tokens:     tokens,
		fixtures:   cfg.Fixtures,
		hashes:     hashes,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		logger:     cfg.Logger,
		now:        cfg.Now,
		refresh:    make(map[string]refreshGrant),
		revoked:    make(map[string]time.Time),
	}, nil
}

// # Payloads

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *rbac.User   `json:"user"`
	Permissions  []string     `json:"permissions"`
	Menus        []*rbac.Menu `json:"menus"`
}

// # Authentication

/*
Login checks the credentials and issues a token pair together with the
account's permissions and menus in the default system.

Returns:
  - *LoginResult
  - error: ErrInvalidCredentials or ErrAccountDisabled
*/
func (service *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user := service.userByName(username)
	hash, known := service.hashes[username]

	// Unknown users still pay for a comparison so timing does not reveal them.
	if !known {
		_ = sec.ComparePassword(service.anyHash(), password)
		return nil, ErrInvalidCredentials
	}
	if err := sec.ComparePassword(hash, password); err != nil {
		if !errors.Is(err, sec.ErrPasswordMismatch) {
			service.logger.ErrorContext(ctx, "devauth_password_compare_failed", slog.String("username", username), slog.Any("error", err))
		}
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrAccountDisabled
	}

	token, err := service.tokens.GenerateAccessToken(user.ID, user.Username, service.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("devauth_issue_token_failed: %w", err)
	}
	refreshToken, err := service.issueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	now := service.now()
	user.LastLoginAt = &now

	systemCode := service.fixtures.DefaultSystem
	permissions := service.permissions(user, systemCode)

	service.logger.InfoContext(ctx, "devauth_login",
		slog.String("user_id", user.ID),
		slog.Int("permissions", len(permissions)),
	)

	return &LoginResult{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
		Permissions:  permissions,
		Menus:        service.menus(permissions, systemCode),
	}, nil
}

// Logout revokes the access token described by claims until it would have
// expired anyway.
func (service *Service) Logout(ctx context.Context, claims *sec.AuthClaims) {
	expiresAt := service.now().Add(service.accessTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	service.mu.Lock()
	service.revoked[claims.ID] = expiresAt
	service.mu.Unlock()

	service.logger.InfoContext(ctx, "devauth_logout", slog.String("user_id", claims.UserID))
}

/*
Refresh exchanges a refresh token for a new access token. The refresh token
stays valid until its own expiry.

Returns:
  - string: The new access token
  - error: ErrInvalidRefreshToken
*/
func (service *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	service.mu.Lock()
	grant, ok := service.refresh[sec.HashToken(refreshToken)]
	service.mu.Unlock()

	if !ok || !service.now().Before(grant.expiresAt) {
		return "", ErrInvalidRefreshToken
	}

	user := service.userByID(grant.userID)
	if !user.IsActive() {
		return "", ErrInvalidRefreshToken
	}

	token, err := service.tokens.GenerateAccessToken(user.ID, user.Username, service.accessTTL)
	if err != nil {
		return "", fmt.Errorf("devauth_issue_token_failed: %w", err)
	}

	service.logger.DebugContext(ctx, "devauth_refresh", slog.String("user_id", user.ID))
	return token, nil
}

// VerifyToken checks signature, expiry and revocation. It satisfies the
// authentication middleware's verifier.
func (service *Service) VerifyToken(accessToken string) (*sec.AuthClaims, error) {
	claims, err := service.tokens.VerifyToken(accessToken)
	if err != nil {
		return nil, err
	}

	service.mu.Lock()
	_, revoked := service.revoked[claims.ID]
	service.mu.Unlock()

	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// # Current Identity

// CurrentUser returns the account behind userID.
func (service *Service) CurrentUser(userID string) (*rbac.User, error) {
	user := service.userByID(userID)
	if user == nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}

// CurrentPermissions returns the codes userID holds in systemCode. An empty
// systemCode means the default system.
func (service *Service) CurrentPermissions(userID, systemCode string) ([]string, error) {
	user, system, err := service.resolve(userID, systemCode)
	if err != nil {
		return nil, err
	}
	return service.permissions(user, system), nil
}

// CurrentMenus returns the navigation tree of systemCode pruned to what userID
// may see.
func (service *Service) CurrentMenus(userID, systemCode string) ([]*rbac.Menu, error) {
	user, system, err := service.resolve(userID, systemCode)
	if err != nil {
		return nil, err
	}
	return service.menus(service.permissions(user, system), system), nil
}

// Systems lists the manageable systems.
func (service *Service) Systems() []rbac.System {
	return rbac.ActiveSystems(service.fixtures.Systems)
}

// # Maintenance

// Sweep drops expired refresh grants and revocations.
func (service *Service) Sweep() int {
	now := service.now()

	service.mu.Lock()
	defer service.mu.Unlock()

	dropped := 0
	for key, grant := range service.refresh {
		if !now.Before(grant.expiresAt) {
			delete(service.refresh, key)
			dropped++
		}
	}
	for key, expiresAt := range service.revoked {
		if !now.Before(expiresAt) {
			delete(service.revoked, key)
			dropped++
		}
	}
	return dropped
}

// Run sweeps on every tick until ctx is done.
func (service *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if dropped := service.Sweep(); dropped > 0 {
				service.logger.DebugContext(ctx, "devauth_swept", slog.Int("dropped", dropped))
			}
		case <-ctx.Done():
			return
		}
	}
}

// # Internals

func (service *Service) issueRefreshToken(userID string) (string, error) {
	token, err := sec.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("devauth_issue_refresh_failed: %w", err)
	}

	service.mu.Lock()
	service.refresh[sec.HashToken(token)] = refreshGrant{
		userID:    userID,
		expiresAt: service.now().Add(service.refreshTTL),
	}
	service.mu.Unlock()

	return token, nil
}

func (service *Service) resolve(userID, systemCode string) (*rbac.User, string, error) {
	user := service.userByID(userID)
	if user == nil {
		return nil, "", ErrUnknownUser
	}
	if systemCode == "" {
		systemCode = service.fixtures.DefaultSystem
	}
	if !slices.ContainsFunc(service.Systems(), func(system rbac.System) bool { return system.Code == systemCode }) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownSystem, systemCode)
	}
	return user, systemCode, nil
}

func (service *Service) permissions(user *rbac.User, systemCode string) []string {
	roleIDs := user.RoleIDsFor(systemCode, service.now())

	// The legacy list carries no system; it only applies to the one it names.
	if len(user.SystemAccess) == 0 && user.SystemCode != "" && user.SystemCode != systemCode {
		roleIDs = nil
	}

	return rbac.PermissionsFor(service.fixtures.Roles, systemCode, roleIDs)
}

func (service *Service) menus(permissions []string, systemCode string) []*rbac.Menu {
	nodes := slice.Filter(service.fixtures.Resources, func(node *rbac.Resource) bool {
		return node.SystemCode == systemCode
	})

	tree, report := rbac.BuildTree(nodes)
	if !report.Clean() {
		service.logger.Warn("devauth_menu_tree_repaired", slog.Any("report", report))
	}

	return rbac.VisibleMenus(tree, rbac.NewPermissionSet(permissions))
}

// userByName returns a copy so callers may stamp it freely.
func (service *Service) userByName(username string) *rbac.User {
	return service.findUser(func(user rbac.User) bool { return user.Username == username })
}

func (service *Service) userByID(id string) *rbac.User {
	return service.findUser(func(user rbac.User) bool { return user.ID == id })
}

func (service *Service) findUser(match func(rbac.User) bool) *rbac.User {
	index := slices.IndexFunc(service.fixtures.Users, match)
	if index < 0 {
		return nil
	}
	user := service.fixtures.Users[index]
	user.SystemAccess = slices.Clone(user.SystemAccess)
	user.RoleIDs = slices.Clone(user.RoleIDs)
	return &user
}

func (service *Service) anyHash() string {
	for _, hash := range service.hashes {
		return hash
	}
	return ""
}
