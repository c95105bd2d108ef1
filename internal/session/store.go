// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session owns the console's authenticated browser-tab state.

A [Store] answers "who is logged in and what can they do" for one tab and is the
only thing allowed to change that answer. Readers get immutable [Snapshot] values
swapped in atomically, so a permission check never observes half of a login.

Lifecycle:

  - Login populates tokens, identity, permissions and menus in one swap.
  - Logout clears everything and the persisted copy, whatever the remote says.
  - RefreshAccessToken replaces only the access token; any failure logs out.
  - FetchUser, FetchPermissions and FetchMenus are best-effort refreshers.

Every session-replacing transition bumps a generation counter. Responses that
return after the generation moved are discarded with [KindStale].
*/
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/ucenter/internal/platform/constants"
	"github.com/taibuivan/ucenter/internal/platform/sec"
	"github.com/taibuivan/ucenter/internal/rbac"
)

// # Snapshot

// Snapshot is one consistent view of a session. It is never mutated after being
// published; Menus in particular must be treated as read-only.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	User         *rbac.User
	Permissions  rbac.PermissionSet
	Menus        []*rbac.Menu
	SystemCode   string
	Hydrated     bool
	Generation   uint64
}

// IsLoggedIn requires both an access token and an identity.
func (snapshot *Snapshot) IsLoggedIn() bool {
	return snapshot.AccessToken != "" && snapshot.User != nil
}

// # Store

// Options configures a [Store].
type Options struct {
	// Namespace scopes persisted entries, normally the browser tab id.
	Namespace string

	// SystemCode is the system context selected after login.
	SystemCode string

	Storage Storage
	Notices *Notices
	Logger  *slog.Logger
	Now     func() time.Time
}

// Store is the session and permission store for one browser tab.
type Store struct {
	auth          Authenticator
	storage       Storage
	namespace     string
	defaultSystem string
	notices       *Notices
	logger        *slog.Logger
	now           func() time.Time

	// writeMu serializes every commit and the storage writes that go with it.
	writeMu sync.Mutex
	state   atomic.Pointer[Snapshot]

	// hydrateMu lets only one EnsureHydrated fetch run at a time.
	hydrateMu sync.Mutex

	// refreshMu lets only one proactive refresh run at a time.
	refreshMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[uint64]func(*Snapshot)
	nextSubID   uint64

	navMu     sync.RWMutex
	navigator Navigator

	initOnce sync.Once
}

// NewStore creates a logged-out store.
func NewStore(auth Authenticator, opts Options) *Store {
	if opts.Storage == nil {
		opts.Storage = NewMemoryStorage()
	}
	if opts.Notices == nil {
		opts.Notices = NewNotices()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	store := &Store{
		auth:          auth,
		storage:       opts.Storage,
		namespace:     opts.Namespace,
		defaultSystem: opts.SystemCode,
		notices:       opts.Notices,
		logger:        opts.Logger.With(slog.String("tab", opts.Namespace)),
		now:           opts.Now,
		subscribers:   make(map[uint64]func(*Snapshot)),
	}
	store.state.Store(&Snapshot{SystemCode: opts.SystemCode})
	return store
}

// AttachNavigator sets the router logout sends the tab to the login page through.
func (store *Store) AttachNavigator(navigator Navigator) {
	store.navMu.Lock()
	defer store.navMu.Unlock()
	store.navigator = navigator
}

// Navigate moves the tab through the attached navigator. Without one the path
// is returned unchanged.
func (store *Store) Navigate(ctx context.Context, path string) (string, error) {
	store.navMu.RLock()
	navigator := store.navigator
	store.navMu.RUnlock()

	if navigator == nil {
		return path, nil
	}
	return navigator.Navigate(ctx, path)
}

// Notices returns the tab's notice queue.
func (store *Store) Notices() *Notices { return store.notices }

// Namespace returns the storage namespace (the tab id).
func (store *Store) Namespace() string { return store.namespace }

// # Reads

// Snapshot returns the current consistent view.
func (store *Store) Snapshot() *Snapshot { return store.state.Load() }

// IsLoggedIn reports whether both an access token and an identity are present.
func (store *Store) IsLoggedIn() bool { return store.state.Load().IsLoggedIn() }

// HasPermission reports exact membership. An empty code is always allowed.
func (store *Store) HasPermission(code string) bool {
	return store.state.Load().Permissions.HasPermission(code)
}

// HasAnyPermission reports whether any code is held. An empty list is always allowed.
func (store *Store) HasAnyPermission(codes []string) bool {
	return store.state.Load().Permissions.HasAnyPermission(codes)
}

// HasAllPermissions reports whether every code is held. An empty list is always allowed.
func (store *Store) HasAllPermissions(codes []string) bool {
	return store.state.Load().Permissions.HasAllPermissions(codes)
}

// Roles lists the role ids of the identity in the selected system.
func (store *Store) Roles() []string {
	snapshot := store.state.Load()
	return snapshot.User.RoleIDsFor(snapshot.SystemCode, store.now())
}

// HasRole reports exact membership in [Store.Roles]. An empty role is always allowed.
func (store *Store) HasRole(role string) bool {
	if role == "" {
		return true
	}
	for _, held := range store.Roles() {
		if held == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether any role is held. An empty list is always allowed.
func (store *Store) HasAnyRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if store.HasRole(role) {
			return true
		}
	}
	return false
}

// AccessTokenExpiresAt decodes the exp claim of the access token. ok is false
// when logged out or when the token is not a JWT carrying exp.
func (store *Store) AccessTokenExpiresAt() (time.Time, bool) {
	token := store.state.Load().AccessToken
	if token == "" {
		return time.Time{}, false
	}
	return sec.PeekExpiry(token)
}

// NeedsRefresh reports whether the access token expires within leeway.
func (store *Store) NeedsRefresh(leeway time.Duration) bool {
	snapshot := store.state.Load()
	if !snapshot.IsLoggedIn() || snapshot.RefreshToken == "" {
		return false
	}
	expiresAt, ok := sec.PeekExpiry(snapshot.AccessToken)
	if !ok {
		return false
	}
	return !store.now().Add(leeway).Before(expiresAt)
}

// # Subscriptions

// Subscribe registers listener for every committed change and returns a func
// that removes it. Listeners run synchronously on the committing goroutine and
// always receive the latest snapshot.
func (store *Store) Subscribe(listener func(*Snapshot)) (unsubscribe func()) {
	store.subMu.Lock()
	id := store.nextSubID
	store.nextSubID++
	store.subscribers[id] = listener
	store.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			store.subMu.Lock()
			delete(store.subscribers, id)
			store.subMu.Unlock()
		})
	}
}

func (store *Store) publish() {
	store.subMu.Lock()
	listeners := make([]func(*Snapshot), 0, len(store.subscribers))
	for _, listener := range store.subscribers {
		listeners = append(listeners, listener)
	}
	store.subMu.Unlock()

	latest := store.state.Load()
	for _, listener := range listeners {
		listener(latest)
	}
}

// # Commit

// commit applies mutate to a copy of the current snapshot, provided the
// generation is still expected, then runs persist under the same lock.
func (store *Store) commit(ctx context.Context, op string, expected uint64, mutate func(next *Snapshot), persist func(ctx context.Context) error) (*Snapshot, error) {
	store.writeMu.Lock()

	current := store.state.Load()
	if current.Generation != expected {
		store.writeMu.Unlock()
		store.logger.InfoContext(ctx, "session_response_discarded",
			slog.String("op", op),
			slog.Uint64("expected_generation", expected),
			slog.Uint64("generation", current.Generation),
		)
		return nil, NewError(KindStale, op, ErrSuperseded)
	}

	next := *current
	mutate(&next)
	store.state.Store(&next)

	if persist != nil {
		if err := persist(ctx); err != nil {
			store.logger.ErrorContext(ctx, "session_persist_failed", slog.String("op", op), slog.Any("error", err))
		}
	}

	store.writeMu.Unlock()
	store.publish()
	return &next, nil
}

func (store *Store) persistCredentials(accessToken, refreshToken string, user *rbac.User) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		userJSON, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return errors.Join(
			store.storage.Set(ctx, store.namespace, constants.StorageKeyToken, accessToken),
			store.storage.Set(ctx, store.namespace, constants.StorageKeyRefreshToken, refreshToken),
			store.storage.Set(ctx, store.namespace, constants.StorageKeyUser, string(userJSON)),
		)
	}
}

func (store *Store) clearStorage(ctx context.Context) error {
	return store.storage.Delete(ctx, store.namespace,
		constants.StorageKeyToken,
		constants.StorageKeyRefreshToken,
		constants.StorageKeyUser,
	)
}

// classify treats any collaborator error that is not already a session [*Error]
// as a transport failure. A session error keeps its kind and is relabelled
// with op.
func classify(op string, err error) error {
	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		if sessionErr.Op == op {
			return err
		}
		return NewError(sessionErr.Kind, op, sessionErr.Err)
	}
	return NewError(KindNetwork, op, err)
}

// # Lifecycle

/*
Login exchanges credentials for a full session.

Description: On success, tokens, identity, permissions and menus are published
in one swap and persisted. On failure the state is left unchanged and a notice is
queued. A login that completes after a logout started is discarded.

Parameters:
  - ctx: context.Context
  - credentials: Credentials

Returns:
  - error: [*Error] with KindAuth, KindNetwork, KindData or KindStale
*/
func (store *Store) Login(ctx context.Context, credentials Credentials) error {
	const op = "login"
	generation := store.state.Load().Generation

	result, err := store.auth.Login(ctx, credentials)
	if err != nil {
		err = classify(op, err)
		store.logger.WarnContext(ctx, "session_login_failed",
			slog.String("username", credentials.Username),
			slog.String("kind", KindOf(err).String()),
			slog.Any("error", err),
		)
		store.notices.Push(NoticeError, "Login failed")
		return err
	}

	if result == nil || result.Token == "" || result.User == nil {
		store.notices.Push(NoticeError, "Login failed")
		return NewError(KindData, op, errors.New("login response is missing the token or the user"))
	}

	menus := store.normalizeMenus(ctx, result.Menus)

	_, err = store.commit(ctx, op, generation, func(next *Snapshot) {
		*next = Snapshot{
			AccessToken:  result.Token,
			RefreshToken: result.RefreshToken,
			User:         result.User,
			Permissions:  rbac.NewPermissionSet(result.Permissions),
			Menus:        menus,
			SystemCode:   store.defaultSystem,
			Hydrated:     true,
			Generation:   generation + 1,
		}
	}, store.persistCredentials(result.Token, result.RefreshToken, result.User))
	if err != nil {
		return err
	}

	store.logger.InfoContext(ctx, "session_login_succeeded", slog.String("user_id", result.User.ID))
	store.notices.Push(NoticeSuccess, "Login successful")
	return nil
}

/*
Logout ends the session. It is idempotent.

Description: The remote invalidation is best-effort; its failure is logged and
never blocks local cleanup. All fields and persisted entries are cleared, the
generation moves on so in-flight responses are discarded, and the tab is sent to
the login page.

Parameters:
  - ctx: context.Context
*/
func (store *Store) Logout(ctx context.Context) {
	store.logout(ctx, nil)
}

// logout clears the session. When expected is set the clear only happens if the
// generation still matches, so a cascading failure from an older session
// cannot end a newer one.
func (store *Store) logout(ctx context.Context, expected *uint64) {
	current := store.state.Load()
	if expected != nil && current.Generation != *expected {
		return
	}

	if current.AccessToken != "" {
		if err := store.auth.Logout(ctx, current.AccessToken); err != nil {
			store.logger.WarnContext(ctx, "session_logout_remote_failed", slog.Any("error", err))
		}
	}

	store.writeMu.Lock()
	latest := store.state.Load()
	if expected != nil && latest.Generation != *expected {
		store.writeMu.Unlock()
		return
	}
	wasLoggedIn := latest.IsLoggedIn()
	store.state.Store(&Snapshot{
		SystemCode: store.defaultSystem,
		Generation: latest.Generation + 1,
	})
	if err := store.clearStorage(ctx); err != nil {
		store.logger.ErrorContext(ctx, "session_storage_clear_failed", slog.Any("error", err))
	}
	store.writeMu.Unlock()

	store.publish()

	if wasLoggedIn {
		store.logger.InfoContext(ctx, "session_logged_out")
		store.notices.Push(NoticeSuccess, "Signed out")
	}

	if _, err := store.Navigate(ctx, "/login"); err != nil {
		store.logger.WarnContext(ctx, "session_logout_navigation_failed", slog.Any("error", err))
	}
}

/*
RefreshAccessToken exchanges the refresh token for a new access token.

Description: Only the access token changes. Any failure, including a missing
refresh token, logs the session out so it is never left half-authenticated.

Parameters:
  - ctx: context.Context

Returns:
  - error: [*Error]; KindStale when the session changed meanwhile
*/
func (store *Store) RefreshAccessToken(ctx context.Context) error {
	const op = "refresh"
	current := store.state.Load()
	generation := current.Generation

	if current.RefreshToken == "" {
		store.logout(ctx, &generation)
		return NewError(KindAuth, op, ErrNoRefreshToken)
	}

	token, err := store.auth.Refresh(ctx, current.RefreshToken)
	if err == nil && token == "" {
		err = NewError(KindAuth, op, errors.New("refresh response is missing the token"))
	}
	if err != nil {
		err = classify(op, err)
		if store.state.Load().Generation != generation {
			return NewError(KindStale, op, ErrSuperseded)
		}
		store.logger.WarnContext(ctx, "session_refresh_failed",
			slog.String("kind", KindOf(err).String()),
			slog.Any("error", err),
		)
		store.notices.Push(NoticeWarning, "Your session has expired, please log in again")
		store.logout(ctx, &generation)
		return err
	}

	_, err = store.commit(ctx, op, generation, func(next *Snapshot) {
		next.AccessToken = token
	}, func(ctx context.Context) error {
		return store.storage.Set(ctx, store.namespace, constants.StorageKeyToken, token)
	})
	return err
}

// RefreshIfNeeded refreshes when the access token expires within leeway.
// Concurrent callers wait for the first refresh and then see a fresh token.
func (store *Store) RefreshIfNeeded(ctx context.Context, leeway time.Duration) (bool, error) {
	if !store.NeedsRefresh(leeway) {
		return false, nil
	}

	store.refreshMu.Lock()
	defer store.refreshMu.Unlock()

	if !store.NeedsRefresh(leeway) {
		return false, nil
	}
	return true, store.RefreshAccessToken(ctx)
}

// # Best-effort refreshers

// fetchFailed logs a refresher failure. Rejected tokens end the session;
// everything else leaves the prior state untouched.
func (store *Store) fetchFailed(ctx context.Context, op string, generation uint64, err error) error {
	err = classify(op, err)
	store.logger.ErrorContext(ctx, "session_fetch_failed",
		slog.String("op", op),
		slog.String("kind", KindOf(err).String()),
		slog.Any("error", err),
	)
	if IsAuth(err) {
		store.notices.Push(NoticeWarning, "Your session has expired, please log in again")
		store.logout(ctx, &generation)
	}
	return err
}

func (store *Store) requireToken(op string) (*Snapshot, error) {
	current := store.state.Load()
	if current.AccessToken == "" {
		return nil, NewError(KindAuth, op, ErrNotLoggedIn)
	}
	return current, nil
}

// FetchUser re-reads the identity and persists it.
func (store *Store) FetchUser(ctx context.Context) error {
	const op = "fetch_user"
	current, err := store.requireToken(op)
	if err != nil {
		return err
	}

	user, err := store.auth.CurrentUser(ctx, current.AccessToken)
	if err == nil && user == nil {
		err = NewError(KindData, op, errors.New("empty user"))
	}
	if err != nil {
		return store.fetchFailed(ctx, op, current.Generation, err)
	}

	_, err = store.commit(ctx, op, current.Generation, func(next *Snapshot) {
		next.User = user
	}, func(ctx context.Context) error {
		userJSON, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return store.storage.Set(ctx, store.namespace, constants.StorageKeyUser, string(userJSON))
	})
	return err
}

// FetchPermissions re-reads the permission codes for the selected system.
func (store *Store) FetchPermissions(ctx context.Context) error {
	const op = "fetch_permissions"
	current, err := store.requireToken(op)
	if err != nil {
		return err
	}

	codes, err := store.auth.CurrentPermissions(ctx, current.AccessToken, current.SystemCode)
	if err != nil {
		return store.fetchFailed(ctx, op, current.Generation, err)
	}

	_, err = store.commit(ctx, op, current.Generation, func(next *Snapshot) {
		next.Permissions = rbac.NewPermissionSet(codes)
	}, nil)
	return err
}

// FetchMenus re-reads the menu tree for the selected system.
func (store *Store) FetchMenus(ctx context.Context) error {
	const op = "fetch_menus"
	current, err := store.requireToken(op)
	if err != nil {
		return err
	}

	menus, err := store.auth.CurrentMenus(ctx, current.AccessToken, current.SystemCode)
	if err != nil {
		return store.fetchFailed(ctx, op, current.Generation, err)
	}
	menus = store.normalizeMenus(ctx, menus)

	_, err = store.commit(ctx, op, current.Generation, func(next *Snapshot) {
		next.Menus = menus
	}, nil)
	return err
}

// normalizeMenus rebuilds the menu forest and reports tolerated problems.
func (store *Store) normalizeMenus(ctx context.Context, menus []*rbac.Menu) []*rbac.Menu {
	roots, report := rbac.NormalizeTree(menus)
	if !report.Clean() {
		store.logger.WarnContext(ctx, "session_menu_tree_repaired",
			slog.Any("orphans", report.Orphans),
			slog.Any("duplicates", report.Duplicates),
			slog.Any("cycle_breaks", report.CycleBreaks),
		)
	}
	return roots
}

// # Hydration

/*
Initialize restores the persisted tokens and identity. It runs once per store;
later calls are no-ops.

Description: Permissions and menus are never persisted; [Store.EnsureHydrated]
fetches them before the first protected navigation. A corrupt persisted user is
discarded together with the tokens and the session stays logged out.

Parameters:
  - ctx: context.Context
*/
func (store *Store) Initialize(ctx context.Context) {
	store.initOnce.Do(func() {
		store.initialize(ctx)
	})
}

func (store *Store) initialize(ctx context.Context) {
	read := func(key string) string {
		value, _, err := store.storage.Get(ctx, store.namespace, key)
		if err != nil {
			store.logger.WarnContext(ctx, "session_storage_read_failed", slog.String("key", key), slog.Any("error", err))
		}
		return value
	}

	token := read(constants.StorageKeyToken)
	refreshToken := read(constants.StorageKeyRefreshToken)
	rawUser := read(constants.StorageKeyUser)

	var user *rbac.User
	if rawUser != "" {
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
			dataErr := NewError(KindData, "initialize", err)
			store.logger.ErrorContext(ctx, "session_persisted_user_corrupt", slog.Any("error", dataErr))

			store.writeMu.Lock()
			if err := store.clearStorage(ctx); err != nil {
				store.logger.ErrorContext(ctx, "session_storage_clear_failed", slog.Any("error", err))
			}
			store.writeMu.Unlock()
			return
		}
	}

	if token == "" && refreshToken == "" && user == nil {
		return
	}

	generation := store.state.Load().Generation
	_, err := store.commit(ctx, "initialize", generation, func(next *Snapshot) {
		next.AccessToken = token
		next.RefreshToken = refreshToken
		next.User = user
	}, nil)
	if err == nil {
		store.logger.InfoContext(ctx, "session_restored", slog.Bool("logged_in", token != "" && user != nil))
	}
}

/*
EnsureHydrated fetches permissions and menus once after a restore, so protected
navigation never decides against an empty permission cache.

Description: A no-op when logged out or already hydrated. Concurrent callers
wait for the first fetch. On failure the store stays unhydrated and the next
call tries again.

Parameters:
  - ctx: context.Context

Returns:
  - error: the first refresher failure
*/
func (store *Store) EnsureHydrated(ctx context.Context) error {
	snapshot := store.state.Load()
	if !snapshot.IsLoggedIn() || snapshot.Hydrated {
		return nil
	}

	store.hydrateMu.Lock()
	defer store.hydrateMu.Unlock()

	snapshot = store.state.Load()
	if !snapshot.IsLoggedIn() || snapshot.Hydrated {
		return nil
	}

	if err := store.FetchPermissions(ctx); err != nil {
		return err
	}
	if err := store.FetchMenus(ctx); err != nil {
		return err
	}

	_, err := store.commit(ctx, "hydrate", snapshot.Generation, func(next *Snapshot) {
		next.Hydrated = true
	}, nil)
	return err
}

/*
SwitchSystem selects another system context, replacing permissions and menus
in one swap. The previous system stays selected when either fetch fails.

Parameters:
  - ctx: context.Context
  - systemCode: string

Returns:
  - error: [*Error]
*/
func (store *Store) SwitchSystem(ctx context.Context, systemCode string) error {
	const op = "switch_system"
	current, err := store.requireToken(op)
	if err != nil {
		return err
	}

	codes, err := store.auth.CurrentPermissions(ctx, current.AccessToken, systemCode)
	if err != nil {
		return store.fetchFailed(ctx, op, current.Generation, err)
	}
	menus, err := store.auth.CurrentMenus(ctx, current.AccessToken, systemCode)
	if err != nil {
		return store.fetchFailed(ctx, op, current.Generation, err)
	}
	menus = store.normalizeMenus(ctx, menus)

	_, err = store.commit(ctx, op, current.Generation, func(next *Snapshot) {
		next.SystemCode = systemCode
		next.Permissions = rbac.NewPermissionSet(codes)
		next.Menus = menus
		next.Hydrated = true
	}, nil)
	if err == nil {
		store.logger.InfoContext(ctx, "session_system_switched", slog.String("system_code", systemCode))
	}
	return err
}
