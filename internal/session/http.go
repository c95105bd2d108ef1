// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/ucenter/internal/platform/apperr"
	requestutil "github.com/taibuivan/ucenter/internal/platform/request"
	"github.com/taibuivan/ucenter/internal/platform/respond"
	"github.com/taibuivan/ucenter/internal/platform/validate"
	"github.com/taibuivan/ucenter/internal/rbac"
)

// # Definitions & Constructors

// Handler exposes the tab's session to the SPA.
//
// It must be mounted behind [Middleware], which resolves the tab's store.
type Handler struct{}

// NewHandler constructs a new [Handler].
func NewHandler() *Handler {
	return &Handler{}
}

// Routes returns a [chi.Router] with the session endpoints.
//
// # Endpoints
//   - GET  /                  : Current session view.
//   - POST /login             : Authenticates the tab.
//   - POST /logout            : Ends the tab's session.
//   - POST /refresh           : Exchanges the refresh token.
//   - POST /fetch/{resource}  : Re-reads user, permissions or menus.
//   - POST /system            : Switches the system context.
//   - GET  /menus             : Menu tree pruned to the held permissions.
//   - POST /check             : Evaluates a permission requirement.
//   - GET  /notices           : Drains pending notices.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.current)
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Post("/refresh", handler.refresh)
	router.Post("/fetch/{resource}", handler.fetch)
	router.Post("/system", handler.switchSystem)
	router.Get("/menus", handler.menus)
	router.Post("/check", handler.check)
	router.Get("/notices", handler.notices)

	return router
}

// # Payloads

// Field names used in validation errors.
const (
	FieldUsername   = "username"
	FieldPassword   = "password"
	FieldRedirect   = "redirect"
	FieldResource   = "resource"
	FieldSystemCode = "systemCode"
)

type loginRequest struct {
	Credentials
	Redirect string `json:"redirect,omitempty"`
}

type switchSystemRequest struct {
	SystemCode string `json:"systemCode"`
}

type checkRequest struct {
	Requirement rbac.Requirement `json:"requirement"`
	Roles       []string         `json:"roles,omitempty"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// View is the client-facing session state. Tokens never leave the server.
type View struct {
	LoggedIn             bool       `json:"loggedIn"`
	User                 *rbac.User `json:"user"`
	Permissions          []string   `json:"permissions"`
	Roles                []string   `json:"roles"`
	SystemCode           string     `json:"systemCode"`
	Hydrated             bool       `json:"hydrated"`
	AccessTokenExpiresAt *time.Time `json:"accessTokenExpiresAt,omitempty"`
}

type navigationView struct {
	Session  View   `json:"session"`
	Location string `json:"location"`
}

// NewView renders the store's current state.
func NewView(store *Store) View {
	snapshot := store.Snapshot()

	view := View{
		LoggedIn:    snapshot.IsLoggedIn(),
		User:        snapshot.User,
		Permissions: snapshot.Permissions.Codes(),
		Roles:       store.Roles(),
		SystemCode:  snapshot.SystemCode,
		Hydrated:    snapshot.Hydrated,
	}
	if view.Roles == nil {
		view.Roles = []string{}
	}
	if expiresAt, ok := store.AccessTokenExpiresAt(); ok {
		view.AccessTokenExpiresAt = &expiresAt
	}
	return view
}

// ToAppError maps a session failure onto the HTTP error taxonomy.
func ToAppError(err error) error {
	switch KindOf(err) {
	case KindAuth:
		return apperr.Unauthorized("Authentication failed").WithCause(err)
	case KindNetwork:
		return apperr.BadGateway("Authentication service unavailable", err)
	case KindData:
		return apperr.BadGateway("Authentication service returned invalid data", err)
	case KindStale:
		return apperr.Conflict("Session changed while the request was in flight").WithCause(err)
	default:
		return err
	}
}

func mustStore(request *http.Request) (*Store, error) {
	store := FromContext(request.Context())
	if store == nil {
		return nil, apperr.Internal(errors.New("session: store missing from request context"))
	}
	return store, nil
}

// # Handlers

/*
Current returns the session view.

GET /api/v1/session

Response:
  - 200: View
*/
func (handler *Handler) current(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, NewView(store))
}

/*
Login authenticates the tab and navigates to the redirect target.

POST /api/v1/session/login

Request:
  - Body: loginRequest (Username, Password, Captcha, Redirect)

Response:
  - 200: navigationView: Session and the location after the guard ran
  - 400: Validation failure
  - 401: Rejected credentials
  - 502: Authentication service unavailable
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MaxLen(FieldUsername, input.Username, 64).
		Required(FieldPassword, input.Password).
		MaxLen(FieldPassword, input.Password, 128)
	if input.Redirect != "" {
		validator.Path(FieldRedirect, input.Redirect)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := store.Login(request.Context(), input.Credentials); err != nil {
		if IsAuth(err) {
			respond.Error(writer, request, apperr.Unauthorized("Invalid username or password").WithCause(err))
			return
		}
		respond.Error(writer, request, ToAppError(err))
		return
	}

	target := input.Redirect
	if target == "" {
		target = "/"
	}
	location, err := store.Navigate(request.Context(), target)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, navigationView{Session: NewView(store), Location: location})
}

/*
Logout ends the session. It always succeeds.

POST /api/v1/session/logout

Response:
  - 200: navigationView with the login location
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	store.Logout(request.Context())
	respond.OK(writer, navigationView{Session: NewView(store), Location: "/login"})
}

/*
Refresh exchanges the refresh token. A failure has already logged the tab out.

POST /api/v1/session/refresh

Response:
  - 200: View
  - 401: Refresh rejected, session cleared
  - 502: Authentication service unavailable, session cleared
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := store.RefreshAccessToken(request.Context()); err != nil {
		respond.Error(writer, request, ToAppError(err))
		return
	}
	respond.OK(writer, NewView(store))
}

/*
Fetch re-reads one part of the session from the authentication service.

POST /api/v1/session/fetch/{resource}

Request:
  - Path: resource (user, permissions, menus)

Response:
  - 200: View
  - 400: Unknown resource
  - 401: Not logged in or token rejected
  - 502: Authentication service unavailable, prior state kept
*/
func (handler *Handler) fetch(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	resource := requestutil.Param(request, FieldResource)
	if err := (&validate.Validator{}).OneOf(FieldResource, resource, "user", "permissions", "menus").Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	switch resource {
	case "user":
		err = store.FetchUser(request.Context())
	case "permissions":
		err = store.FetchPermissions(request.Context())
	case "menus":
		err = store.FetchMenus(request.Context())
	}
	if err != nil {
		respond.Error(writer, request, ToAppError(err))
		return
	}

	respond.OK(writer, NewView(store))
}

/*
SwitchSystem selects another system context.

POST /api/v1/session/system

Request:
  - Body: switchSystemRequest (SystemCode)

Response:
  - 200: View
  - 400: Validation failure
  - 401: Not logged in
  - 502: Authentication service unavailable, previous system kept
*/
func (handler *Handler) switchSystem(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input switchSystemRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required(FieldSystemCode, input.SystemCode).MaxLen(FieldSystemCode, input.SystemCode, 64).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := store.SwitchSystem(request.Context(), input.SystemCode); err != nil {
		respond.Error(writer, request, ToAppError(err))
		return
	}

	respond.OK(writer, NewView(store))
}

/*
Menus returns the menu tree pruned to what the session may see.

GET /api/v1/session/menus

Response:
  - 200: []rbac.Menu (empty when logged out)
*/
func (handler *Handler) menus(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := store.EnsureHydrated(request.Context()); err != nil {
		respond.Error(writer, request, ToAppError(err))
		return
	}

	snapshot := store.Snapshot()
	if !snapshot.IsLoggedIn() {
		respond.OK(writer, []*rbac.Menu{})
		return
	}
	respond.OK(writer, rbac.VisibleMenus(snapshot.Menus, snapshot.Permissions))
}

/*
Check evaluates a permission requirement and optional roles (any-of) together.

POST /api/v1/session/check

Request:
  - Body: checkRequest (Requirement as string, list or {code|anyOf|allOf}; Roles)

Response:
  - 200: checkResponse
  - 400: Malformed requirement
*/
func (handler *Handler) check(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input checkRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	allowed := input.Requirement.SatisfiedBy(store) && store.HasAnyRole(input.Roles)
	respond.OK(writer, checkResponse{Allowed: allowed})
}

/*
Notices drains the tab's pending notices.

GET /api/v1/session/notices

Response:
  - 200: []Notice, oldest first
*/
func (handler *Handler) notices(writer http.ResponseWriter, request *http.Request) {
	store, err := mustStore(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, store.Notices().Drain())
}
