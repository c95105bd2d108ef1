// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devauth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/ucenter/internal/platform/apperr"
	"github.com/taibuivan/ucenter/internal/platform/ctxutil"
	"github.com/taibuivan/ucenter/internal/platform/middleware"
	requestutil "github.com/taibuivan/ucenter/internal/platform/request"
	"github.com/taibuivan/ucenter/internal/platform/respond"
	"github.com/taibuivan/ucenter/internal/platform/validate"
)

// # Definitions & Constructors

// Handler serves [Service] over the platform's REST contract.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the authentication endpoints.
//
// # Endpoints
//   - POST /auth/login        : Credentials for a token pair and the session data.
//   - POST /auth/refresh      : Refresh token for a new access token.
//   - POST /auth/logout       : Revokes the bearer token.
//   - GET  /auth/user         : The bearer's identity.
//   - GET  /auth/permissions  : The bearer's codes (?systemCode=).
//   - GET  /auth/menus        : The bearer's menu tree (?systemCode=).
//   - GET  /auth/systems      : Manageable systems.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Route("/auth", func(auth chi.Router) {
		auth.Post("/login", handler.login)
		auth.Post("/refresh", handler.refresh)

		auth.Group(func(protected chi.Router) {
			protected.Use(middleware.Authenticate(handler.service))
			protected.Use(middleware.RequireAuth)

			protected.Post("/logout", handler.logout)
			protected.Get("/user", handler.user)
			protected.Get("/permissions", handler.permissions)
			protected.Get("/menus", handler.menus)
			protected.Get("/systems", handler.systems)
		})
	})

	return router
}

// # Envelope

// Envelope is the platform's response wrapper. Code 0 means success; failures
// repeat the HTTP status.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func success(writer http.ResponseWriter, data any) {
	respond.JSON(writer, http.StatusOK, Envelope{Code: 0, Message: "success", Data: data})
}

func failure(writer http.ResponseWriter, request *http.Request, err error) {
	appError := apperr.As(toAppError(err))
	if appError == nil {
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "devauth_request_failed",
			slog.String("error", err.Error()),
		)
	}

	respond.JSON(writer, appError.HTTPStatus, Envelope{Code: appError.HTTPStatus, Message: appError.Message})
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return apperr.Unauthorized("Invalid username or password")
	case errors.Is(err, ErrAccountDisabled):
		return apperr.Forbidden("Account disabled")
	case errors.Is(err, ErrInvalidRefreshToken):
		return apperr.Unauthorized("Refresh token invalid or expired")
	case errors.Is(err, ErrUnknownUser):
		return apperr.Unauthorized("Unknown account")
	case errors.Is(err, ErrUnknownSystem):
		return apperr.NotFound("System")
	default:
		return err
	}
}

// # Payloads

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Captcha  string `json:"captcha,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

// # Handlers

/*
Login authenticates a mock account.

POST /mock-api/auth/login

Request:
  - Body: loginRequest (Username, Password)

Response:
  - 200: LoginResult
  - 400: Missing fields
  - 401: Bad credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		failure(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required("username", input.Username).Required("password", input.Password).Err(); err != nil {
		failure(writer, request, err)
		return
	}

	result, err := handler.service.Login(request.Context(), input.Username, input.Password)
	if err != nil {
		failure(writer, request, err)
		return
	}

	success(writer, result)
}

/*
Refresh issues a new access token.

POST /mock-api/auth/refresh

Response:
  - 200: refreshResponse
  - 401: Unknown or expired refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		failure(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required("refreshToken", input.RefreshToken).Err(); err != nil {
		failure(writer, request, err)
		return
	}

	token, err := handler.service.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		failure(writer, request, err)
		return
	}

	success(writer, refreshResponse{Token: token})
}

// Logout revokes the bearer token. POST /mock-api/auth/logout
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		failure(writer, request, err)
		return
	}

	handler.service.Logout(request.Context(), claims)
	success(writer, nil)
}

func (handler *Handler) user(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		failure(writer, request, err)
		return
	}

	user, err := handler.service.CurrentUser(claims.UserID)
	if err != nil {
		failure(writer, request, err)
		return
	}

	success(writer, user)
}

func (handler *Handler) permissions(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		failure(writer, request, err)
		return
	}

	codes, err := handler.service.CurrentPermissions(claims.UserID, request.URL.Query().Get("systemCode"))
	if err != nil {
		failure(writer, request, err)
		return
	}

	success(writer, codes)
}

func (handler *Handler) menus(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		failure(writer, request, err)
		return
	}

	menus, err := handler.service.CurrentMenus(claims.UserID, request.URL.Query().Get("systemCode"))
	if err != nil {
		failure(writer, request, err)
		return
	}

	success(writer, menus)
}

func (handler *Handler) systems(writer http.ResponseWriter, _ *http.Request) {
	success(writer, handler.service.Systems())
}
