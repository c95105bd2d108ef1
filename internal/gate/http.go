// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"errors"
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/ucenter/internal/platform/apperr"
	"github.com/taibuivan/ucenter/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/ucenter/internal/platform/request"
	"github.com/taibuivan/ucenter/internal/platform/respond"
	"github.com/taibuivan/ucenter/internal/platform/validate"
	"github.com/taibuivan/ucenter/internal/session"
	"github.com/taibuivan/ucenter/pkg/slice"
)

// # Definitions & Constructors

// Handler exposes the tab's router and the element gate.
type Handler struct {
	registry *Registry
}

// NewHandler constructs a new [Handler].
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Routes returns a [chi.Router] with the navigation endpoints.
//
// # Endpoints
//   - GET  /          : Current location and title.
//   - POST /          : Navigates the tab.
//   - POST /elements  : Evaluates declared UI fragments.
//   - GET  /routes    : Menu routes the session may open.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.current)
	router.Post("/", handler.navigate)
	router.Post("/elements", handler.elements)
	router.Get("/routes", handler.routes)

	return router
}

// # Payloads

const (
	FieldPath     = "path"
	FieldElements = "elements"
)

type navigateRequest struct {
	Path string `json:"path"`
}

type elementsRequest struct {
	Elements []*Element `json:"elements"`
}

type currentResponse struct {
	Location *Location `json:"location"`
	Title    string    `json:"title"`
}

func (handler *Handler) router(request *http.Request) (*session.Store, *Router, error) {
	store := session.FromContext(request.Context())
	if store == nil {
		return nil, nil, apperr.Internal(errors.New("gate: store missing from request context"))
	}
	return store, handler.registry.For(store), nil
}

// # Handlers

/*
Current returns where the tab is.

GET /api/v1/navigation

Response:
  - 200: currentResponse (location is null before the first navigation)
*/
func (handler *Handler) current(writer http.ResponseWriter, request *http.Request) {
	_, router, err := handler.router(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, currentResponse{Location: router.Current(), Title: router.Title()})
}

/*
Navigate runs the guard for a target and moves the tab.

POST /api/v1/navigation

Request:
  - Body: navigateRequest (Path)

Response:
  - 200: Result with the final location and every decision taken
  - 400: Not an in-app path
  - 508: Redirect loop
*/
func (handler *Handler) navigate(writer http.ResponseWriter, request *http.Request) {
	_, router, err := handler.router(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input navigateRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required(FieldPath, input.Path).Path(FieldPath, input.Path).MaxLen(FieldPath, input.Path, 2048).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := router.Push(request.Context(), input.Path)
	if err != nil {
		respond.Error(writer, request, toAppError(err))
		return
	}

	respond.OK(writer, result)
}

/*
Elements evaluates declared fragments against the tab's session.

POST /api/v1/navigation/elements

Request:
  - Body: elementsRequest (Elements; permission as string, list or {code|anyOf|allOf})

Response:
  - 200: Rendering
  - 400: Malformed declaration
*/
func (handler *Handler) elements(writer http.ResponseWriter, request *http.Request) {
	store, _, err := handler.router(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input elementsRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Custom(FieldElements, len(input.Elements) > 256, "Maximum 256 top-level elements")
	for _, element := range input.Elements {
		if element != nil {
			validator.OneOf("mode", string(element.Mode), "", string(ModeHide), string(ModeDisable))
		}
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, Evaluate(input.Elements, store))
}

/*
Routes lists the menu routes the session may open, in table order.

GET /api/v1/navigation/routes

Response:
  - 200: []Route (empty when logged out)
*/
func (handler *Handler) routes(writer http.ResponseWriter, request *http.Request) {
	store, _, err := handler.router(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	visible := slice.Filter(handler.registry.Table().Routes, func(route *Route) bool {
		return route.Redirect == "" && !route.HideMenu && route.RequiresAuth() &&
			store.IsLoggedIn() && store.HasAnyPermission(route.Permissions)
	})
	if visible == nil {
		visible = []*Route{}
	}
	respond.OK(writer, visible)
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidPath):
		return apperr.ValidationError("Invalid navigation target", apperr.FieldError{Field: FieldPath, Message: err.Error()})
	case errors.Is(err, ErrRedirectLoop):
		return &apperr.AppError{Code: "REDIRECT_LOOP", Message: "Navigation keeps redirecting", HTTPStatus: http.StatusLoopDetected, Cause: err}
	default:
		return err
	}
}

// # Page Guard

/*
PageGuard runs the navigation guard for SPA page loads and answers redirects
with 302. Asset requests and non-GET methods pass straight through.
*/
func PageGuard(registry *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if (request.Method != http.MethodGet && request.Method != http.MethodHead) || path.Ext(request.URL.Path) != "" {
				next.ServeHTTP(writer, request)
				return
			}

			store := session.FromContext(request.Context())
			if store == nil {
				next.ServeHTTP(writer, request)
				return
			}

			result, err := registry.For(store).Push(request.Context(), request.URL.RequestURI())
			if err != nil {
				respond.Error(writer, request, toAppError(err))
				return
			}

			if result.Redirected {
				ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "gate_page_redirect",
					slog.String("from", request.URL.RequestURI()),
					slog.String("to", result.Location.FullPath),
				)
				http.Redirect(writer, request, result.Location.FullPath, http.StatusFound)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
