// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/gate"
	"github.com/taibuivan/ucenter/internal/session"
)

type console struct {
	handler http.Handler
	cookies []*http.Cookie
}

func newConsole(t *testing.T, permissions ...string) *console {
	t.Helper()

	manager := session.NewManager(&stubAuth{permissions: permissions}, session.ManagerConfig{Logger: discard})
	registry := gate.NewRegistry(manager, routeTable(t), discard)

	router := chi.NewRouter()
	router.Use(session.Middleware(manager, session.CookieConfig{Name: "sid"}))
	router.Use(registry.Middleware)
	router.Route("/api/v1", func(r chi.Router) {
		r.Mount("/session", session.NewHandler().Routes())
		r.Mount("/navigation", gate.NewHandler(registry).Routes())
	})
	router.With(gate.PageGuard(registry)).Get("/*", func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte("<html>spa</html>"))
	})

	return &console{handler: router}
}

func (c *console) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(method, target, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	c.handler.ServeHTTP(recorder, request)
	if cookies := recorder.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return recorder
}

func data(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

/*
TestPageGuard redirects page loads and serves the SPA when allowed.
*/
func TestPageGuard(t *testing.T) {
	c := newConsole(t, "user:list")

	recorder := c.do(t, http.MethodGet, "/user/list", "")
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/login?redirect=/user/list", recorder.Header().Get("Location"))

	recorder = c.do(t, http.MethodGet, "/login?redirect=/user/list", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "spa")

	recorder = c.do(t, http.MethodGet, "/assets/app.js", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = c.do(t, http.MethodPost, "/api/v1/session/login", `{"username":"user","password":"123456","redirect":"/user/list"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	var login struct {
		Location string `json:"location"`
	}
	data(t, recorder, &login)
	assert.Equal(t, "/user/list", login.Location)

	recorder = c.do(t, http.MethodGet, "/user/list", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = c.do(t, http.MethodGet, "/role/list", "")
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/403", recorder.Header().Get("Location"))

	recorder = c.do(t, http.MethodGet, "/login", "")
	assert.Equal(t, "/dashboard", recorder.Header().Get("Location"))
}

/*
TestHandler_Navigate reports decisions, the current location and menu routes.
*/
func TestHandler_Navigate(t *testing.T) {
	c := newConsole(t, "user:list", "role:list")

	recorder := c.do(t, http.MethodPost, "/api/v1/navigation", `{"path":"/dashboard"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	var result gate.Result
	data(t, recorder, &result)
	assert.Equal(t, "/login?redirect=/dashboard", result.Location.FullPath)
	require.Len(t, result.Decisions, 2)
	assert.Contains(t, recorder.Body.String(), `"outcome":"redirect_login"`)

	recorder = c.do(t, http.MethodGet, "/api/v1/navigation/routes", "")
	var routes []gate.Route
	data(t, recorder, &routes)
	assert.Empty(t, routes)

	c.do(t, http.MethodPost, "/api/v1/session/login", `{"username":"user","password":"123456"}`)

	recorder = c.do(t, http.MethodGet, "/api/v1/navigation", "")
	var current struct {
		Location gate.Location `json:"location"`
		Title    string        `json:"title"`
	}
	data(t, recorder, &current)
	assert.Equal(t, "/dashboard", current.Location.FullPath)
	assert.Equal(t, "Dashboard - User Center Console", current.Title)

	recorder = c.do(t, http.MethodGet, "/api/v1/navigation/routes", "")
	data(t, recorder, &routes)
	names := make([]string, 0, len(routes))
	for _, route := range routes {
		names = append(names, route.Name)
	}
	assert.Equal(t, []string{"Dashboard", "UserList", "RoleList"}, names)

	for _, body := range []string{`{"path":""}`, `{"path":"//evil.example"}`, `{`} {
		recorder = c.do(t, http.MethodPost, "/api/v1/navigation", body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, body)
	}
}

/*
TestHandler_Elements evaluates declared fragments for the tab.
*/
func TestHandler_Elements(t *testing.T) {
	c := newConsole(t, "user:list")
	c.do(t, http.MethodPost, "/api/v1/session/login", `{"username":"user","password":"123456"}`)

	recorder := c.do(t, http.MethodPost, "/api/v1/navigation/elements", `{"elements":[
		{"id":"list","permission":"user:list"},
		{"id":"delete","tag":"button","permission":"user:delete","mode":"disable"},
		{"id":"create","permission":["user:create"]}
	]}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var rendering gate.Rendering
	data(t, recorder, &rendering)
	assert.Equal(t, []string{"create"}, rendering.Removed)
	require.Len(t, rendering.Elements, 2)
	assert.True(t, rendering.Elements[1].Disabled)

	recorder = c.do(t, http.MethodPost, "/api/v1/navigation/elements", `{"elements":[{"id":"x","mode":"blink"}]}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
