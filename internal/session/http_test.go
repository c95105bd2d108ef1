// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/session"
)

type sessionServer struct {
	handler http.Handler
	manager *session.Manager
	cookie  *http.Cookie
}

func newSessionServer(t *testing.T, auth session.Authenticator) *sessionServer {
	t.Helper()

	manager := session.NewManager(auth, session.ManagerConfig{SystemCode: "ucenter", Logger: discard})
	router := chi.NewRouter()
	router.Use(session.Middleware(manager, session.CookieConfig{Name: "sid"}))
	router.Mount("/session", session.NewHandler().Routes())

	return &sessionServer{handler: router, manager: manager}
}

// do sends a request, remembering the tab cookie the first response issues.
func (server *sessionServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	if server.cookie != nil {
		request.AddCookie(server.cookie)
	}

	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, request)

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == "sid" {
			server.cookie = cookie
		}
	}
	return recorder
}

func decodeData(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

/*
TestHandler_CookieIssued gives a new tab a cookie and keeps it afterwards.
*/
func TestHandler_CookieIssued(t *testing.T) {
	server := newSessionServer(t, newFakeAuth())

	recorder := server.do(t, http.MethodGet, "/session/", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, server.cookie)
	assert.True(t, server.cookie.HttpOnly)

	var view session.View
	decodeData(t, recorder, &view)
	assert.False(t, view.LoggedIn)
	assert.Empty(t, view.Permissions)

	tabID := server.cookie.Value
	recorder = server.do(t, http.MethodGet, "/session/", "")
	assert.Empty(t, recorder.Result().Cookies())
	assert.Equal(t, tabID, server.cookie.Value)
	assert.Equal(t, 1, server.manager.Len())
}

/*
TestHandler_ForgedCookieReplaced does not trust tab ids that are not UUIDs.
*/
func TestHandler_ForgedCookieReplaced(t *testing.T) {
	server := newSessionServer(t, newFakeAuth())
	server.cookie = &http.Cookie{Name: "sid", Value: "../../etc"}

	server.do(t, http.MethodGet, "/session/", "")
	assert.NotEqual(t, "../../etc", server.cookie.Value)
}

/*
TestHandler_LoginFlow logs in, checks permissions, drains notices and logs out.
*/
func TestHandler_LoginFlow(t *testing.T) {
	server := newSessionServer(t, newFakeAuth())

	recorder := server.do(t, http.MethodPost, "/session/login", `{"username":"user","password":"123456","redirect":"/system/user"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var navigation struct {
		Session  session.View `json:"session"`
		Location string       `json:"location"`
	}
	decodeData(t, recorder, &navigation)
	assert.True(t, navigation.Session.LoggedIn)
	assert.Equal(t, "/system/user", navigation.Location)
	assert.Equal(t, []string{"user:list", "user:view"}, navigation.Session.Permissions)
	assert.Equal(t, []string{"user"}, navigation.Session.Roles)
	assert.NotContains(t, recorder.Body.String(), "access-1")

	cases := []struct {
		name    string
		body    string
		allowed bool
	}{
		{name: "single held", body: `{"requirement":"user:list"}`, allowed: true},
		{name: "single missing", body: `{"requirement":"user:delete"}`, allowed: false},
		{name: "list is any-of", body: `{"requirement":["user:delete","user:view"]}`, allowed: true},
		{name: "all-of", body: `{"requirement":{"allOf":["user:list","user:delete"]}}`, allowed: false},
		{name: "empty", body: `{"requirement":""}`, allowed: true},
		{name: "role held", body: `{"requirement":"user:list","roles":["admin","user"]}`, allowed: true},
		{name: "role missing", body: `{"requirement":"user:list","roles":["admin"]}`, allowed: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := server.do(t, http.MethodPost, "/session/check", tc.body)
			require.Equal(t, http.StatusOK, recorder.Code)

			var result struct {
				Allowed bool `json:"allowed"`
			}
			decodeData(t, recorder, &result)
			assert.Equal(t, tc.allowed, result.Allowed)
		})
	}

	recorder = server.do(t, http.MethodGet, "/session/notices", "")
	var notices []session.Notice
	decodeData(t, recorder, &notices)
	require.Len(t, notices, 1)
	assert.Equal(t, "Login successful", notices[0].Message)

	recorder = server.do(t, http.MethodPost, "/session/logout", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	decodeData(t, recorder, &navigation)
	assert.False(t, navigation.Session.LoggedIn)
	assert.Equal(t, "/login", navigation.Location)
}

/*
TestHandler_Errors maps validation and upstream failures onto HTTP statuses.
*/
func TestHandler_Errors(t *testing.T) {
	auth := newFakeAuth()
	server := newSessionServer(t, auth)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "missing password", method: http.MethodPost, path: "/session/login", body: `{"username":"user"}`, status: http.StatusBadRequest},
		{name: "external redirect", method: http.MethodPost, path: "/session/login", body: `{"username":"user","password":"x","redirect":"//evil.example"}`, status: http.StatusBadRequest},
		{name: "malformed json", method: http.MethodPost, path: "/session/login", body: `{`, status: http.StatusBadRequest},
		{name: "unknown resource", method: http.MethodPost, path: "/session/fetch/roles", status: http.StatusBadRequest},
		{name: "fetch while logged out", method: http.MethodPost, path: "/session/fetch/user", status: http.StatusUnauthorized},
		{name: "refresh while logged out", method: http.MethodPost, path: "/session/refresh", status: http.StatusUnauthorized},
		{name: "malformed requirement", method: http.MethodPost, path: "/session/check", body: `{"requirement":42}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := server.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, recorder.Code, recorder.Body.String())
		})
	}

	auth.set(func(a *fakeAuth) { a.loginErr = assert.AnError })
	recorder := server.do(t, http.MethodPost, "/session/login", `{"username":"user","password":"123456"}`)
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "UPSTREAM_UNAVAILABLE")
}

/*
TestHandler_MenusAndSystem prunes menus and switches the system context.
*/
func TestHandler_MenusAndSystem(t *testing.T) {
	server := newSessionServer(t, newFakeAuth())

	recorder := server.do(t, http.MethodGet, "/session/menus", "")
	var menus []map[string]any
	decodeData(t, recorder, &menus)
	assert.NotNil(t, menus)
	assert.Empty(t, menus)

	server.do(t, http.MethodPost, "/session/login", `{"username":"user","password":"123456"}`)

	recorder = server.do(t, http.MethodGet, "/session/menus", "")
	decodeData(t, recorder, &menus)
	require.Len(t, menus, 2)
	assert.Equal(t, "1", menus[0]["id"])

	recorder = server.do(t, http.MethodPost, "/session/system", `{"systemCode":"crm"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	var view session.View
	decodeData(t, recorder, &view)
	assert.Equal(t, "crm", view.SystemCode)
	assert.Equal(t, []string{"crm:lead:list"}, view.Permissions)

	recorder = server.do(t, http.MethodPost, "/session/system", `{}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
