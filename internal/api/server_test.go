// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/api"
	"github.com/taibuivan/ucenter/internal/authclient"
	"github.com/taibuivan/ucenter/internal/devauth"
	"github.com/taibuivan/ucenter/internal/gate"
	"github.com/taibuivan/ucenter/internal/platform/config"
	"github.com/taibuivan/ucenter/internal/session"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newConsole starts the console with the mock API mounted and the auth client
// pointed back at it, so requests take the same path as in a dev deployment.
func newConsole(t *testing.T, checks ...api.HealthCheck) *httptest.Server {
	t.Helper()

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>console</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("console.log(1)"), 0o600))

	var console http.Handler
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		console.ServeHTTP(writer, request)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		ServerPort:        "0",
		Environment:       "test",
		SessionCookieName: "console_sid",
		StaticDir:         staticDir,
		DefaultSystemCode: "ucenter",
	}

	service, err := devauth.New(devauth.Config{
		Secret:   "api-test-secret-0123456789abcdefghijkl",
		Fixtures: devauth.DefaultFixtures(),
		Logger:   discard,
	})
	require.NoError(t, err)

	client := authclient.New(authclient.Config{BaseURL: server.URL + "/mock-api", Logger: discard})
	manager := session.NewManager(client, session.ManagerConfig{SystemCode: cfg.DefaultSystemCode, Logger: discard})

	table, err := gate.DefaultRoutes()
	require.NoError(t, err)
	registry := gate.NewRegistry(manager, table, discard)

	liveness, readiness := api.NewHealthHandlers(checks, discard)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	console = api.NewServer(ctx, cfg, discard, api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Sessions:   manager,
		Routers:    registry,
		Session:    session.NewHandler(),
		Navigation: gate.NewHandler(registry),
		DevAuth:    devauth.NewHandler(service),
	}).Handler()

	return server
}

// browser keeps cookies like a tab would but never follows redirects.
func browser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()

	response, err := client.Get(url)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response, string(body)
}

func post(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()

	response, err := client.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	_ = response.Body.Close()
	return response
}

/*
TestServer_Health verifies the probes and the readiness failure path.
*/
func TestServer_Health(t *testing.T) {
	server := newConsole(t)
	client := browser(t)

	response, _ := get(t, client, server.URL+"/health")
	assert.Equal(t, http.StatusOK, response.StatusCode)

	response, _ = get(t, client, server.URL+"/ready")
	assert.Equal(t, http.StatusOK, response.StatusCode)

	degraded := newConsole(t, api.HealthCheck{Name: "redis", Check: func(context.Context) error {
		return errors.New("connection refused")
	}})

	response, body := get(t, client, degraded.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, response.StatusCode)

	var envelope struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &envelope))
	assert.Equal(t, "degraded", envelope.Data.Status)
}

/*
TestServer_PageGuard walks a tab from an anonymous deep link through login, a
permitted page, and the root redirect.
*/
func TestServer_PageGuard(t *testing.T) {
	server := newConsole(t)
	client := browser(t)

	response, _ := get(t, client, server.URL+"/user/list")
	assert.Equal(t, http.StatusFound, response.StatusCode)
	assert.Equal(t, "/login?redirect=/user/list", response.Header.Get("Location"))

	response, body := get(t, client, server.URL+"/login")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, body, "console")

	response = post(t, client, server.URL+"/api/v1/session/login", `{"username":"admin","password":"123456"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)

	response, body = get(t, client, server.URL+"/user/list")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, body, "console")

	response, _ = get(t, client, server.URL+"/")
	assert.Equal(t, http.StatusFound, response.StatusCode)
	assert.Equal(t, "/dashboard", response.Header.Get("Location"))

	response, _ = get(t, client, server.URL+"/login")
	assert.Equal(t, http.StatusFound, response.StatusCode)
	assert.Equal(t, "/dashboard", response.Header.Get("Location"))

	response, body = get(t, client, server.URL+"/app.js")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "console.log(1)", body)
}

/*
TestServer_Forbidden verifies a logged-in tab lacking the route permission is
sent to the forbidden page.
*/
func TestServer_Forbidden(t *testing.T) {
	server := newConsole(t)
	client := browser(t)

	response := post(t, client, server.URL+"/api/v1/session/login", `{"username":"user","password":"123456"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)

	response, _ = get(t, client, server.URL+"/role/list")
	assert.Equal(t, http.StatusFound, response.StatusCode)
	assert.Equal(t, "/403", response.Header.Get("Location"))

	response, _ = get(t, client, server.URL+"/user/list")
	assert.Equal(t, http.StatusOK, response.StatusCode)

	response, _ = get(t, client, server.URL+"/nowhere")
	assert.Equal(t, http.StatusFound, response.StatusCode)
	assert.Equal(t, "/404", response.Header.Get("Location"))
}

/*
TestServer_TabsAreIsolated verifies two cookie jars hold independent sessions.
*/
func TestServer_TabsAreIsolated(t *testing.T) {
	server := newConsole(t)
	first, second := browser(t), browser(t)

	response := post(t, first, server.URL+"/api/v1/session/login", `{"username":"admin","password":"123456"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)

	response, _ = get(t, first, server.URL+"/dashboard")
	assert.Equal(t, http.StatusOK, response.StatusCode)

	response, _ = get(t, second, server.URL+"/dashboard")
	assert.Equal(t, http.StatusFound, response.StatusCode)

	response = post(t, first, server.URL+"/api/v1/session/logout", ``)
	require.Equal(t, http.StatusOK, response.StatusCode)

	response, _ = get(t, first, server.URL+"/dashboard")
	assert.Equal(t, http.StatusFound, response.StatusCode)
}
