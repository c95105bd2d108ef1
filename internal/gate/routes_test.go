// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/gate"
)

/*
TestDefaultRoutes_Match resolves literal and parameterized paths.
*/
func TestDefaultRoutes_Match(t *testing.T) {
	table := routeTable(t)

	cases := []struct {
		path   string
		name   string
		params map[string]string
	}{
		{path: "/login", name: "Login"},
		{path: "/", name: "Root"},
		{path: "/user/list", name: "UserList"},
		{path: "/user/list/", name: "UserList"},
		{path: "/role/edit/42", name: "RoleEdit", params: map[string]string{"id": "42"}},
		{path: "/role/create", name: "RoleCreate"},
		{path: "/nowhere", name: ""},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			route, params := table.Match(tc.path)
			if tc.name == "" {
				assert.Nil(t, route)
				return
			}
			require.NotNil(t, route)
			assert.Equal(t, tc.name, route.Name)
			assert.Equal(t, tc.params, params)
		})
	}

	login, _ := table.Match("/login")
	assert.False(t, login.RequiresAuth())
	dashboard, _ := table.Match("/dashboard")
	assert.True(t, dashboard.RequiresAuth())
	assert.Equal(t, "Dashboard - User Center Console", table.Title(dashboard))
}

/*
TestLoadRoutes_Invalid rejects tables the guard could loop on.
*/
func TestLoadRoutes_Invalid(t *testing.T) {
	header := "login: /login\nforbidden: /403\nnotFound: /404\nroutes:\n"
	public := "  - {path: /login, requireAuth: false}\n  - {path: /403, requireAuth: false}\n  - {path: /404, requireAuth: false}\n"

	cases := []struct {
		name string
		yaml string
	}{
		{name: "malformed", yaml: "routes: ["},
		{name: "protected login", yaml: header + "  - {path: /login}\n  - {path: /403, requireAuth: false}\n  - {path: /404, requireAuth: false}\n"},
		{name: "duplicate", yaml: header + public + "  - {path: /a}\n  - {path: /a/}\n"},
		{name: "dangling redirect", yaml: header + public + "  - {path: /a, redirect: /b}\n"},
		{name: "external path", yaml: header + public + "  - {path: //evil}\n"},
		{name: "bad permission", yaml: header + public + "  - {path: /a, permissions: [Not A Code]}\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gate.LoadRoutes([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}

	table, err := gate.LoadRoutes([]byte(header + public + "  - {path: /a, permissions: [a:list]}\n"))
	require.NoError(t, err)
	assert.Equal(t, "/", table.Root)
}
