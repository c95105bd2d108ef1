// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/gate"
	"github.com/taibuivan/ucenter/internal/rbac"
)

type authorizer struct {
	loggedIn    bool
	permissions rbac.PermissionSet
}

func (a authorizer) IsLoggedIn() bool                     { return a.loggedIn }
func (a authorizer) HasAnyPermission(codes []string) bool { return a.permissions.HasAnyPermission(codes) }

/*
TestDecide covers every navigation rule.
*/
func TestDecide(t *testing.T) {
	table := routeTable(t)
	router := gate.NewRouter(table, discard)

	loggedOut := authorizer{}
	userList := authorizer{loggedIn: true, permissions: rbac.NewPermissionSet([]string{"user:list"})}

	cases := []struct {
		name       string
		target     string
		authorizer authorizer
		outcome    gate.Outcome
		location   string
	}{
		{name: "scenario A", target: "/dashboard", authorizer: loggedOut, outcome: gate.RedirectLogin, location: "/login?redirect=/dashboard"},
		{name: "query kept in redirect-back", target: "/user/list?page=2", authorizer: loggedOut, outcome: gate.RedirectLogin, location: "/login?redirect=/user/list%3Fpage%3D2"},
		{name: "scenario B", target: "/dashboard", authorizer: userList, outcome: gate.Allowed},
		{name: "scenario C", target: "/role/list", authorizer: userList, outcome: gate.RedirectForbidden, location: "/403"},
		{name: "permission held", target: "/user/detail/7", authorizer: userList, outcome: gate.Allowed},
		{name: "public while logged out", target: "/login", authorizer: loggedOut, outcome: gate.Allowed},
		{name: "login while logged in", target: "/login", authorizer: userList, outcome: gate.RedirectRoot, location: "/"},
		{name: "forbidden page while logged in", target: "/403", authorizer: userList, outcome: gate.Allowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			to, err := router.Resolve(tc.target)
			require.NoError(t, err)

			decision := gate.Decide(to, tc.authorizer, table)
			assert.Equal(t, tc.outcome, decision.Outcome)
			assert.Equal(t, tc.location, decision.Location)
			assert.Equal(t, tc.target, decision.Target)
		})
	}
}

/*
TestOutcome_String names every state.
*/
func TestOutcome_String(t *testing.T) {
	text, err := gate.RedirectForbidden.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "redirect_forbidden", string(text))
	assert.Equal(t, "pending", gate.Pending.String())
}
