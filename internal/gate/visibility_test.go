// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/gate"
	"github.com/taibuivan/ucenter/internal/rbac"
	"github.com/taibuivan/ucenter/internal/session"
)

func find(states []*gate.ElementState, id string) *gate.ElementState {
	for _, state := range states {
		if state.ID == id {
			return state
		}
		if found := find(state.Children, id); found != nil {
			return found
		}
	}
	return nil
}

/*
TestEvaluate_HideMode removes failing fragments and falls back to display
suppression when there is nothing to remove them from.
*/
func TestEvaluate_HideMode(t *testing.T) {
	store := loggedIn(t, "user:list", "user:view")

	elements := []*gate.Element{
		{ID: "toolbar", Children: []*gate.Element{
			{ID: "create", Tag: "button", Permission: rbac.Single("user:create")},
			{ID: "export", Tag: "button", Permission: rbac.AnyOf("user:export", "user:view")},
			{ID: "purge", Tag: "button", Permission: rbac.AllOf("user:list", "user:delete")},
		}},
		{ID: "banner", Permission: rbac.Single("system:manage"), Detached: true},
		{ID: "admin-only", Roles: []string{"admin"}},
		{ID: "always"},
	}

	rendering := gate.Evaluate(elements, store)

	assert.ElementsMatch(t, []string{"create", "purge", "admin-only"}, rendering.Removed)
	assert.NotNil(t, find(rendering.Elements, "export"))
	assert.Nil(t, find(rendering.Elements, "create"))
	assert.NotNil(t, find(rendering.Elements, "always"))

	banner := find(rendering.Elements, "banner")
	require.NotNil(t, banner)
	assert.True(t, banner.Hidden)
	assert.Equal(t, "none", banner.Style["display"])
}

/*
TestEvaluate_DisableMode renders denied fragments inert and disables their button.
*/
func TestEvaluate_DisableMode(t *testing.T) {
	store := loggedIn(t, "user:list")

	elements := []*gate.Element{
		{ID: "delete", Tag: "button", Permission: rbac.Single("user:delete"), Mode: gate.ModeDisable},
		{ID: "card", Tag: "div", Permission: rbac.Single("user:delete"), Mode: gate.ModeDisable, Children: []*gate.Element{
			{ID: "label", Tag: "span"},
			{ID: "card-action", Tag: "BUTTON"},
			{ID: "second-action", Tag: "button"},
		}},
		{ID: "edit", Tag: "button", Permission: rbac.Single("user:list"), Mode: gate.ModeDisable},
	}

	rendering := gate.Evaluate(elements, store)
	assert.Empty(t, rendering.Removed)

	deleteButton := find(rendering.Elements, "delete")
	assert.Equal(t, []string{gate.DeniedClass}, deleteButton.Class)
	assert.Equal(t, map[string]string{"pointer-events": "none", "opacity": "0.5"}, deleteButton.Style)
	assert.True(t, deleteButton.Disabled)

	assert.False(t, find(rendering.Elements, "card").Disabled)
	assert.True(t, find(rendering.Elements, "card-action").Disabled)
	assert.False(t, find(rendering.Elements, "second-action").Disabled)

	edit := find(rendering.Elements, "edit")
	assert.Empty(t, edit.Class)
	assert.Empty(t, edit.Style)
	assert.False(t, edit.Disabled)
}

/*
TestElement_DecodesRequirementShapes accepts the string, list and object forms.
*/
func TestElement_DecodesRequirementShapes(t *testing.T) {
	var elements []*gate.Element
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"a","permission":"user:list"},
		{"id":"b","permission":["role:list","user:list"]},
		{"id":"c","permission":{"allOf":["user:list","role:list"]}},
		{"id":"d"}
	]`), &elements))

	rendering := gate.Evaluate(elements, loggedIn(t, "user:list"))
	assert.Equal(t, []string{"c"}, rendering.Removed)
	assert.Len(t, rendering.Elements, 3)
}

/*
TestMount_Reactive re-evaluates on session changes and view updates until unmounted.
*/
func TestMount_Reactive(t *testing.T) {
	ctx := context.Background()
	store := newStore(&stubAuth{permissions: []string{"user:delete"}}, nil)

	elements := []*gate.Element{
		{ID: "delete", Tag: "button", Permission: rbac.Single("user:delete"), Mode: gate.ModeDisable},
		{ID: "create", Tag: "button", Permission: rbac.Single("user:create")},
	}

	var renders []gate.Rendering
	fragment := gate.Mount(store, elements, func(rendering gate.Rendering) {
		renders = append(renders, rendering)
	})

	assert.True(t, find(fragment.Rendering().Elements, "delete").Disabled)

	require.NoError(t, store.Login(ctx, session.Credentials{Username: "user"}))
	require.Len(t, renders, 1)
	assert.False(t, find(fragment.Rendering().Elements, "delete").Disabled)

	// A commit that changes nothing visible does not re-render.
	require.NoError(t, store.RefreshAccessToken(ctx))
	assert.Len(t, renders, 1)

	fragment.Update([]*gate.Element{{ID: "create", Tag: "button", Permission: rbac.Single("user:delete")}})
	require.Len(t, renders, 2)
	assert.Empty(t, fragment.Rendering().Removed)

	fragment.Unmount()
	store.Logout(ctx)
	assert.Len(t, renders, 2)
}
