// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/rbac"
)

/*
TestPermissionSet_HasPermission covers exact matching and the permissive empty code.
*/
func TestPermissionSet_HasPermission(t *testing.T) {
	set := rbac.NewPermissionSet([]string{"user:list", "role:list"})

	assert.True(t, set.HasPermission("user:list"))
	assert.True(t, set.HasPermission(""))
	assert.False(t, set.HasPermission("user:*"))
	assert.False(t, set.HasPermission("user"))

	empty := rbac.NewPermissionSet(nil)
	assert.True(t, empty.HasPermission(""))
	assert.False(t, empty.HasPermission("user:list"))
}

/*
TestPermissionSet_AnyAll checks the any-of and all-of predicates for every
combination of held and missing codes.
*/
func TestPermissionSet_AnyAll(t *testing.T) {
	set := rbac.NewPermissionSet([]string{"a", "b"})

	tests := []struct {
		name string
		list []string
		any  bool
		all  bool
	}{
		{"empty_list", nil, true, true},
		{"all_held", []string{"a", "b"}, true, true},
		{"one_held", []string{"a", "c"}, true, false},
		{"none_held", []string{"c", "d"}, false, false},
		{"empty_code_in_list", []string{"", "c"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.any, set.HasAnyPermission(tt.list))
			assert.Equal(t, tt.all, set.HasAllPermissions(tt.list))
		})
	}
}

/*
TestPermissionSet_Codes verifies the granted slice reads back unmodified and is a copy.
*/
func TestPermissionSet_Codes(t *testing.T) {
	granted := []string{"z", "a", "a"}
	set := rbac.NewPermissionSet(granted)

	codes := set.Codes()
	assert.Equal(t, granted, codes)
	assert.Equal(t, 3, set.Len())

	codes[0] = "mutated"
	granted[1] = "mutated"
	assert.Equal(t, []string{"z", "a", "a"}, set.Codes())
}

/*
TestRequirement_SatisfiedBy evaluates each requirement kind.
*/
func TestRequirement_SatisfiedBy(t *testing.T) {
	set := rbac.NewPermissionSet([]string{"user:list"})

	assert.True(t, rbac.Requirement{}.SatisfiedBy(set))
	assert.True(t, rbac.Single("").SatisfiedBy(set))
	assert.True(t, rbac.AnyOf().SatisfiedBy(set))
	assert.True(t, rbac.AllOf().SatisfiedBy(set))

	assert.True(t, rbac.Single("user:list").SatisfiedBy(set))
	assert.False(t, rbac.Single("role:list").SatisfiedBy(set))

	assert.True(t, rbac.AnyOf("role:list", "user:list").SatisfiedBy(set))
	assert.False(t, rbac.AllOf("role:list", "user:list").SatisfiedBy(set))
}

/*
TestRequirement_UnmarshalJSON maps the string, list and object shapes onto the variant.
*/
func TestRequirement_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  rbac.RequirementKind
		codes []string
	}{
		{"string", `"user:list"`, rbac.RequireSingle, []string{"user:list"}},
		{"list", `["a","b"]`, rbac.RequireAnyOf, []string{"a", "b"}},
		{"all_of", `{"allOf":["a","b"]}`, rbac.RequireAllOf, []string{"a", "b"}},
		{"any_of", `{"anyOf":["a"]}`, rbac.RequireAnyOf, []string{"a"}},
		{"code", `{"code":"a"}`, rbac.RequireSingle, []string{"a"}},
		{"null", `null`, 0, nil},
		{"empty_string", `""`, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req rbac.Requirement
			require.NoError(t, json.Unmarshal([]byte(tt.input), &req))
			assert.Equal(t, tt.kind, req.Kind)
			assert.Equal(t, tt.codes, req.Codes)
		})
	}

	t.Run("ambiguous_object", func(t *testing.T) {
		var req rbac.Requirement
		assert.Error(t, json.Unmarshal([]byte(`{"code":"a","allOf":["b"]}`), &req))
	})

	t.Run("number", func(t *testing.T) {
		var req rbac.Requirement
		assert.Error(t, json.Unmarshal([]byte(`42`), &req))
	})
}
