// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ucenter/internal/platform/apperr"
	"github.com/taibuivan/ucenter/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		hasError bool
	}{
		{"valid_string", "admin", false},
		{"empty_string", "", true},
		{"whitespace_only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required("username", tt.value)

			if tt.hasError {
				ae := apperr.As(v.Err())
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, "username", ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Path only accepts absolute in-app paths.
*/
func TestValidator_Path(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		isValid bool
	}{
		{"root", "/", true},
		{"nested", "/system/user", true},
		{"with_query", "/system/user?page=2", true},
		{"relative", "system/user", false},
		{"scheme_relative", "//evil.example", false},
		{"absolute_url", "https://evil.example", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := (&validate.Validator{}).Path("path", tt.path)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_PermissionCodes reports the index of every malformed code.
*/
func TestValidator_PermissionCodes(t *testing.T) {
	v := (&validate.Validator{}).PermissionCodes("codes", []string{"user:list", "user", "role:assign-perm", "User:List", ""})

	ae := apperr.As(v.Err())
	require.NotNil(t, ae)
	require.Len(t, ae.Details, 3)
	assert.Equal(t, "codes[1]", ae.Details[0].Field)
	assert.Equal(t, "codes[3]", ae.Details[1].Field)
	assert.Equal(t, "codes[4]", ae.Details[2].Field)
}

/*
TestValidator_Chaining collects failures from several rules in order.
*/
func TestValidator_Chaining(t *testing.T) {
	v := &validate.Validator{}
	err := v.
		Required("username", "").
		MinLen("password", "12", 6).
		MaxLen("username", "ok", 64).
		OneOf("resource", "roles", "user", "permissions", "menus").
		Custom("mode", true, "Unsupported mode").
		Err()

	ae := apperr.As(err)
	require.NotNil(t, ae)

	fields := make([]string, 0, len(ae.Details))
	for _, detail := range ae.Details {
		fields = append(fields, detail.Field)
	}
	assert.Equal(t, []string{"username", "password", "resource", "mode"}, fields)
}
