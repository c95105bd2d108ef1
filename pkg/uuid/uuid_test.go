// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/ucenter/pkg/uuid"
)

/*
TestNew generates distinct canonical ids.
*/
func TestNew(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.True(t, uuid.IsValid(a))
	assert.NotEqual(t, a, b)
}

/*
TestIsValid only accepts the canonical text form.
*/
func TestIsValid(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"0190b6a4-7c1e-7a3b-9f00-1234567890ab", true},
		{"{0190b6a4-7c1e-7a3b-9f00-1234567890ab}", false},
		{"0190b6a47c1e7a3b9f001234567890ab", false},
		{"not-a-uuid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.valid, uuid.IsValid(tt.input))
		})
	}
}
