// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// # Predicates

// Checker is the read side every gate evaluates against.
type Checker interface {
	HasPermission(code string) bool
	HasAnyPermission(codes []string) bool
	HasAllPermissions(codes []string) bool
}

// PermissionSet is an immutable set of permission codes.
//
// Matching is exact string equality. There is no wildcard or hierarchy: "user:*" is just
// another opaque code. The original slice is retained so callers can read back exactly
// what the server granted.
type PermissionSet struct {
	codes []string
	index map[string]struct{}
}

// NewPermissionSet copies codes into a set.
func NewPermissionSet(codes []string) PermissionSet {
	index := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		index[code] = struct{}{}
	}
	return PermissionSet{codes: slices.Clone(codes), index: index}
}

// HasPermission reports membership. An empty code is always satisfied.
func (set PermissionSet) HasPermission(code string) bool {
	if code == "" {
		return true
	}
	_, ok := set.index[code]
	return ok
}

// HasAnyPermission is true for an empty list, else when at least one code matches.
func (set PermissionSet) HasAnyPermission(codes []string) bool {
	if len(codes) == 0 {
		return true
	}
	return slices.ContainsFunc(codes, set.HasPermission)
}

// HasAllPermissions is true for an empty list, else when every code matches.
func (set PermissionSet) HasAllPermissions(codes []string) bool {
	for _, code := range codes {
		if !set.HasPermission(code) {
			return false
		}
	}
	return true
}

// Codes returns a copy of the granted codes in the order received.
func (set PermissionSet) Codes() []string {
	return slices.Clone(set.codes)
}

// Len returns the number of codes received, duplicates included.
func (set PermissionSet) Len() int {
	return len(set.codes)
}

// # Requirements

// RequirementKind tags a [Requirement].
type RequirementKind uint8

const (
	// RequireSingle needs exactly one code.
	RequireSingle RequirementKind = iota + 1
	// RequireAnyOf needs at least one of the codes.
	RequireAnyOf
	// RequireAllOf needs every code.
	RequireAllOf
)

// String implements fmt.Stringer.
func (kind RequirementKind) String() string {
	switch kind {
	case RequireSingle:
		return "single"
	case RequireAnyOf:
		return "anyOf"
	case RequireAllOf:
		return "allOf"
	default:
		return "none"
	}
}

// Requirement is what a route or UI fragment needs from the session.
//
// The zero value requires nothing and is always satisfied.
type Requirement struct {
	Kind  RequirementKind
	Codes []string
}

// Single requires one code. Single("") requires nothing.
func Single(code string) Requirement {
	if code == "" {
		return Requirement{}
	}
	return Requirement{Kind: RequireSingle, Codes: []string{code}}
}

// AnyOf requires at least one of codes.
func AnyOf(codes ...string) Requirement {
	return Requirement{Kind: RequireAnyOf, Codes: slices.Clone(codes)}
}

// AllOf requires every one of codes.
func AllOf(codes ...string) Requirement {
	return Requirement{Kind: RequireAllOf, Codes: slices.Clone(codes)}
}

// IsEmpty reports whether the requirement can never block.
func (req Requirement) IsEmpty() bool {
	return req.Kind == 0 || len(req.Codes) == 0
}

// SatisfiedBy evaluates the requirement against checker.
func (req Requirement) SatisfiedBy(checker Checker) bool {
	if req.IsEmpty() {
		return true
	}

	switch req.Kind {
	case RequireSingle:
		return checker.HasPermission(req.Codes[0])
	case RequireAnyOf:
		return checker.HasAnyPermission(req.Codes)
	case RequireAllOf:
		return checker.HasAllPermissions(req.Codes)
	default:
		return false
	}
}

// requirementWire is the object form accepted on the wire.
type requirementWire struct {
	Code  string   `json:"code,omitempty"`
	AnyOf []string `json:"anyOf,omitempty"`
	AllOf []string `json:"allOf,omitempty"`
}

// UnmarshalJSON accepts the three shapes UI code binds with:
//
//	"user:list"                 -> Single
//	["user:list", "role:list"]  -> AnyOf
//	{"allOf": ["a", "b"]}       -> AllOf (also {"anyOf": [...]}, {"code": "..."})
func (req *Requirement) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*req = Requirement{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var code string
		if err := json.Unmarshal(trimmed, &code); err != nil {
			return fmt.Errorf("rbac: invalid requirement: %w", err)
		}
		*req = Single(code)
	case '[':
		var codes []string
		if err := json.Unmarshal(trimmed, &codes); err != nil {
			return fmt.Errorf("rbac: invalid requirement: %w", err)
		}
		*req = AnyOf(codes...)
	case '{':
		var wire requirementWire
		if err := json.Unmarshal(trimmed, &wire); err != nil {
			return fmt.Errorf("rbac: invalid requirement: %w", err)
		}
		set := 0
		for _, present := range []bool{wire.Code != "", wire.AnyOf != nil, wire.AllOf != nil} {
			if present {
				set++
			}
		}
		if set > 1 {
			return fmt.Errorf("rbac: requirement must use exactly one of code, anyOf, allOf")
		}
		switch {
		case wire.AllOf != nil:
			*req = AllOf(wire.AllOf...)
		case wire.AnyOf != nil:
			*req = AnyOf(wire.AnyOf...)
		default:
			*req = Single(wire.Code)
		}
	default:
		return fmt.Errorf("rbac: unsupported requirement shape %q", trimmed[0])
	}

	return nil
}

// MarshalJSON writes the object form.
func (req Requirement) MarshalJSON() ([]byte, error) {
	var wire requirementWire
	switch req.Kind {
	case RequireSingle:
		if len(req.Codes) > 0 {
			wire.Code = req.Codes[0]
		}
	case RequireAnyOf:
		wire.AnyOf = req.Codes
	case RequireAllOf:
		wire.AllOf = req.Codes
	}
	return json.Marshal(wire)
}
