// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rbac defines the multi-system access model shared by the console.

It covers the entities read from the platform API (users, per-system access grants,
roles, systems, resources/menus) and the pure evaluation logic built on top of them:
permission predicates, declarative requirements, and the resource tree builder.

# Architecture

Nothing in this package performs I/O. Every function is a deterministic computation
over values handed in by the caller, so the session store, the navigation gate and the
visibility gate can all evaluate against the same snapshot without coordination.

Field names on the wire follow the platform API (camelCase), not the console's own
snake_case envelopes.
*/
package rbac

import (
	"slices"
	"time"
)

// # Statuses

// Status is the lifecycle state of a global identity or a system.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// AccessStatus is the state of a single [UserSystemAccess] grant.
type AccessStatus string

const (
	AccessActive   AccessStatus = "active"
	AccessInactive AccessStatus = "inactive"
	AccessExpired  AccessStatus = "expired"
)

// # Identity

// User is a global identity stored in the user center.
//
// SystemCode and RoleIDs are legacy projections kept for older API payloads. The
// authoritative per-system relationship is [User.SystemAccess].
type User struct {
	ID           string             `json:"id"`
	Username     string             `json:"username"`
	Nickname     string             `json:"nickname,omitempty"`
	Email        string             `json:"email,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Avatar       string             `json:"avatar,omitempty"`
	Status       Status             `json:"status"`
	MFAEnabled   bool               `json:"mfaEnabled,omitempty"`
	LastLoginAt  *time.Time         `json:"lastLoginAt,omitempty"`
	DeptID       string             `json:"deptId,omitempty"`
	DeptName     string             `json:"deptName,omitempty"`
	SystemAccess []UserSystemAccess `json:"systemAccess"`
	CustomFields map[string]any     `json:"customFields,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`

	// Deprecated: use SystemAccess.
	SystemCode string `json:"systemCode,omitempty"`
	// Deprecated: use SystemAccess.
	RoleIDs []string `json:"roleIds,omitempty"`
}

// IsActive reports whether the identity may log in at all.
func (user *User) IsActive() bool {
	return user != nil && user.Status == StatusActive
}

// DisplayName returns the nickname, falling back to the username.
func (user *User) DisplayName() string {
	if user.Nickname != "" {
		return user.Nickname
	}
	return user.Username
}

/*
CurrentAccess returns the grant that is current for systemCode at the given instant.

Description: At most one grant per (user, system) should be current. When stale data
carries several, the most recently granted one wins so the result is deterministic.

Parameters:
  - systemCode: string
  - now: time.Time

Returns:
  - *UserSystemAccess: The current grant, or nil
*/
func (user *User) CurrentAccess(systemCode string, now time.Time) *UserSystemAccess {
	if user == nil {
		return nil
	}

	var current *UserSystemAccess
	for i := range user.SystemAccess {
		access := &user.SystemAccess[i]
		if access.SystemCode != systemCode || !access.IsCurrent(now) {
			continue
		}
		if current == nil || access.GrantedAt.After(current.GrantedAt) {
			current = access
		}
	}

	return current
}

// RoleIDsFor returns the role ids held in systemCode.
//
// The current access grant is authoritative. The legacy flat list is only used when the
// payload carries no grant for the system at all.
func (user *User) RoleIDsFor(systemCode string, now time.Time) []string {
	if user == nil {
		return nil
	}

	if access := user.CurrentAccess(systemCode, now); access != nil {
		if access.RoleID == "" {
			return nil
		}
		return []string{access.RoleID}
	}

	for _, access := range user.SystemAccess {
		if access.SystemCode == systemCode {
			// A grant exists but is not current: the legacy list must not resurrect it.
			return nil
		}
	}

	return slices.Clone(user.RoleIDs)
}

// # Per-System Access

// UserSystemAccess joins a user to one system with at most one role.
type UserSystemAccess struct {
	UserID     string       `json:"userId"`
	SystemCode string       `json:"systemCode"`
	SystemName string       `json:"systemName,omitempty"`
	RoleID     string       `json:"roleId,omitempty"`
	RoleName   string       `json:"roleName,omitempty"`
	Status     AccessStatus `json:"status"`
	GrantedAt  time.Time    `json:"grantedAt"`
	GrantedBy  string       `json:"grantedBy"`
	ExpiredAt  *time.Time   `json:"expiredAt,omitempty"`

	// Deprecated: single-role design, use RoleID.
	Roles []string `json:"roles,omitempty"`
}

// IsExpired reports whether the grant is past its expiry at now.
// The server is authoritative; this is a point-in-time comparison only.
func (access UserSystemAccess) IsExpired(now time.Time) bool {
	if access.Status == AccessExpired {
		return true
	}
	return access.ExpiredAt != nil && !now.Before(*access.ExpiredAt)
}

// IsCurrent reports whether the grant is active and not expired at now.
func (access UserSystemAccess) IsCurrent(now time.Time) bool {
	return access.Status == AccessActive && !access.IsExpired(now)
}
