// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"time"

	"github.com/taibuivan/ucenter/pkg/slice"
)

// # Roles

// Role is a named bundle of permission codes scoped to one system.
//
// Level is advisory: lower means more privileged by convention, nothing enforces it.
// Members is denormalized by the server and may lag.
type Role struct {
	ID          string    `json:"id"`
	SystemCode  string    `json:"systemCode"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	Level       *int      `json:"level,omitempty"`
	Members     int       `json:"members,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// # Systems

// System is an independently registered tenant sharing the identity plane.
type System struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`
}

// IsActive reports whether the system is listed as manageable.
func (system System) IsActive() bool {
	return system.Status == StatusActive
}

// ActiveSystems filters out inactive systems, preserving order.
func ActiveSystems(systems []System) []System {
	return slice.Filter(systems, System.IsActive)
}

// PermissionsFor unions the permission codes of roles in systemCode whose id is listed.
// Order follows roles, then each role's own order; duplicates are dropped.
func PermissionsFor(roles []Role, systemCode string, roleIDs []string) []string {
	wanted := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		wanted[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	codes := make([]string, 0)

	for _, role := range roles {
		if role.SystemCode != systemCode {
			continue
		}
		if _, ok := wanted[role.ID]; !ok {
			continue
		}
		for _, code := range role.Permissions {
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}

	return codes
}
