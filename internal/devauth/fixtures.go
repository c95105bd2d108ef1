// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devauth

import (
	"time"

	"github.com/taibuivan/ucenter/internal/rbac"
	"github.com/taibuivan/ucenter/pkg/pointer"
)

// DefaultPassword is the password of every mock account.
const DefaultPassword = "123456"

// Fixtures is the data set the mock service answers from.
type Fixtures struct {
	// DefaultSystem is used when a request names no system.
	DefaultSystem string
	Systems       []rbac.System
	Roles         []rbac.Role
	Users         []rbac.User
	// Resources is a flat list per system, linked by ParentID.
	Resources []*rbac.Resource
}

// # Default Data Set

var fixtureEpoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultFixtures returns the development accounts: admin holds every console
// permission in ucenter and a sales role in crm; user only lists and views users
// and carries its role through the legacy flat list.
func DefaultFixtures() Fixtures {
	return Fixtures{
		DefaultSystem: "ucenter",
		Systems: []rbac.System{
			{Code: "ucenter", Name: "User Center", Description: "Identity and access management", Status: rbac.StatusActive},
			{Code: "crm", Name: "CRM", Description: "Customer relationship management", Status: rbac.StatusActive},
			{Code: "legacy", Name: "Legacy Portal", Status: rbac.StatusInactive},
		},
		Roles: []rbac.Role{
			{
				ID: "admin", SystemCode: "ucenter", Name: "Administrator",
				Description: "Full access to the user center",
				Permissions: []string{
					"user:list", "user:view", "user:create", "user:update", "user:delete",
					"role:list", "role:create", "role:update", "role:delete",
					"resource:list", "resource:create", "resource:update", "resource:delete",
					"grant:list", "grant:update",
					"audit:list",
					"system:manage", "system:config",
				},
				Level: pointer.To(1), Members: 1,
				CreatedAt: fixtureEpoch, UpdatedAt: fixtureEpoch,
			},
			{
				ID: "user", SystemCode: "ucenter", Name: "User",
				Description: "Read-only access to the user directory",
				Permissions: []string{"user:list", "user:view"},
				Level:       pointer.To(10), Members: 1,
				CreatedAt: fixtureEpoch, UpdatedAt: fixtureEpoch,
			},
			{
				ID: "crm-sales", SystemCode: "crm", Name: "Sales",
				Permissions: []string{"crm:lead:list", "crm:lead:update"},
				Members:     1,
				CreatedAt:   fixtureEpoch, UpdatedAt: fixtureEpoch,
			},
		},
		Users: []rbac.User{
			{
				ID: "1", Username: "admin", Nickname: "System Administrator",
				Email: "admin@ucenter.local", Status: rbac.StatusActive,
				DeptID: "d1", DeptName: "Platform",
				SystemAccess: []rbac.UserSystemAccess{
					{UserID: "1", SystemCode: "ucenter", SystemName: "User Center", RoleID: "admin", RoleName: "Administrator", Status: rbac.AccessActive, GrantedAt: fixtureEpoch, GrantedBy: "system"},
					{UserID: "1", SystemCode: "crm", SystemName: "CRM", RoleID: "crm-sales", RoleName: "Sales", Status: rbac.AccessActive, GrantedAt: fixtureEpoch, GrantedBy: "system"},
				},
				CreatedAt: fixtureEpoch, UpdatedAt: fixtureEpoch,
			},
			{
				ID: "2", Username: "user", Nickname: "Regular User",
				Email: "user@ucenter.local", Status: rbac.StatusActive,
				SystemCode: "ucenter", RoleIDs: []string{"user"},
				CreatedAt: fixtureEpoch, UpdatedAt: fixtureEpoch,
			},
		},
		Resources: defaultResources(),
	}
}

func defaultResources() []*rbac.Resource {
	node := func(id, parent, name string, kind rbac.ResourceType, url, icon, code string, sort int) *rbac.Resource {
		return &rbac.Resource{
			ID: id, ParentID: parent, Name: name, Type: kind, URL: url, Icon: icon,
			PermCode: code, SystemCode: "ucenter", Sort: sort,
			Meta:      &rbac.MenuMeta{Title: name, Icon: icon},
			CreatedAt: fixtureEpoch, UpdatedAt: fixtureEpoch,
		}
	}

	resources := []*rbac.Resource{
		node("1", "", "Dashboard", rbac.TypeView, "/dashboard", "dashboard", "", 1),

		node("2", "", "User Management", rbac.TypeModule, "/user", "user", "user:list", 2),
		node("2-1", "2", "User List", rbac.TypeView, "/user/list", "", "user:list", 1),
		node("2-1-1", "2-1", "Create User", rbac.TypeAction, "", "", "user:create", 1),
		node("2-1-2", "2-1", "Delete User", rbac.TypeAction, "", "", "user:delete", 2),

		node("3", "", "Role Management", rbac.TypeModule, "/role", "team", "role:list", 3),
		node("3-1", "3", "Role List", rbac.TypeView, "/role/list", "", "role:list", 1),
		node("3-1-1", "3-1", "Create Role", rbac.TypeAction, "", "", "role:create", 1),

		node("4", "", "Resources", rbac.TypeModule, "/resource", "appstore", "resource:list", 4),
		node("4-1", "4", "Menus", rbac.TypeView, "/resource/menu", "", "resource:list", 1),
		node("4-2", "4", "Permissions", rbac.TypeView, "/resource/permission", "", "resource:list", 2),

		node("5", "", "Grants", rbac.TypeModule, "/grant", "safety", "grant:list", 5),
		node("5-1", "5", "Role Permissions", rbac.TypeView, "/grant/role-permission", "", "grant:list", 1),
		node("5-2", "5", "User Roles", rbac.TypeView, "/grant/user-role", "", "grant:list", 2),

		node("6", "", "Systems", rbac.TypeModule, "/system", "cluster", "system:manage", 6),
		node("6-1", "6", "System Management", rbac.TypeView, "/system/management", "", "system:manage", 1),

		node("7", "", "Audit", rbac.TypeModule, "/audit", "audit", "audit:list", 7),
		node("7-1", "7", "Audit Logs", rbac.TypeView, "/audit/logs", "", "audit:list", 1),
	}

	leads := node("c1", "", "Leads", rbac.TypeView, "/crm/leads", "fund", "crm:lead:list", 1)
	leads.SystemCode = "crm"

	return append(resources, leads)
}
