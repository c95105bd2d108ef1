// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"slices"
	"time"
)

// # Resource Types

// ResourceType classifies a node in the navigation/permission hierarchy.
type ResourceType string

const (
	// TypeModule groups views in the navigation.
	TypeModule ResourceType = "M"
	// TypeView is a routable page.
	TypeView ResourceType = "V"
	// TypeAction is a button-level capability. It never renders as navigation.
	TypeAction ResourceType = "A"
)

// IsValid reports whether t is one of the three known kinds.
func (t ResourceType) IsValid() bool {
	return t == TypeModule || t == TypeView || t == TypeAction
}

// # Nodes

// MenuMeta carries the rendering metadata attached to menu nodes.
type MenuMeta struct {
	Title       string   `json:"title"`
	Icon        string   `json:"icon,omitempty"`
	KeepAlive   bool     `json:"keepAlive,omitempty"`
	RequireAuth *bool    `json:"requireAuth,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	HideMenu    bool     `json:"hideMenu,omitempty"`
}

// Resource is one node of a resource/menu forest.
//
// A node is owned by exactly one tree. Sort orders siblings ascending and is not
// unique; ties keep input order.
type Resource struct {
	ID         string       `json:"id"`
	ParentID   string       `json:"parentId,omitempty"`
	Name       string       `json:"name"`
	Type       ResourceType `json:"type"`
	URL        string       `json:"url,omitempty"`
	Component  string       `json:"component,omitempty"`
	Icon       string       `json:"icon,omitempty"`
	PermCode   string       `json:"permCode,omitempty"`
	KeepAlive  bool         `json:"keepAlive,omitempty"`
	SystemCode string       `json:"systemCode,omitempty"`
	Sort       int          `json:"sort,omitempty"`
	Meta       *MenuMeta    `json:"meta,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	Children   []*Resource  `json:"children,omitempty"`
}

// Menu is a resource rendered as navigation.
type Menu = Resource

// RequiredPermissions lists the codes gating this node: its own code first, then any
// listed in its metadata.
func (node *Resource) RequiredPermissions() []string {
	codes := make([]string, 0, 1)
	if node.PermCode != "" {
		codes = append(codes, node.PermCode)
	}
	if node.Meta != nil {
		codes = append(codes, node.Meta.Permissions...)
	}
	return codes
}

// IsNavigable reports whether the node may ever appear in the navigation.
func (node *Resource) IsNavigable() bool {
	if node.Type == TypeAction {
		return false
	}
	return node.Meta == nil || !node.Meta.HideMenu
}

// VisibleTo reports whether the node renders for checker.
//
// Action nodes never render. A module or view with no code is visible to any
// authenticated session; its own code must be held, and when its metadata lists
// codes at least one of them must be held.
func (node *Resource) VisibleTo(checker Checker) bool {
	if !node.IsNavigable() {
		return false
	}
	if !checker.HasPermission(node.PermCode) {
		return false
	}
	if node.Meta != nil && !checker.HasAnyPermission(node.Meta.Permissions) {
		return false
	}
	return true
}

// clone copies node without its children.
func (node *Resource) clone() *Resource {
	copied := *node
	copied.Children = nil
	if node.Meta != nil {
		meta := *node.Meta
		meta.Permissions = slices.Clone(node.Meta.Permissions)
		if node.Meta.RequireAuth != nil {
			requireAuth := *node.Meta.RequireAuth
			meta.RequireAuth = &requireAuth
		}
		copied.Meta = &meta
	}
	return &copied
}

// CloneTree deep-copies a forest.
func CloneTree(roots []*Resource) []*Resource {
	if roots == nil {
		return nil
	}
	out := make([]*Resource, 0, len(roots))
	for _, root := range roots {
		copied := root.clone()
		copied.Children = CloneTree(root.Children)
		out = append(out, copied)
	}
	return out
}
