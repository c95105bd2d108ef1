// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"cmp"
	"slices"
)

// # Tree Building

// TreeReport lists the integrity problems the builder tolerated.
type TreeReport struct {
	// Orphans are node ids whose parentId is not in the input; they became roots.
	Orphans []string `json:"orphans,omitempty"`
	// Duplicates are ids seen more than once; only the first occurrence is kept.
	Duplicates []string `json:"duplicates,omitempty"`
	// CycleBreaks are node ids detached from their parent to break a cycle.
	CycleBreaks []string `json:"cycleBreaks,omitempty"`
}

// Clean reports whether the input was a well-formed forest.
func (report TreeReport) Clean() bool {
	return len(report.Orphans) == 0 && len(report.Duplicates) == 0 && len(report.CycleBreaks) == 0
}

/*
BuildTree converts a flat node list into a forest.

Description: Every node is indexed by id, then attached under its parent when the
parent id is present in the input, else promoted to a root. Siblings are ordered by
Sort with ties keeping input order. Input nodes are never mutated; any Children they
carry are ignored.

Lenient on bad data: unknown parents produce roots, duplicate ids keep the first
occurrence, and a node found to be its own ancestor is detached and becomes a root.
Everything tolerated is listed in the returned [TreeReport].

Parameters:
  - nodes: []*Resource (flat, any order)

Returns:
  - []*Resource: Root nodes with Children populated
  - TreeReport: Tolerated integrity problems
*/
func BuildTree(nodes []*Resource) ([]*Resource, TreeReport) {
	var report TreeReport

	// 1. Index by id, copying so the caller's slice is untouched.
	order := make([]*Resource, 0, len(nodes))
	index := make(map[string]*Resource, len(nodes))

	for _, node := range nodes {
		if node == nil {
			continue
		}
		if _, dup := index[node.ID]; dup {
			report.Duplicates = append(report.Duplicates, node.ID)
			continue
		}
		copied := node.clone()
		index[node.ID] = copied
		order = append(order, copied)
	}

	// 2. Resolve effective parents.
	parentOf := make(map[string]string, len(order))
	for _, node := range order {
		switch {
		case node.ParentID == "":
		case node.ParentID == node.ID:
			report.CycleBreaks = append(report.CycleBreaks, node.ID)
		default:
			if _, known := index[node.ParentID]; known {
				parentOf[node.ID] = node.ParentID
			} else {
				report.Orphans = append(report.Orphans, node.ID)
			}
		}
	}

	// 3. Break cycles. The first node in input order that reaches itself is detached.
	for _, node := range order {
		current, ok := parentOf[node.ID]
		for steps := 0; ok && steps <= len(order); steps++ {
			if current == node.ID {
				delete(parentOf, node.ID)
				report.CycleBreaks = append(report.CycleBreaks, node.ID)
				break
			}
			current, ok = parentOf[current]
		}
	}

	// 4. Attach.
	roots := make([]*Resource, 0)
	for _, node := range order {
		if parentID, ok := parentOf[node.ID]; ok {
			parent := index[parentID]
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}

	// 5. Order siblings.
	sortSiblings(roots)

	return roots, report
}

// NormalizeTree rebuilds a forest that may arrive nested, flat, or mixed.
// Nesting implies the parent when a node declares none.
func NormalizeTree(nodes []*Resource) ([]*Resource, TreeReport) {
	flat := make([]*Resource, 0, len(nodes))

	var collect func(children []*Resource, parentID string)
	collect = func(children []*Resource, parentID string) {
		for _, node := range children {
			if node == nil {
				continue
			}
			copied := node.clone()
			if copied.ParentID == "" {
				copied.ParentID = parentID
			}
			flat = append(flat, copied)
			collect(node.Children, node.ID)
		}
	}
	collect(nodes, "")

	return BuildTree(flat)
}

func sortSiblings(nodes []*Resource) {
	slices.SortStableFunc(nodes, func(a, b *Resource) int {
		return cmp.Compare(a.Sort, b.Sort)
	})
	for _, node := range nodes {
		sortSiblings(node.Children)
	}
}

// # Traversal

// Walk visits the forest depth-first in sibling order. Returning false from visit
// skips the node's subtree.
func Walk(roots []*Resource, visit func(node *Resource, depth int) bool) {
	walk(roots, 0, visit)
}

func walk(nodes []*Resource, depth int, visit func(*Resource, int) bool) {
	for _, node := range nodes {
		if visit(node, depth) {
			walk(node.Children, depth+1, visit)
		}
	}
}

// Flatten returns every node in pre-order. The returned nodes still carry children.
func Flatten(roots []*Resource) []*Resource {
	flat := make([]*Resource, 0)
	Walk(roots, func(node *Resource, _ int) bool {
		flat = append(flat, node)
		return true
	})
	return flat
}

// FindNode returns the node with id, or nil.
func FindNode(roots []*Resource, id string) *Resource {
	path := AncestorPath(roots, id)
	if len(path) == 0 {
		return nil
	}
	return path[len(path)-1]
}

// AncestorPath returns the chain from a root down to id (inclusive), or nil.
func AncestorPath(roots []*Resource, id string) []*Resource {
	for _, node := range roots {
		if node.ID == id {
			return []*Resource{node}
		}
		if tail := AncestorPath(node.Children, id); tail != nil {
			return append([]*Resource{node}, tail...)
		}
	}
	return nil
}

// # Menu Visibility

// VisibleMenus returns a copy of the forest pruned to what checker may see.
// A hidden node hides its whole subtree.
func VisibleMenus(roots []*Resource, checker Checker) []*Resource {
	visible := make([]*Resource, 0, len(roots))
	for _, node := range roots {
		if !node.VisibleTo(checker) {
			continue
		}
		copied := node.clone()
		copied.Children = VisibleMenus(node.Children, checker)
		if len(copied.Children) == 0 {
			copied.Children = nil
		}
		visible = append(visible, copied)
	}
	return visible
}
