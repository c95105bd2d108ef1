// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"reflect"
	"strings"
	"sync"

	"github.com/taibuivan/ucenter/internal/rbac"
	"github.com/taibuivan/ucenter/internal/session"
)

// # Element Declarations

// Mode selects what a failed check does to a fragment.
type Mode string

const (
	// ModeHide removes the fragment from the rendered tree.
	ModeHide Mode = "hide"
	// ModeDisable renders the fragment but makes it non-interactive.
	ModeDisable Mode = "disable"
)

// DeniedClass marks fragments rendered in disabled form.
const DeniedClass = "permission-denied"

// Element is one UI fragment annotated with what it requires.
type Element struct {
	ID  string `json:"id"`
	Tag string `json:"tag,omitempty"`

	// Permission accepts a code, a list (any-of) or {code|anyOf|allOf}.
	Permission rbac.Requirement `json:"permission"`

	// Roles are checked any-of, together with Permission.
	Roles []string `json:"roles,omitempty"`

	Mode Mode `json:"mode,omitempty"`

	// Detached is set when the fragment has no parent to be removed from;
	// a failed hide check then suppresses its display instead.
	Detached bool `json:"detached,omitempty"`

	Children []*Element `json:"children,omitempty"`
}

// Checker is what element checks read from the session.
type Checker interface {
	rbac.Checker
	HasAnyRole(roles []string) bool
}

// Allowed reports whether checker satisfies both the permission and role checks.
func (element *Element) Allowed(checker Checker) bool {
	return element.Permission.SatisfiedBy(checker) && checker.HasAnyRole(element.Roles)
}

func (element *Element) mode() Mode {
	if element.Mode == ModeDisable {
		return ModeDisable
	}
	return ModeHide
}

// # Rendering

// ElementState is how a fragment must be rendered.
type ElementState struct {
	ID       string            `json:"id"`
	Tag      string            `json:"tag,omitempty"`
	Hidden   bool              `json:"hidden,omitempty"`
	Class    []string          `json:"class,omitempty"`
	Style    map[string]string `json:"style,omitempty"`
	Disabled bool              `json:"disabled,omitempty"`
	Children []*ElementState   `json:"children,omitempty"`
}

// Rendering is the evaluated tree. Removed lists fragments detached from their
// parent, whose subtrees go with them.
type Rendering struct {
	Elements []*ElementState `json:"elements"`
	Removed  []string        `json:"removed,omitempty"`
}

/*
Evaluate decides every fragment against checker.

Description: In hide mode a failing fragment is removed from the tree, unless it
is detached, in which case it stays with display suppressed. In disable mode it
always renders, but carries the denied class, ignores pointer events, is
de-emphasized, and its own or first contained button is disabled.

Parameters:
  - elements: []*Element
  - checker: Checker

Returns:
  - Rendering
*/
func Evaluate(elements []*Element, checker Checker) Rendering {
	var removed []string
	states := evaluateAll(elements, checker, &removed)
	return Rendering{Elements: states, Removed: removed}
}

func evaluateAll(elements []*Element, checker Checker, removed *[]string) []*ElementState {
	states := make([]*ElementState, 0, len(elements))
	for _, element := range elements {
		if element == nil {
			continue
		}
		if state := evaluate(element, checker, removed); state != nil {
			states = append(states, state)
		}
	}
	return states
}

func evaluate(element *Element, checker Checker, removed *[]string) *ElementState {
	allowed := element.Allowed(checker)
	state := &ElementState{ID: element.ID, Tag: element.Tag}

	if !allowed && element.mode() == ModeHide {
		if !element.Detached {
			*removed = append(*removed, element.ID)
			return nil
		}
		state.Hidden = true
		state.Style = map[string]string{"display": "none"}
		return state
	}

	if len(element.Children) > 0 {
		state.Children = evaluateAll(element.Children, checker, removed)
	}

	if !allowed {
		state.Class = []string{DeniedClass}
		state.Style = map[string]string{"pointer-events": "none", "opacity": "0.5"}
		if button := firstButton(state); button != nil {
			button.Disabled = true
		}
	}

	return state
}

// firstButton finds state itself or its first descendant button in document order.
func firstButton(state *ElementState) *ElementState {
	if strings.EqualFold(state.Tag, "button") {
		return state
	}
	for _, child := range state.Children {
		if button := firstButton(child); button != nil {
			return button
		}
	}
	return nil
}

// # Reactive Fragments

// Source is a checker that announces changes.
type Source interface {
	Checker
	Subscribe(listener func(*session.Snapshot)) (unsubscribe func())
}

// Fragment keeps a declared element tree evaluated against a live session.
type Fragment struct {
	source   Source
	onChange func(Rendering)

	mu          sync.Mutex
	elements    []*Element
	rendering   Rendering
	unsubscribe func()
}

/*
Mount evaluates elements now and again on every session change and every
[Fragment.Update], calling onChange whenever the rendering differs.

Parameters:
  - source: Source
  - elements: []*Element
  - onChange: func(Rendering) (may be nil)

Returns:
  - *Fragment
*/
func Mount(source Source, elements []*Element, onChange func(Rendering)) *Fragment {
	fragment := &Fragment{source: source, onChange: onChange, elements: elements}
	fragment.rendering = Evaluate(elements, source)
	fragment.unsubscribe = source.Subscribe(func(*session.Snapshot) {
		fragment.refresh(nil)
	})
	return fragment
}

// Rendering returns the latest evaluation.
func (fragment *Fragment) Rendering() Rendering {
	fragment.mu.Lock()
	defer fragment.mu.Unlock()
	return fragment.rendering
}

// Update re-evaluates after the owning view changed. A nil elements keeps the
// current declarations.
func (fragment *Fragment) Update(elements []*Element) {
	fragment.refresh(elements)
}

// Unmount stops re-evaluation.
func (fragment *Fragment) Unmount() {
	fragment.mu.Lock()
	unsubscribe := fragment.unsubscribe
	fragment.unsubscribe = nil
	fragment.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (fragment *Fragment) refresh(elements []*Element) {
	fragment.mu.Lock()
	if elements != nil {
		fragment.elements = elements
	}
	next := Evaluate(fragment.elements, fragment.source)
	changed := !reflect.DeepEqual(next, fragment.rendering)
	fragment.rendering = next
	fragment.mu.Unlock()

	if changed && fragment.onChange != nil {
		fragment.onChange(next)
	}
}
