// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package gate decides where a browser tab may go and what it may see.

It mirrors the SPA router on the server: a static [Table] of routes, a per-tab
[Router] that runs before-each hooks on every navigation, the navigation guard
([Decide] and [Guard]), and the element-visibility gate ([Evaluate] and [Mount]).
*/
package gate

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taibuivan/ucenter/internal/platform/validate"
	"github.com/taibuivan/ucenter/pkg/pointer"
)

//go:embed routes.yaml
var defaultRoutes []byte

// # Route Table

// Route is one entry of the route table.
type Route struct {
	Path  string `yaml:"path" json:"path"`
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	Icon  string `yaml:"icon,omitempty" json:"icon,omitempty"`

	// RequireAuth defaults to true when omitted.
	RequireAuth *bool `yaml:"requireAuth,omitempty" json:"requireAuth,omitempty"`

	// Permissions are checked any-of.
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`
	HideMenu    bool     `yaml:"hideMenu,omitempty" json:"hideMenu,omitempty"`

	// Redirect makes the route a redirect record, resolved before any hook runs.
	Redirect string `yaml:"redirect,omitempty" json:"redirect,omitempty"`

	segments []string
}

// RequiresAuth reports whether the route is protected.
func (route *Route) RequiresAuth() bool {
	return pointer.Fallback(route.RequireAuth, true)
}

// match returns the path parameters when segments fit the route.
func (route *Route) match(segments []string) (map[string]string, bool) {
	if len(segments) != len(route.segments) {
		return nil, false
	}

	var params map[string]string
	for i, pattern := range route.segments {
		if name, ok := strings.CutPrefix(pattern, ":"); ok {
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = segments[i]
			continue
		}
		if pattern != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// staticSegments ranks competing matches: the most literal route wins.
func (route *Route) staticSegments() int {
	count := 0
	for _, segment := range route.segments {
		if !strings.HasPrefix(segment, ":") {
			count++
		}
	}
	return count
}

// Table is the console's route table plus the well-known paths the guard uses.
type Table struct {
	Login       string   `yaml:"login"`
	Forbidden   string   `yaml:"forbidden"`
	NotFound    string   `yaml:"notFound"`
	Root        string   `yaml:"root"`
	TitleSuffix string   `yaml:"titleSuffix"`
	Routes      []*Route `yaml:"routes"`
}

/*
LoadRoutes parses and validates a YAML route table.

Description: Every path must be an absolute in-app path and unique. The login,
forbidden and not-found pages must exist and be public, otherwise the guard could
redirect in a loop. Redirect records must point at a known route.

Parameters:
  - data: []byte (YAML)

Returns:
  - *Table: Ready for matching
  - error: Parse or validation failure
*/
func LoadRoutes(data []byte) (*Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("gate_routes_parse_failed: %w", err)
	}

	if table.Root == "" {
		table.Root = "/"
	}

	validator := &validate.Validator{}
	validator.Path("login", table.Login).
		Path("forbidden", table.Forbidden).
		Path("notFound", table.NotFound).
		Path("root", table.Root)

	seen := make(map[string]bool, len(table.Routes))
	for i, route := range table.Routes {
		field := fmt.Sprintf("routes[%d].path", i)
		validator.Path(field, route.Path)
		validator.Custom(field, seen[cleanPath(route.Path)], "Duplicate route path")
		validator.PermissionCodes(fmt.Sprintf("routes[%d].permissions", i), route.Permissions)

		seen[cleanPath(route.Path)] = true
		route.segments = splitPath(route.Path)
	}

	for i, route := range table.Routes {
		if route.Redirect == "" {
			continue
		}
		target, _ := table.Match(route.Redirect)
		validator.Custom(fmt.Sprintf("routes[%d].redirect", i), target == nil, "Redirect target is not a known route")
	}

	for field, wellKnown := range map[string]string{"login": table.Login, "forbidden": table.Forbidden, "notFound": table.NotFound} {
		route, _ := table.Match(wellKnown)
		validator.Custom(field, route == nil || route.RequiresAuth() || route.Redirect != "", "Must be a public, non-redirect route")
	}

	if err := validator.Err(); err != nil {
		return nil, fmt.Errorf("gate_routes_invalid: %w", err)
	}
	return &table, nil
}

// LoadRoutesFile reads a route table from disk.
func LoadRoutesFile(filePath string) (*Table, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("gate_routes_read_failed: %w", err)
	}
	return LoadRoutes(data)
}

// DefaultRoutes returns the built-in console route table.
func DefaultRoutes() (*Table, error) {
	return LoadRoutes(defaultRoutes)
}

// Match returns the route for an already-clean path, or nil.
func (table *Table) Match(rawPath string) (*Route, map[string]string) {
	segments := splitPath(rawPath)

	var best *Route
	var bestParams map[string]string
	for _, route := range table.Routes {
		params, ok := route.match(segments)
		if !ok {
			continue
		}
		if best == nil || route.staticSegments() > best.staticSegments() {
			best, bestParams = route, params
		}
	}
	return best, bestParams
}

// Title renders the document title for route.
func (table *Table) Title(route *Route) string {
	if route == nil || route.Title == "" {
		return table.TitleSuffix
	}
	if table.TitleSuffix == "" {
		return route.Title
	}
	return route.Title + " - " + table.TitleSuffix
}

// # Helpers

func cleanPath(raw string) string {
	if raw == "" {
		return "/"
	}
	return path.Clean("/" + raw)
}

func splitPath(raw string) []string {
	cleaned := strings.Trim(cleanPath(raw), "/")
	if cleaned == "" {
		return []string{}
	}
	return strings.Split(cleaned, "/")
}
