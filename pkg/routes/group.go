// Package routes declares HTTP route groups and registers them on a ServeMux.
package routes

import (
	"net/http"
	"slices"

	"github.com/mobby57/memoLib-sub019/pkg/middleware"
)

// Route binds a method and a pattern, relative to its group, to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group organizes routes under a common prefix. Middleware wraps every route
// in the group and its children, outermost first.
type Group struct {
	Prefix     string
	Middleware []func(http.Handler) http.Handler
	Routes     []Route
	Children   []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		register(mux, "", nil, group)
	}
}

func register(mux *http.ServeMux, parentPrefix string, parent middleware.Chain, group Group) {
	prefix := parentPrefix + group.Prefix
	chain := append(slices.Clone(parent), group.Middleware...)

	for _, route := range group.Routes {
		mux.Handle(route.Method+" "+prefix+route.Pattern, chain.Then(route.Handler))
	}
	for _, child := range group.Children {
		register(mux, prefix, chain, child)
	}
}
