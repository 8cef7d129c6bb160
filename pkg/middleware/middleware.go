// Package middleware provides the HTTP middleware used by API modules:
// CORS, request ids, request logging and panic recovery.
package middleware

import "net/http"

// Chain is an ordered middleware list. The first entry is the outermost wrapper.
type Chain []func(http.Handler) http.Handler

// Use appends mw to the chain.
func (c *Chain) Use(mw func(http.Handler) http.Handler) {
	*c = append(*c, mw)
}

// Then wraps handler with every middleware in the chain.
func (c Chain) Then(handler http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		handler = c[i](handler)
	}
	return handler
}
