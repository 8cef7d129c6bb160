package module

import (
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Router sends each request to the module owning its first path segment.
// Paths no module owns go to a plain ServeMux holding probes and exporters.
type Router struct {
	modules  map[string]*Module
	fallback *http.ServeMux
}

// NewRouter returns a Router with no modules mounted.
func NewRouter() *Router {
	return &Router{
		modules:  map[string]*Module{},
		fallback: http.NewServeMux(),
	}
}

// HandleFunc registers fn on the fallback mux.
func (r *Router) HandleFunc(pattern string, fn http.HandlerFunc) {
	r.fallback.Handle(pattern, fn)
}

// Handle registers h on the fallback mux.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.fallback.Handle(pattern, h)
}

// Mount attaches m under its prefix, replacing any module already there.
func (r *Router) Mount(m *Module) {
	r.modules[m.Prefix()] = m
}

// Modules lists mounted prefixes in order.
func (r *Router) Modules() []string {
	return slices.Sorted(maps.Keys(r.modules))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && p[len(p)-1] == '/' {
		req.URL.Path = strings.TrimRight(p, "/")
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
	}

	if m, ok := r.modules[firstSegment(req.URL.Path)]; ok {
		m.Serve(w, req)
		return
	}
	r.fallback.ServeHTTP(w, req)
}

// firstSegment returns "/api" for "/api/tenants/x" and "/healthz" for "/healthz".
func firstSegment(path string) string {
	head, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return "/" + head
}
