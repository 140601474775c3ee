package server

import (
	"net/http"
	"strings"
)

// BasicRouter routes with method-qualified [http.ServeMux] patterns ("GET /callback").
//
// Unknown GET paths get a plain 404 explaining that the server only exists to finish sign-in.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	fallback    bool
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first one added is the outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method and path. Other methods on the same path get a 405 from the mux.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.register(strings.ToUpper(method)+" "+path, handler)
}

// Handler registers every pattern in [Handler.Routes].
//
// Patterns may carry a method prefix; bare paths match any method.
func (r *BasicRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.register(route, handler)
	}
}

func (r *BasicRouter) register(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, r.Apply(handler))

	// Only method-qualified routes can share the mux with "GET /" without conflicting.
	method, path, ok := strings.Cut(pattern, " ")
	if !r.fallback && ok && method != "" && path != "/" {
		r.fallback = true
		r.mux.Handle("GET /", r.Apply(http.HandlerFunc(notFound)))
	}
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the registered middleware.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	return handler
}

func notFound(w http.ResponseWriter, req *http.Request) {
	http.Error(w, "opium: this server only handles the Spotify sign-in callback", http.StatusNotFound)
}
