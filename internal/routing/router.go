package routing

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/marcochiesi/editorial-access-manager/pkg/requestid"
)

// Router dispatches on exact paths first, then on pattern routes in
// registration order. Handler panics become a 500 in the route class's
// error format.
type Router struct {
	classifier *Classifier
	logger     *slog.Logger
	routes     map[string]map[string]routeEntry
	patterns   []patternEntry
}

type routeEntry struct {
	rc      RouteClass
	handler http.Handler
}

type patternEntry struct {
	pattern PathPattern
	methods map[string]routeEntry
}

func NewRouter(classifier *Classifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		classifier: classifier,
		logger:     logger,
		routes:     make(map[string]map[string]routeEntry),
	}
}

func (r *Router) Handle(rc RouteClass, method string, path string, h http.Handler) {
	entry := routeEntry{rc: rc, handler: r.recoverer(rc, h)}

	if p, ok := parsePathPattern(path); ok {
		for i := range r.patterns {
			if r.patterns[i].pattern.raw == path {
				r.patterns[i].methods[method] = entry
				return
			}
		}
		r.patterns = append(r.patterns, patternEntry{pattern: p, methods: map[string]routeEntry{method: entry}})
		return
	}

	if r.routes[path] == nil {
		r.routes[path] = make(map[string]routeEntry)
	}
	r.routes[path][method] = entry
}

func (r *Router) recoverer(rc RouteClass, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("handler panic",
					"path", req.URL.Path,
					"method", req.Method,
					"request_id", requestid.FromContext(req.Context()),
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()),
				)
				WriteError(w, req, rc, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		h.ServeHTTP(w, req)
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	methods, ok := r.routes[req.URL.Path]
	var params map[string]string
	if !ok {
		for _, p := range r.patterns {
			if bound, matched := p.pattern.bind(req.URL.Path); matched {
				methods, params, ok = p.methods, bound, true
				break
			}
		}
	}
	if !ok {
		WriteError(w, req, r.classifier.Classify(req.URL.Path), http.StatusNotFound, "not_found", "not found")
		return
	}
	entry, ok := methods[req.Method]
	if !ok {
		w.Header().Set("Allow", allowHeader(methods))
		WriteError(w, req, entrypointClass(methods, r.classifier.Classify(req.URL.Path)), http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if params != nil {
		req = req.WithContext(withParams(req.Context(), params))
	}
	entry.handler.ServeHTTP(w, req)
}

// Unlisted returns "METHOD path" for every registered route the allowlist does
// not name for the router's entrypoint.
func (r *Router) Unlisted(a Allowlist) []string {
	var out []string
	check := func(path string, methods map[string]routeEntry) {
		for m := range methods {
			if !a.Allows(r.classifier.Entrypoint(), m, path) {
				out = append(out, m+" "+path)
			}
		}
	}
	for path, methods := range r.routes {
		check(path, methods)
	}
	for _, p := range r.patterns {
		check(p.pattern.raw, p.methods)
	}
	sort.Strings(out)
	return out
}

func entrypointClass(methods map[string]routeEntry, fallback RouteClass) RouteClass {
	for _, e := range methods {
		return e.rc
	}
	return fallback
}

func allowHeader(methods map[string]routeEntry) string {
	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, m)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
