package routing

import (
	"errors"
	"strings"
)

type RouteClass string

const (
	RouteClassUI          RouteClass = "ui"
	RouteClassInternalAPI RouteClass = "internal_api"
	RouteClassOps         RouteClass = "ops"
	RouteClassStatic      RouteClass = "static"
)

func knownRouteClass(rc RouteClass) bool {
	switch rc {
	case RouteClassUI, RouteClassInternalAPI, RouteClassOps, RouteClassStatic:
		return true
	}
	return false
}

// Classifier decides the route class of a request path: listed routes first,
// then path prefixes. Unknown paths are ui.
type Classifier struct {
	entrypoint string
	exact      map[string]RouteClass
	patterns   []pathPatternRoute
}

func NewClassifier(a Allowlist, entrypoint string) (*Classifier, error) {
	ep, ok := a.Entrypoints[entrypoint]
	if !ok {
		return nil, errors.New("allowlist: missing entrypoint")
	}
	if len(ep.Routes) == 0 {
		return nil, errors.New("allowlist: entrypoint routes empty")
	}

	exact := make(map[string]RouteClass, len(ep.Routes))
	var patterns []pathPatternRoute
	for _, r := range ep.Routes {
		if r.Path == "" || r.RouteClass == "" {
			return nil, errors.New("allowlist: invalid route")
		}
		if p, ok := parsePathPattern(r.Path); ok {
			patterns = append(patterns, pathPatternRoute{pattern: p, rc: RouteClass(r.RouteClass)})
			continue
		}
		exact[r.Path] = RouteClass(r.RouteClass)
	}
	return &Classifier{entrypoint: entrypoint, exact: exact, patterns: patterns}, nil
}

func (c *Classifier) Entrypoint() string { return c.entrypoint }

func (c *Classifier) Classify(path string) RouteClass {
	if rc, ok := c.exact[path]; ok {
		return rc
	}
	for _, p := range c.patterns {
		if p.pattern.Match(path) {
			return p.rc
		}
	}

	switch {
	case hasPrefixSegment(path, "/internal/api"):
		return RouteClassInternalAPI
	case path == "/health" || path == "/healthz":
		return RouteClassOps
	case hasPrefixSegment(path, "/assets") || hasPrefixSegment(path, "/static"):
		return RouteClassStatic
	default:
		return RouteClassUI
	}
}

func hasPrefixSegment(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

type pathPatternRoute struct {
	pattern PathPattern
	rc      RouteClass
}
