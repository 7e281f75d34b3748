package routing

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const DefaultAllowlistPath = "config/routing/allowlist.yaml"

type Allowlist struct {
	Version     int                   `yaml:"version"`
	Entrypoints map[string]Entrypoint `yaml:"entrypoints"`
}

type Entrypoint struct {
	Routes []Route `yaml:"routes"`
}

type Route struct {
	Path       string   `yaml:"path"`
	Methods    []string `yaml:"methods"`
	RouteClass string   `yaml:"route_class"`
}

var knownMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

func ParseAllowlistYAML(b []byte) (Allowlist, error) {
	var a Allowlist
	if err := yaml.Unmarshal(b, &a); err != nil {
		return Allowlist{}, err
	}
	if a.Version != 1 {
		return Allowlist{}, errors.New("allowlist: unsupported version")
	}
	if a.Entrypoints == nil {
		return Allowlist{}, errors.New("allowlist: missing entrypoints")
	}
	for name, ep := range a.Entrypoints {
		for _, r := range ep.Routes {
			if !knownRouteClass(RouteClass(r.RouteClass)) {
				return Allowlist{}, fmt.Errorf("allowlist: %s %s: unknown route_class %q", name, r.Path, r.RouteClass)
			}
			if len(r.Methods) == 0 {
				return Allowlist{}, fmt.Errorf("allowlist: %s %s: no methods", name, r.Path)
			}
			for _, m := range r.Methods {
				if !knownMethods[m] {
					return Allowlist{}, fmt.Errorf("allowlist: %s %s: unknown method %q", name, r.Path, m)
				}
			}
		}
	}
	return a, nil
}

func LoadAllowlist(path string) (Allowlist, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Allowlist{}, err
	}
	return ParseAllowlistYAML(b)
}

// DefaultPath finds DefaultAllowlistPath from the working directory or one of
// its parents, so tests run from package directories find the repo copy.
func DefaultPath() (string, error) {
	path := DefaultAllowlistPath
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("allowlist: default path not found")
}

// Allows reports whether the entrypoint lists method on path. path may be a
// pattern such as /items/{item_id}/access.
func (a Allowlist) Allows(entrypoint, method, path string) bool {
	for _, r := range a.Entrypoints[entrypoint].Routes {
		if r.Path != path {
			continue
		}
		for _, m := range r.Methods {
			if m == method {
				return true
			}
		}
	}
	return false
}
