package capability

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Version          int                       `yaml:"version"`
	MetaCapabilities map[string]metaCapability `yaml:"meta_capabilities"`
}

type metaCapability struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	When   string   `yaml:"when"`
	Grants []string `yaml:"grants"`
}

type compiledRule struct {
	expr    string
	program cel.Program
	grants  []string
}

// RuleSet holds the compiled mapping rules for every meta capability.
// Programs are compiled once and are safe for concurrent evaluation.
type RuleSet struct {
	meta map[string][]compiledRule
}

var newRulesCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("user_id", cel.IntType),
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
	)
}

func ParseRulesYAML(b []byte) (*RuleSet, error) {
	var f rulesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if f.Version != 1 {
		return nil, errors.New("capability: unsupported rules version")
	}
	if len(f.MetaCapabilities) == 0 {
		return nil, errors.New("capability: missing meta_capabilities")
	}

	env, err := newRulesCELEnv()
	if err != nil {
		return nil, err
	}

	rs := &RuleSet{meta: make(map[string][]compiledRule, len(f.MetaCapabilities))}
	for name, mc := range f.MetaCapabilities {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("capability: empty meta capability name")
		}
		if len(mc.Rules) == 0 {
			return nil, fmt.Errorf("capability: %s has no rules", name)
		}
		compiled := make([]compiledRule, 0, len(mc.Rules))
		for i, r := range mc.Rules {
			cr, err := compileRule(env, r)
			if err != nil {
				return nil, fmt.Errorf("capability: %s rule %d: %w", name, i, err)
			}
			compiled = append(compiled, cr)
		}
		rs.meta[name] = compiled
	}
	return rs, nil
}

func compileRule(env *cel.Env, r ruleSpec) (compiledRule, error) {
	expr := strings.TrimSpace(r.When)
	if expr == "" {
		expr = "true"
	}
	grants := make([]string, 0, len(r.Grants))
	for _, g := range r.Grants {
		g = strings.TrimSpace(g)
		if g == "" {
			return compiledRule{}, errors.New("empty grant")
		}
		grants = append(grants, g)
	}
	if len(grants) == 0 {
		return compiledRule{}, errors.New("grants required")
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return compiledRule{}, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return compiledRule{}, errors.New("expression output type mismatch")
	}
	program, err := env.Program(ast)
	if err != nil {
		return compiledRule{}, err
	}
	return compiledRule{expr: expr, program: program, grants: grants}, nil
}

func LoadRules(path string) (*RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRulesYAML(b)
}

func DefaultRulesPath() (string, error) {
	path := "config/capabilities.yaml"
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("capability: rules file not found")
}

func (rs *RuleSet) rulesFor(capability string) ([]compiledRule, bool) {
	if rs == nil {
		return nil, false
	}
	r, ok := rs.meta[capability]
	return r, ok
}
