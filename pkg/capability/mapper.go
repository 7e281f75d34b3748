package capability

import (
	"context"
	"fmt"
)

type Object struct {
	ID       int64
	Type     string
	Status   string
	AuthorID int64
}

type ObjectLookup interface {
	LookupObject(ctx context.Context, objectID int64) (Object, bool, error)
}

type ObjectLookupFunc func(ctx context.Context, objectID int64) (Object, bool, error)

func (f ObjectLookupFunc) LookupObject(ctx context.Context, objectID int64) (Object, bool, error) {
	return f(ctx, objectID)
}

// Mapper turns a meta capability into the primitive grants it requires.
// Capabilities without rules are primitive and map to themselves.
type Mapper struct {
	rules   *RuleSet
	objects ObjectLookup
}

func NewMapper(rules *RuleSet, objects ObjectLookup) *Mapper {
	return &Mapper{rules: rules, objects: objects}
}

func (m *Mapper) Map(ctx context.Context, req Request) ([]string, error) {
	rules, ok := m.rules.rulesFor(req.Capability)
	if !ok {
		return []string{req.Capability}, nil
	}
	if m.objects == nil {
		return []string{DoNotAllow}, nil
	}

	obj, found, err := m.objects.LookupObject(ctx, req.ObjectID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []string{DoNotAllow}, nil
	}

	vars := map[string]any{
		"user_id": req.UserID,
		"item": map[string]any{
			"id":        obj.ID,
			"type":      obj.Type,
			"status":    obj.Status,
			"author_id": obj.AuthorID,
		},
	}

	var grants []string
	for _, r := range rules {
		out, _, err := r.program.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("capability: eval %q: %w", r.expr, err)
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("capability: eval %q: non-bool result", r.expr)
		}
		if !matched {
			continue
		}
		for _, g := range r.grants {
			if !contains(grants, g) {
				grants = append(grants, g)
			}
		}
	}
	if len(grants) == 0 {
		return []string{DoNotAllow}, nil
	}
	return grants, nil
}
