package capability

import (
	"context"
	"errors"
	"fmt"
)

const (
	EditPost   = "edit_post"
	DoNotAllow = "do_not_allow"
)

var ErrGrantWidened = errors.New("capability: stage dropped a required grant")

// Request identifies one capability check: which capability, for whom, and
// on which object (zero when the capability is not object-scoped).
type Request struct {
	Capability string
	UserID     int64
	ObjectID   int64
}

// Stage refines the primitive grants a capability maps to. A stage may add
// grants (narrowing) but must return every grant it was given.
type Stage interface {
	MapCapability(ctx context.Context, grants []string, req Request) ([]string, error)
}

type StageFunc func(ctx context.Context, grants []string, req Request) ([]string, error)

func (f StageFunc) MapCapability(ctx context.Context, grants []string, req Request) ([]string, error) {
	return f(ctx, grants, req)
}

// Pipeline runs stages in registration order.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	p := &Pipeline{}
	for _, s := range stages {
		p.Add(s)
	}
	return p
}

func (p *Pipeline) Add(s Stage) {
	if s == nil {
		return
	}
	p.stages = append(p.stages, s)
}

func (p *Pipeline) Len() int { return len(p.stages) }

func (p *Pipeline) Apply(ctx context.Context, grants []string, req Request) ([]string, error) {
	current := append([]string(nil), grants...)
	for i, s := range p.stages {
		in := append([]string(nil), current...)
		out, err := s.MapCapability(ctx, in, req)
		if err != nil {
			return nil, err
		}
		if missing, ok := firstMissing(current, out); !ok {
			return nil, fmt.Errorf("%w: stage %d dropped %q", ErrGrantWidened, i, missing)
		}
		current = out
	}
	return current, nil
}

func firstMissing(before []string, after []string) (string, bool) {
	have := make(map[string]struct{}, len(after))
	for _, g := range after {
		have[g] = struct{}{}
	}
	for _, g := range before {
		if _, ok := have[g]; !ok {
			return g, false
		}
	}
	return "", true
}

func contains(grants []string, want string) bool {
	for _, g := range grants {
		if g == want {
			return true
		}
	}
	return false
}
