package capability

import (
	"context"

	"github.com/marcochiesi/editorial-access-manager/pkg/authz"
)

type RoleResolver interface {
	ResolveRoles(ctx context.Context, userID int64) ([]string, error)
}

type Authorizer interface {
	Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error)
}

// Checker answers "can this user do this" the way the host does: map the
// capability, let the stages narrow the grants, then require every grant to be
// held by one of the user's roles.
type Checker struct {
	mapper     *Mapper
	pipeline   *Pipeline
	roles      RoleResolver
	authorizer Authorizer
	domain     string
}

func NewChecker(mapper *Mapper, pipeline *Pipeline, roles RoleResolver, authorizer Authorizer) *Checker {
	if pipeline == nil {
		pipeline = NewPipeline()
	}
	return &Checker{
		mapper:     mapper,
		pipeline:   pipeline,
		roles:      roles,
		authorizer: authorizer,
		domain:     authz.DomainGlobal,
	}
}

// Grants returns the primitive grants the request requires after every stage
// has run.
func (c *Checker) Grants(ctx context.Context, req Request) ([]string, error) {
	base, err := c.mapper.Map(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.pipeline.Apply(ctx, base, req)
}

func (c *Checker) UserCan(ctx context.Context, userID int64, capability string, objectID int64) (bool, error) {
	grants, err := c.Grants(ctx, Request{Capability: capability, UserID: userID, ObjectID: objectID})
	if err != nil {
		return false, err
	}
	if contains(grants, DoNotAllow) {
		return false, nil
	}

	roles, err := c.roles.ResolveRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(roles) == 0 {
		roles = []string{authz.RoleAnonymous}
	}

	for _, g := range grants {
		held, err := c.roleHolds(roles, g)
		if err != nil {
			return false, err
		}
		if !held {
			return false, nil
		}
	}
	return true, nil
}

func (c *Checker) roleHolds(roles []string, grant string) (bool, error) {
	for _, role := range roles {
		allowed, enforced, err := c.authorizer.Authorize(authz.SubjectFromRoleSlug(role), c.domain, grant, authz.ActionGrant)
		if err != nil {
			return false, err
		}
		if !enforced || allowed {
			return true, nil
		}
	}
	return false, nil
}
