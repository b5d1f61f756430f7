package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MembershipSource provides project membership lookups. The projects store is
// the canonical implementation; RoleCache wraps any source with Redis caching.
type MembershipSource interface {
	// RoleOf returns the member's role within a project. found is false
	// when the user holds no membership.
	RoleOf(ctx context.Context, project uuid.UUID, username string) (role Role, found bool, err error)

	// ProjectExists reports whether a project with this UUID exists
	ProjectExists(ctx context.Context, project uuid.UUID) (bool, error)
}

// Checker decides whether a user may perform an action on a project
type Checker struct {
	src MembershipSource
}

// NewChecker creates a checker over a membership source
func NewChecker(src MembershipSource) *Checker {
	return &Checker{src: src}
}

// ProjectExists reports whether the project exists
func (c *Checker) ProjectExists(ctx context.Context, project uuid.UUID) (bool, error) {
	exists, err := c.src.ProjectExists(ctx, project)
	if err != nil {
		return false, fmt.Errorf("failed to check project existence: %w", err)
	}
	return exists, nil
}

// RoleOf returns the user's role within the project, if they are a member
func (c *Checker) RoleOf(ctx context.Context, project uuid.UUID, username string) (Role, bool, error) {
	role, found, err := c.src.RoleOf(ctx, project, username)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up role: %w", err)
	}
	return role, found, nil
}

// HasAuthority reports whether the user's role within the project grants the
// authority. Users without a membership are denied everything.
func (c *Checker) HasAuthority(ctx context.Context, project uuid.UUID, username string, authority Authority) (bool, error) {
	role, found, err := c.RoleOf(ctx, project, username)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return role.HasAuthority(authority), nil
}
