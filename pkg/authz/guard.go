package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/observability"
)

// Guard enforces project existence and authority checks before guarded
// operations run. It is shared by every service; the per-operation
// configuration lives in CheckSpec at the wrapping site.
type Guard struct {
	checker *Checker
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewGuard creates a guard. metrics may be nil when metrics are disabled.
func NewGuard(checker *Checker, logger *observability.Logger, metrics *observability.Metrics) *Guard {
	return &Guard{
		checker: checker,
		logger:  logger,
		metrics: metrics,
	}
}

// Checker exposes the underlying checker for feature code that needs the
// caller's exact role (e.g. role-change validation).
func (g *Guard) Checker() *Checker {
	return g.checker
}

// CheckSpec declares, per operation, how to resolve the target project from
// the command and which authority the caller must hold.
type CheckSpec[C any] struct {
	// ProjectUUID extracts the target project identifier from the command
	ProjectUUID func(C) uuid.UUID

	// Authority required for the operation; defaults to see_project
	Authority Authority

	// SkipAccess disables the authority check, leaving only the existence
	// check (used by operations that do their own access decision)
	SkipAccess bool
}

// Operation is a project-scoped service operation: actor is the authenticated
// username on whose behalf the command runs.
type Operation[C, R any] func(ctx context.Context, actor string, cmd C) (R, error)

// Guarded wraps op so that it only runs when the target project exists and
// the actor holds the required authority. On failure the operation body is
// never invoked and a sentinel error (ErrProjectNotFound, ErrAccessDenied)
// is returned for the boundary layer to translate.
func Guarded[C, R any](g *Guard, spec CheckSpec[C], op Operation[C, R]) Operation[C, R] {
	return func(ctx context.Context, actor string, cmd C) (R, error) {
		var zero R

		project := spec.ProjectUUID(cmd)

		exists, err := g.checker.ProjectExists(ctx, project)
		if err != nil {
			return zero, err
		}
		if !exists {
			g.observe("not_found")
			return zero, fmt.Errorf("%w: %s", ErrProjectNotFound, project)
		}

		if !spec.SkipAccess {
			authority := spec.Authority
			if authority == "" {
				authority = AuthoritySeeProject
			}

			allowed, err := g.checker.HasAuthority(ctx, project, actor, authority)
			if err != nil {
				return zero, err
			}
			if !allowed {
				g.observe("denied")
				g.logger.WithFields(map[string]interface{}{
					"project":   project.String(),
					"username":  actor,
					"authority": string(authority),
				}).Warn("project access denied")
				return zero, fmt.Errorf("%w: %s requires %s on project %s", ErrAccessDenied, actor, authority, project)
			}
		}

		g.observe("allowed")
		return op(ctx, actor, cmd)
	}
}

func (g *Guard) observe(outcome string) {
	if g.metrics != nil {
		g.metrics.ProjectChecksTotal.WithLabelValues(outcome).Inc()
	}
}
