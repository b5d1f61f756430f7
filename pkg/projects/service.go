package projects

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
	"github.com/platinummonkey/benjamin/pkg/observability"
	"github.com/platinummonkey/benjamin/pkg/users"
)

// RoleInvalidator evicts cached role lookups after membership changes.
// Satisfied by authz.RoleCache; nil when caching is disabled.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, project uuid.UUID, username string) error
	InvalidateProject(ctx context.Context, project uuid.UUID) error
}

// Service implements project operations behind the access guard
type Service struct {
	store     *Store
	directory users.Directory
	logger    *observability.Logger
	cache     RoleInvalidator

	getProject    authz.Operation[GetProjectCommand, *Project]
	updateProject authz.Operation[UpdateProjectCommand, *Project]
	deleteProject authz.Operation[DeleteProjectCommand, struct{}]
	listMembers   authz.Operation[ListMembersCommand, []*Member]
	changeRole    authz.Operation[ChangeUserRoleCommand, *Member]
}

// NewService creates a project service. cache may be nil when the role cache
// is disabled.
func NewService(store *Store, guard *authz.Guard, directory users.Directory, logger *observability.Logger, cache RoleInvalidator) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		logger:    logger,
		cache:     cache,
	}

	s.getProject = authz.Guarded(guard, authz.CheckSpec[GetProjectCommand]{
		ProjectUUID: func(c GetProjectCommand) uuid.UUID { return c.ProjectUUID },
	}, s.doGetProject)

	s.updateProject = authz.Guarded(guard, authz.CheckSpec[UpdateProjectCommand]{
		ProjectUUID: func(c UpdateProjectCommand) uuid.UUID { return c.ProjectUUID },
		Authority:   authz.AuthorityUpdateProject,
	}, s.doUpdateProject)

	s.deleteProject = authz.Guarded(guard, authz.CheckSpec[DeleteProjectCommand]{
		ProjectUUID: func(c DeleteProjectCommand) uuid.UUID { return c.ProjectUUID },
		Authority:   authz.AuthorityDeleteProject,
	}, s.doDeleteProject)

	s.listMembers = authz.Guarded(guard, authz.CheckSpec[ListMembersCommand]{
		ProjectUUID: func(c ListMembersCommand) uuid.UUID { return c.ProjectUUID },
	}, s.doListMembers)

	s.changeRole = authz.Guarded(guard, authz.CheckSpec[ChangeUserRoleCommand]{
		ProjectUUID: func(c ChangeUserRoleCommand) uuid.UUID { return c.ProjectUUID },
		Authority:   authz.AuthorityAssignRoles,
	}, s.doChangeUserRole)

	return s
}

// CreateProject creates a project with the caller as owner. No guard applies
// because the project does not exist yet.
func (s *Service) CreateProject(ctx context.Context, actor string, cmd CreateProjectCommand) (*Project, error) {
	if cmd.Title == "" {
		return nil, fmt.Errorf("project title is required")
	}

	project := &Project{
		UUID:        uuid.New(),
		Title:       cmd.Title,
		Description: cmd.Description,
		Author:      actor,
	}

	if err := s.store.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"project": project.UUID.String(),
		"author":  actor,
	}).Info("project created")

	return project, nil
}

// ListProjects lists the caller's projects. Visibility is membership itself,
// so no per-project check is needed.
func (s *Service) ListProjects(ctx context.Context, actor string) ([]*Project, error) {
	return s.store.ListByUsername(ctx, actor)
}

// GetProject fetches a project the caller can see
func (s *Service) GetProject(ctx context.Context, actor string, cmd GetProjectCommand) (*Project, error) {
	return s.getProject(ctx, actor, cmd)
}

// UpdateProject changes a project's title and description
func (s *Service) UpdateProject(ctx context.Context, actor string, cmd UpdateProjectCommand) (*Project, error) {
	return s.updateProject(ctx, actor, cmd)
}

// DeleteProject removes a project and everything under it
func (s *Service) DeleteProject(ctx context.Context, actor string, cmd DeleteProjectCommand) error {
	_, err := s.deleteProject(ctx, actor, cmd)
	return err
}

// ListMembers lists a project's members
func (s *Service) ListMembers(ctx context.Context, actor string, cmd ListMembersCommand) ([]*Member, error) {
	return s.listMembers(ctx, actor, cmd)
}

// ChangeUserRole changes an existing member's role
func (s *Service) ChangeUserRole(ctx context.Context, actor string, cmd ChangeUserRoleCommand) (*Member, error) {
	return s.changeRole(ctx, actor, cmd)
}

func (s *Service) doGetProject(ctx context.Context, actor string, cmd GetProjectCommand) (*Project, error) {
	return s.store.GetByUUID(ctx, cmd.ProjectUUID)
}

func (s *Service) doUpdateProject(ctx context.Context, actor string, cmd UpdateProjectCommand) (*Project, error) {
	if cmd.Title == "" {
		return nil, fmt.Errorf("project title is required")
	}
	if err := s.store.Update(ctx, cmd.ProjectUUID, cmd.Title, cmd.Description); err != nil {
		return nil, err
	}
	return s.store.GetByUUID(ctx, cmd.ProjectUUID)
}

func (s *Service) doDeleteProject(ctx context.Context, actor string, cmd DeleteProjectCommand) (struct{}, error) {
	if err := s.store.Delete(ctx, cmd.ProjectUUID); err != nil {
		return struct{}{}, err
	}

	s.invalidateProject(ctx, cmd.ProjectUUID)

	s.logger.WithFields(map[string]interface{}{
		"project":  cmd.ProjectUUID.String(),
		"username": actor,
	}).Info("project deleted")

	return struct{}{}, nil
}

func (s *Service) doListMembers(ctx context.Context, actor string, cmd ListMembersCommand) ([]*Member, error) {
	return s.store.ListMembers(ctx, cmd.ProjectUUID)
}

func (s *Service) doChangeUserRole(ctx context.Context, actor string, cmd ChangeUserRoleCommand) (*Member, error) {
	if !cmd.Role.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, cmd.Role)
	}

	// An unknown user and a user without membership are distinct outcomes:
	// users.ErrUserNotFound vs ErrMemberNotFound.
	if _, err := s.directory.FetchByUsername(ctx, cmd.Username); err != nil {
		return nil, err
	}

	if err := s.store.UpdateMemberRole(ctx, cmd.ProjectUUID, cmd.Username, cmd.Role); err != nil {
		return nil, err
	}

	s.invalidateMember(ctx, cmd.ProjectUUID, cmd.Username)

	s.logger.WithFields(map[string]interface{}{
		"project":  cmd.ProjectUUID.String(),
		"username": cmd.Username,
		"role":     string(cmd.Role),
	}).Info("member role changed")

	return &Member{Username: cmd.Username, Role: cmd.Role}, nil
}

func (s *Service) invalidateMember(ctx context.Context, project uuid.UUID, username string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, project, username); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate role cache entry")
	}
}

func (s *Service) invalidateProject(ctx context.Context, project uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProject(ctx, project); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate role cache for project")
	}
}
