package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
	"github.com/platinummonkey/benjamin/pkg/observability"
	"github.com/platinummonkey/benjamin/pkg/users"
)

// Service implements task operations behind the access guard
type Service struct {
	store     *Store
	checker   *authz.Checker
	directory users.Directory
	logger    *observability.Logger

	createTask authz.Operation[CreateTaskCommand, *Task]
	getTask    authz.Operation[GetTaskCommand, *Task]
	listTasks  authz.Operation[ListTasksCommand, []*Task]
	updateTask authz.Operation[UpdateTaskCommand, *Task]
	deleteTask authz.Operation[DeleteTaskCommand, struct{}]
}

// NewService creates a task service
func NewService(store *Store, guard *authz.Guard, directory users.Directory, logger *observability.Logger) *Service {
	s := &Service{
		store:     store,
		checker:   guard.Checker(),
		directory: directory,
		logger:    logger,
	}

	s.createTask = authz.Guarded(guard, authz.CheckSpec[CreateTaskCommand]{
		ProjectUUID: func(c CreateTaskCommand) uuid.UUID { return c.ProjectUUID },
		Authority:   authz.AuthorityCreateTask,
	}, s.doCreateTask)

	s.getTask = authz.Guarded(guard, authz.CheckSpec[GetTaskCommand]{
		ProjectUUID: func(c GetTaskCommand) uuid.UUID { return c.ProjectUUID },
	}, s.doGetTask)

	s.listTasks = authz.Guarded(guard, authz.CheckSpec[ListTasksCommand]{
		ProjectUUID: func(c ListTasksCommand) uuid.UUID { return c.ProjectUUID },
	}, s.doListTasks)

	s.updateTask = authz.Guarded(guard, authz.CheckSpec[UpdateTaskCommand]{
		ProjectUUID: func(c UpdateTaskCommand) uuid.UUID { return c.ProjectUUID },
		Authority:   authz.AuthorityUpdateTask,
	}, s.doUpdateTask)

	s.deleteTask = authz.Guarded(guard, authz.CheckSpec[DeleteTaskCommand]{
		ProjectUUID: func(c DeleteTaskCommand) uuid.UUID { return c.ProjectUUID },
		Authority:   authz.AuthorityDeleteTask,
	}, s.doDeleteTask)

	return s
}

// CreateTask creates a task in a project
func (s *Service) CreateTask(ctx context.Context, actor string, cmd CreateTaskCommand) (*Task, error) {
	return s.createTask(ctx, actor, cmd)
}

// GetTask fetches a single task
func (s *Service) GetTask(ctx context.Context, actor string, cmd GetTaskCommand) (*Task, error) {
	return s.getTask(ctx, actor, cmd)
}

// ListTasks lists a project's tasks
func (s *Service) ListTasks(ctx context.Context, actor string, cmd ListTasksCommand) ([]*Task, error) {
	return s.listTasks(ctx, actor, cmd)
}

// UpdateTask changes a task's fields
func (s *Service) UpdateTask(ctx context.Context, actor string, cmd UpdateTaskCommand) (*Task, error) {
	return s.updateTask(ctx, actor, cmd)
}

// DeleteTask removes a task
func (s *Service) DeleteTask(ctx context.Context, actor string, cmd DeleteTaskCommand) error {
	_, err := s.deleteTask(ctx, actor, cmd)
	return err
}

func (s *Service) doCreateTask(ctx context.Context, actor string, cmd CreateTaskCommand) (*Task, error) {
	if cmd.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	if err := s.validateAssignee(ctx, cmd.ProjectUUID, cmd.Assignee); err != nil {
		return nil, err
	}

	task := &Task{
		ProjectUUID: cmd.ProjectUUID,
		Title:       cmd.Title,
		Description: cmd.Description,
		Status:      StatusCreated,
		Author:      actor,
		Assignee:    cmd.Assignee,
	}

	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"project": cmd.ProjectUUID.String(),
		"number":  task.Number,
		"author":  actor,
	}).Info("task created")

	return task, nil
}

func (s *Service) doGetTask(ctx context.Context, actor string, cmd GetTaskCommand) (*Task, error) {
	return s.store.GetByNumber(ctx, cmd.ProjectUUID, cmd.Number)
}

func (s *Service) doListTasks(ctx context.Context, actor string, cmd ListTasksCommand) ([]*Task, error) {
	return s.store.List(ctx, cmd.ProjectUUID, cmd.Assignee)
}

func (s *Service) doUpdateTask(ctx context.Context, actor string, cmd UpdateTaskCommand) (*Task, error) {
	if cmd.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}
	if !cmd.Status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, cmd.Status)
	}

	if err := s.validateAssignee(ctx, cmd.ProjectUUID, cmd.Assignee); err != nil {
		return nil, err
	}

	task := &Task{
		ProjectUUID: cmd.ProjectUUID,
		Number:      cmd.Number,
		Title:       cmd.Title,
		Description: cmd.Description,
		Status:      cmd.Status,
		Assignee:    cmd.Assignee,
	}

	if err := s.store.Update(ctx, task); err != nil {
		return nil, err
	}

	return s.store.GetByNumber(ctx, cmd.ProjectUUID, cmd.Number)
}

func (s *Service) doDeleteTask(ctx context.Context, actor string, cmd DeleteTaskCommand) (struct{}, error) {
	return struct{}{}, s.store.Delete(ctx, cmd.ProjectUUID, cmd.Number)
}

// validateAssignee checks that a non-empty assignee exists in the directory
// and is a member of the project.
func (s *Service) validateAssignee(ctx context.Context, projectUUID uuid.UUID, assignee string) error {
	if assignee == "" {
		return nil
	}

	if _, err := s.directory.FetchByUsername(ctx, assignee); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return fmt.Errorf("%w: %s", ErrAssigneeNotFound, assignee)
		}
		return err
	}

	_, member, err := s.checker.RoleOf(ctx, projectUUID, assignee)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: %s", ErrAssigneeHasNoAccess, assignee)
	}

	return nil
}
