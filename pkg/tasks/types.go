package tasks

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is a task's workflow state
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether the status is a known workflow state
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work in a project, identified by the project UUID and a
// per-project sequential number.
type Task struct {
	ProjectUUID uuid.UUID `json:"project_uuid"`
	Number      int64     `json:"number"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Author      string    `json:"author"`
	Assignee    string    `json:"assignee,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	// ErrTaskNotFound indicates no task with that number exists in the project
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidStatus indicates an unknown workflow state
	ErrInvalidStatus = errors.New("invalid task status")
	// ErrAssigneeNotFound indicates the assignee does not exist in the user directory
	ErrAssigneeNotFound = errors.New("assignee not found")
	// ErrAssigneeHasNoAccess indicates the assignee is not a member of the project
	ErrAssigneeHasNoAccess = errors.New("assignee has no access to the project")
)

// CreateTaskCommand creates a task in a project
type CreateTaskCommand struct {
	ProjectUUID uuid.UUID `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Assignee    string    `json:"assignee,omitempty"`
}

// GetTaskCommand fetches a single task
type GetTaskCommand struct {
	ProjectUUID uuid.UUID
	Number      int64
}

// ListTasksCommand lists a project's tasks. A non-empty Assignee narrows
// the listing to tasks assigned to that user.
type ListTasksCommand struct {
	ProjectUUID uuid.UUID
	Assignee    string
}

// UpdateTaskCommand changes a task's fields
type UpdateTaskCommand struct {
	ProjectUUID uuid.UUID `json:"-"`
	Number      int64     `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Assignee    string    `json:"assignee,omitempty"`
}

// DeleteTaskCommand removes a task
type DeleteTaskCommand struct {
	ProjectUUID uuid.UUID
	Number      int64
}
