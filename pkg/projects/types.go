package projects

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
)

// Project is a tracked project. The UUID is the public identifier; the
// numeric row id never leaves the storage layer.
type Project struct {
	UUID        uuid.UUID `json:"uuid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member is a user's membership in a project
type Member struct {
	Username string     `json:"username"`
	Role     authz.Role `json:"role"`
	AddedAt  time.Time  `json:"added_at"`
}

var (
	// ErrMemberNotFound indicates the target user has no membership in the project
	ErrMemberNotFound = errors.New("member not found")
	// ErrInvalidRole indicates an unknown role name
	ErrInvalidRole = errors.New("invalid role")
)

// CreateProjectCommand creates a new project owned by the caller
type CreateProjectCommand struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GetProjectCommand fetches a single project
type GetProjectCommand struct {
	ProjectUUID uuid.UUID
}

// UpdateProjectCommand changes a project's title and description
type UpdateProjectCommand struct {
	ProjectUUID uuid.UUID `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// DeleteProjectCommand removes a project and everything under it
type DeleteProjectCommand struct {
	ProjectUUID uuid.UUID
}

// ListMembersCommand lists a project's members
type ListMembersCommand struct {
	ProjectUUID uuid.UUID
}

// ChangeUserRoleCommand changes an existing member's role
type ChangeUserRoleCommand struct {
	ProjectUUID uuid.UUID  `json:"-"`
	Username    string     `json:"username"`
	Role        authz.Role `json:"role"`
}
