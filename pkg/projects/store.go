package projects

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
)

// Store persists projects and memberships in PostgreSQL. It implements
// authz.MembershipSource so the access checker can resolve roles directly
// from the membership table.
type Store struct {
	db *sql.DB
}

// NewStore creates a project store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a project and its owner membership in one transaction.
// The creator always becomes the owner; a project without an owner cannot
// exist.
func (s *Store) Create(ctx context.Context, project *Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO projects (uuid, title, description, author)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, project.UUID, project.Title, project.Description, project.Author).
		Scan(&id, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO project_members (project_id, username, role)
		VALUES ($1, $2, $3)
	`, id, project.Author, authz.RoleOwner)
	if err != nil {
		return fmt.Errorf("failed to add owner membership: %w", err)
	}

	return tx.Commit()
}

// GetByUUID retrieves a project by its public identifier
func (s *Store) GetByUUID(ctx context.Context, projectUUID uuid.UUID) (*Project, error) {
	project := &Project{}
	err := s.db.QueryRowContext(ctx, `
		SELECT uuid, title, description, author, created_at, updated_at
		FROM projects
		WHERE uuid = $1
	`, projectUUID).Scan(
		&project.UUID, &project.Title, &project.Description,
		&project.Author, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", authz.ErrProjectNotFound, projectUUID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// Update changes a project's title and description
func (s *Store) Update(ctx context.Context, projectUUID uuid.UUID, title, description string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET title = $1, description = $2, updated_at = NOW()
		WHERE uuid = $3
	`, title, description, projectUUID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", authz.ErrProjectNotFound, projectUUID)
	}

	return nil
}

// Delete removes a project. Memberships, tasks and invitations go with it
// through ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, projectUUID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE uuid = $1`, projectUUID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", authz.ErrProjectNotFound, projectUUID)
	}

	return nil
}

// ListByUsername retrieves every project the user is a member of
func (s *Store) ListByUsername(ctx context.Context, username string) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.uuid, p.title, p.description, p.author, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.username = $1
		ORDER BY p.created_at ASC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var list []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(
			&project.UUID, &project.Title, &project.Description,
			&project.Author, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		list = append(list, project)
	}

	return list, rows.Err()
}

// ProjectExists reports whether a project with the given UUID exists
func (s *Store) ProjectExists(ctx context.Context, projectUUID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE uuid = $1)`, projectUUID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project existence: %w", err)
	}
	return exists, nil
}

// RoleOf returns the user's role in the project, if any
func (s *Store) RoleOf(ctx context.Context, projectUUID uuid.UUID, username string) (authz.Role, bool, error) {
	var role authz.Role
	err := s.db.QueryRowContext(ctx, `
		SELECT m.role
		FROM project_members m
		JOIN projects p ON p.id = m.project_id
		WHERE p.uuid = $1 AND m.username = $2
	`, projectUUID, username).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get role: %w", err)
	}

	return role, true, nil
}

// UpdateMemberRole changes an existing member's role
func (s *Store) UpdateMemberRole(ctx context.Context, projectUUID uuid.UUID, username string, role authz.Role) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE project_members m
		SET role = $1
		FROM projects p
		WHERE p.id = m.project_id AND p.uuid = $2 AND m.username = $3
	`, role, projectUUID, username)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// RemoveMember removes a user from a project
func (s *Store) RemoveMember(ctx context.Context, projectUUID uuid.UUID, username string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM project_members m
		USING projects p
		WHERE p.id = m.project_id AND p.uuid = $1 AND m.username = $2
	`, projectUUID, username)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// ListMembers retrieves all members of a project
func (s *Store) ListMembers(ctx context.Context, projectUUID uuid.UUID) ([]*Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.username, m.role, m.added_at
		FROM project_members m
		JOIN projects p ON p.id = m.project_id
		WHERE p.uuid = $1
		ORDER BY m.added_at ASC
	`, projectUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member := &Member{}
		if err := rows.Scan(&member.Username, &member.Role, &member.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}
