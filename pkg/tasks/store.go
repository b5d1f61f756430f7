package tasks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Store persists tasks in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a task store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a task, assigning the next free number in the project.
// UNIQUE(project_id, number) turns concurrent inserts into a conflict
// instead of duplicate numbers.
func (s *Store) Create(ctx context.Context, task *Task) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (project_id, number, title, description, status, author, assignee)
		SELECT p.id,
		       COALESCE((SELECT MAX(t.number) FROM tasks t WHERE t.project_id = p.id), 0) + 1,
		       $2, $3, $4, $5, NULLIF($6, '')
		FROM projects p
		WHERE p.uuid = $1
		RETURNING number, created_at, updated_at
	`, task.ProjectUUID, task.Title, task.Description, task.Status, task.Author, task.Assignee).
		Scan(&task.Number, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("project %s not found", task.ProjectUUID)
	}
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByNumber retrieves a task by project and number
func (s *Store) GetByNumber(ctx context.Context, projectUUID uuid.UUID, number int64) (*Task, error) {
	task := &Task{ProjectUUID: projectUUID}
	var assignee sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT t.number, t.title, t.description, t.status, t.author, t.assignee,
		       t.created_at, t.updated_at
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE p.uuid = $1 AND t.number = $2
	`, projectUUID, number).Scan(
		&task.Number, &task.Title, &task.Description, &task.Status,
		&task.Author, &assignee, &task.CreatedAt, &task.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%d", ErrTaskNotFound, projectUUID, number)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if assignee.Valid {
		task.Assignee = assignee.String
	}

	return task, nil
}

// List retrieves a project's tasks ordered by number, optionally narrowed
// to a single assignee.
func (s *Store) List(ctx context.Context, projectUUID uuid.UUID, assignee string) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.number, t.title, t.description, t.status, t.author, t.assignee,
		       t.created_at, t.updated_at
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE p.uuid = $1 AND ($2 = '' OR t.assignee = $2)
		ORDER BY t.number ASC
	`, projectUUID, assignee)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var list []*Task
	for rows.Next() {
		task := &Task{ProjectUUID: projectUUID}
		var assignee sql.NullString
		if err := rows.Scan(
			&task.Number, &task.Title, &task.Description, &task.Status,
			&task.Author, &assignee, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if assignee.Valid {
			task.Assignee = assignee.String
		}
		list = append(list, task)
	}

	return list, rows.Err()
}

// Update changes a task's fields
func (s *Store) Update(ctx context.Context, task *Task) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks t
		SET title = $1, description = $2, status = $3, assignee = NULLIF($4, ''),
		    updated_at = NOW()
		FROM projects p
		WHERE p.id = t.project_id AND p.uuid = $5 AND t.number = $6
	`, task.Title, task.Description, task.Status, task.Assignee, task.ProjectUUID, task.Number)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s/%d", ErrTaskNotFound, task.ProjectUUID, task.Number)
	}

	return nil
}

// Delete removes a task
func (s *Store) Delete(ctx context.Context, projectUUID uuid.UUID, number int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks t
		USING projects p
		WHERE p.id = t.project_id AND p.uuid = $1 AND t.number = $2
	`, projectUUID, number)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s/%d", ErrTaskNotFound, projectUUID, number)
	}

	return nil
}
