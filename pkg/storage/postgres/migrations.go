package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create projects table",
			SQL: `
				CREATE TABLE IF NOT EXISTS projects (
					id BIGSERIAL PRIMARY KEY,
					uuid UUID NOT NULL UNIQUE,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					author VARCHAR(255) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_projects_author ON projects(author);
			`,
		},
		{
			Version:     2,
			Description: "Create project_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS project_members (
					id BIGSERIAL PRIMARY KEY,
					project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					username VARCHAR(255) NOT NULL,
					role VARCHAR(32) NOT NULL,
					added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(project_id, username)
				);

				CREATE INDEX idx_project_members_username ON project_members(username);
			`,
		},
		{
			Version:     3,
			Description: "Create tasks table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tasks (
					id BIGSERIAL PRIMARY KEY,
					project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					number BIGINT NOT NULL,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status VARCHAR(32) NOT NULL DEFAULT 'created',
					author VARCHAR(255) NOT NULL,
					assignee VARCHAR(255),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(project_id, number)
				);

				CREATE INDEX idx_tasks_assignee ON tasks(assignee);
			`,
		},
		{
			Version:     4,
			Description: "Create invitations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS invitations (
					id BIGSERIAL PRIMARY KEY,
					uuid UUID NOT NULL UNIQUE,
					project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					sender VARCHAR(255) NOT NULL,
					receiver VARCHAR(255) NOT NULL,
					role VARCHAR(32) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMPTZ NOT NULL,
					accepted_at TIMESTAMPTZ
				);

				CREATE UNIQUE INDEX idx_invitations_pending
					ON invitations(project_id, receiver) WHERE accepted_at IS NULL;
				CREATE INDEX idx_invitations_receiver ON invitations(receiver);
			`,
		},
		{
			Version:     5,
			Description: "Create invitation_events outbox table",
			SQL: `
				CREATE TABLE IF NOT EXISTS invitation_events (
					id BIGSERIAL PRIMARY KEY,
					event_id UUID NOT NULL UNIQUE,
					receiver_email VARCHAR(255) NOT NULL,
					topic VARCHAR(255) NOT NULL,
					message TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
