package invitations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
)

// Store persists invitations and the notification outbox in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates an invitation store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateWithEvent inserts the invitation and its outbox event in one
// transaction. Re-inviting a user with a pending invitation replaces the
// earlier token instead of stacking a second one.
func (s *Store) CreateWithEvent(ctx context.Context, invitation *Invitation, event *OutboxEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO invitations (uuid, project_id, sender, receiver, role, expires_at)
		SELECT $2, p.id, $3, $4, $5, $6
		FROM projects p
		WHERE p.uuid = $1
		ON CONFLICT (project_id, receiver) WHERE accepted_at IS NULL DO UPDATE
		SET uuid = EXCLUDED.uuid, sender = EXCLUDED.sender, role = EXCLUDED.role,
		    created_at = NOW(), expires_at = EXCLUDED.expires_at
		RETURNING created_at
	`, invitation.ProjectUUID, invitation.UUID, invitation.Sender,
		invitation.Receiver, invitation.Role, invitation.ExpiresAt).
		Scan(&invitation.CreatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", authz.ErrProjectNotFound, invitation.ProjectUUID)
	}
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invitation_events (event_id, receiver_email, topic, message)
		VALUES ($1, $2, $3, $4)
	`, event.EventID, event.ReceiverEmail, event.Topic, event.Message)
	if err != nil {
		return fmt.Errorf("failed to stage outbox event: %w", err)
	}

	return tx.Commit()
}

// Redeem consumes a token and grants membership to the caller. The row lock
// makes concurrent redemptions of the same token serialize; the second one
// sees accepted_at set and gets ErrInvitationNotFound.
func (s *Store) Redeem(ctx context.Context, token uuid.UUID, username string) (*Invitation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	invitation := &Invitation{UUID: token}
	var id, projectID int64
	var acceptedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT i.id, i.project_id, p.uuid, i.sender, i.receiver, i.role,
		       i.created_at, i.expires_at, i.accepted_at
		FROM invitations i
		JOIN projects p ON p.id = i.project_id
		WHERE i.uuid = $1
		FOR UPDATE OF i
	`, token).Scan(
		&id, &projectID, &invitation.ProjectUUID, &invitation.Sender,
		&invitation.Receiver, &invitation.Role, &invitation.CreatedAt,
		&invitation.ExpiresAt, &acceptedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrInvitationNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	// A consumed token is indistinguishable from a missing one
	if acceptedAt.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvitationNotFound, token)
	}

	if invitation.Receiver != username {
		return nil, fmt.Errorf("%w: invitation belongs to another user", authz.ErrAccessDenied)
	}

	if time.Now().After(invitation.ExpiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrInvitationExpired, token)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO project_members (project_id, username, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, username) DO NOTHING
	`, projectID, username, invitation.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	var accepted time.Time
	err = tx.QueryRowContext(ctx,
		`UPDATE invitations SET accepted_at = NOW() WHERE id = $1 RETURNING accepted_at`, id).
		Scan(&accepted)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	invitation.AcceptedAt = &accepted

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return invitation, nil
}

// GetByToken retrieves an invitation without consuming it
func (s *Store) GetByToken(ctx context.Context, token uuid.UUID) (*Invitation, error) {
	invitation := &Invitation{UUID: token}
	var acceptedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT p.uuid, i.sender, i.receiver, i.role, i.created_at, i.expires_at, i.accepted_at
		FROM invitations i
		JOIN projects p ON p.id = i.project_id
		WHERE i.uuid = $1
	`, token).Scan(
		&invitation.ProjectUUID, &invitation.Sender, &invitation.Receiver,
		&invitation.Role, &invitation.CreatedAt, &invitation.ExpiresAt, &acceptedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrInvitationNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	if acceptedAt.Valid {
		invitation.AcceptedAt = &acceptedAt.Time
	}

	return invitation, nil
}

// ListEvents retrieves staged outbox events oldest first
func (s *Store) ListEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, receiver_email, topic, message, created_at
		FROM invitation_events
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		event := &OutboxEvent{}
		if err := rows.Scan(
			&event.EventID, &event.ReceiverEmail, &event.Topic,
			&event.Message, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// DeleteEvent removes a delivered outbox event
func (s *Store) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM invitation_events WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete outbox event: %w", err)
	}
	return nil
}

// PendingEvents counts undelivered outbox events
func (s *Store) PendingEvents(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invitation_events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return count, nil
}
