package invitations

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
)

// Invitation is a pending or redeemed invite. The UUID doubles as the
// single-use join token; Role is the role granted on redemption.
type Invitation struct {
	UUID        uuid.UUID  `json:"uuid"`
	ProjectUUID uuid.UUID  `json:"project_uuid"`
	Sender      string     `json:"sender"`
	Receiver    string     `json:"receiver"`
	Role        authz.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
}

// OutboxEvent is a staged notification awaiting bus delivery. It is written
// in the same transaction as the invitation and deleted only after the bus
// accepts it, giving at-least-once delivery. Topic is the per-invitation
// message subject, not the bus destination.
type OutboxEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	ReceiverEmail string    `json:"receiver_email"`
	Topic         string    `json:"topic"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"-"`
}

var (
	// ErrReceiverNotFound indicates the invited user does not exist in the directory
	ErrReceiverNotFound = errors.New("receiver not found")
	// ErrAlreadyHasAccess indicates the invited user is already a project member
	ErrAlreadyHasAccess = errors.New("receiver already has access")
	// ErrInvitationNotFound indicates an unknown or already consumed token
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvitationExpired indicates the token's validity window has passed
	ErrInvitationExpired = errors.New("invitation expired")
)

// InviteCommand invites a user to a project with the role they will hold
// once they join
type InviteCommand struct {
	ProjectUUID uuid.UUID  `json:"-"`
	Receiver    string     `json:"username"`
	Role        authz.Role `json:"role"`
}

// JoinCommand redeems an invitation token
type JoinCommand struct {
	Token uuid.UUID
}
