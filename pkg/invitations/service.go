package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
	"github.com/platinummonkey/benjamin/pkg/observability"
	"github.com/platinummonkey/benjamin/pkg/projects"
	"github.com/platinummonkey/benjamin/pkg/users"
)

// ProjectSource resolves project details for invitation messages.
// Satisfied by *projects.Store.
type ProjectSource interface {
	GetByUUID(ctx context.Context, projectUUID uuid.UUID) (*projects.Project, error)
}

// Config holds invitation workflow settings
type Config struct {
	// TTL is the token validity window
	TTL time.Duration
	// PublicBaseURL is the prefix of generated join links
	PublicBaseURL string
}

// Service implements the invitation workflow
type Service struct {
	store     *Store
	checker   *authz.Checker
	directory users.Directory
	projects  ProjectSource
	cache     projects.RoleInvalidator
	logger    *observability.Logger
	metrics   *observability.Metrics
	cfg       Config

	invite authz.Operation[InviteCommand, *Invitation]
}

// NewService creates an invitation service. cache and metrics may be nil.
func NewService(
	store *Store,
	guard *authz.Guard,
	directory users.Directory,
	projectSource ProjectSource,
	cache projects.RoleInvalidator,
	logger *observability.Logger,
	metrics *observability.Metrics,
	cfg Config,
) *Service {
	s := &Service{
		store:     store,
		checker:   guard.Checker(),
		directory: directory,
		projects:  projectSource,
		cache:     cache,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}

	s.invite = authz.Guarded(guard, authz.CheckSpec[InviteCommand]{
		ProjectUUID: func(c InviteCommand) uuid.UUID { return c.ProjectUUID },
		Authority:   authz.AuthorityInvite,
	}, s.doInvite)

	return s
}

// Invite issues a single-use expiring token for the receiver and stages the
// notification event transactionally.
func (s *Service) Invite(ctx context.Context, actor string, cmd InviteCommand) (*Invitation, error) {
	invitation, err := s.invite(ctx, actor, cmd)
	s.observeInvite(err)
	return invitation, err
}

func (s *Service) doInvite(ctx context.Context, actor string, cmd InviteCommand) (*Invitation, error) {
	if !cmd.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", projects.ErrInvalidRole, cmd.Role)
	}

	receiver, err := s.directory.FetchByUsername(ctx, cmd.Receiver)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReceiverNotFound, cmd.Receiver)
		}
		return nil, err
	}

	_, member, err := s.checker.RoleOf(ctx, cmd.ProjectUUID, cmd.Receiver)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyHasAccess, cmd.Receiver)
	}

	project, err := s.projects.GetByUUID(ctx, cmd.ProjectUUID)
	if err != nil {
		return nil, err
	}

	invitation := &Invitation{
		UUID:        uuid.New(),
		ProjectUUID: cmd.ProjectUUID,
		Sender:      actor,
		Receiver:    cmd.Receiver,
		Role:        cmd.Role,
		ExpiresAt:   time.Now().Add(s.cfg.TTL),
	}

	event := &OutboxEvent{
		EventID:       uuid.New(),
		ReceiverEmail: receiver.Email,
		Topic:         fmt.Sprintf("Invitation to project %s", project.Title),
		Message:       s.buildMessage(receiver, actor, project.Title, invitation.UUID),
	}

	if err := s.store.CreateWithEvent(ctx, invitation, event); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"project":  cmd.ProjectUUID.String(),
		"sender":   actor,
		"receiver": cmd.Receiver,
	}).Info("invitation created")

	return invitation, nil
}

// Join redeems a token on behalf of the caller. Access is decided by the
// token itself, not by membership, so no guard applies.
func (s *Service) Join(ctx context.Context, actor string, cmd JoinCommand) (*Invitation, error) {
	invitation, err := s.store.Redeem(ctx, cmd.Token, actor)
	s.observeJoin(err)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.Invalidate(ctx, invitation.ProjectUUID, actor); cacheErr != nil {
			s.logger.WithError(cacheErr).Warn("failed to invalidate role cache entry")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"project":  invitation.ProjectUUID.String(),
		"username": actor,
	}).Info("invitation redeemed")

	return invitation, nil
}

func (s *Service) buildMessage(receiver *users.User, sender, projectTitle string, token uuid.UUID) string {
	return fmt.Sprintf(
		"Dear %s. %s invites you to %s project. If you want to join follow the link %s/invitation/join/%s",
		receiver.FirstName, sender, projectTitle, s.cfg.PublicBaseURL, token,
	)
}

func (s *Service) observeInvite(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.InvitationsTotal.WithLabelValues(inviteResult(err)).Inc()
}

func (s *Service) observeJoin(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.JoinsTotal.WithLabelValues(joinResult(err)).Inc()
}

func inviteResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, authz.ErrProjectNotFound):
		return "project_not_found"
	case errors.Is(err, authz.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrReceiverNotFound):
		return "receiver_not_found"
	case errors.Is(err, ErrAlreadyHasAccess):
		return "already_has_access"
	default:
		return "error"
	}
}

func joinResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvitationNotFound):
		return "not_found"
	case errors.Is(err, ErrInvitationExpired):
		return "expired"
	case errors.Is(err, authz.ErrAccessDenied):
		return "access_denied"
	default:
		return "error"
	}
}
