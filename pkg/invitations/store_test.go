package invitations

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStoreCreateWithEvent(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	invitation := &Invitation{
		UUID:        uuid.New(),
		ProjectUUID: uuid.New(),
		Sender:      "alice",
		Receiver:    "bob",
		Role:        authz.RoleAdmin,
		ExpiresAt:   time.Now().Add(40 * time.Minute),
	}
	event := &OutboxEvent{
		EventID:       uuid.New(),
		ReceiverEmail: "bob@example.com",
		Topic:         "Invitation to project Apollo",
		Message:       "you are invited",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO invitations").
		WithArgs(invitation.ProjectUUID, invitation.UUID, "alice", "bob", authz.RoleAdmin, invitation.ExpiresAt).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO invitation_events").
		WithArgs(event.EventID, "bob@example.com", "Invitation to project Apollo", "you are invited").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.CreateWithEvent(ctx, invitation, event)
	require.NoError(t, err)
	assert.False(t, invitation.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateWithEventMissingProject(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	invitation := &Invitation{UUID: uuid.New(), ProjectUUID: uuid.New(), Receiver: "bob"}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO invitations").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectRollback()

	err := store.CreateWithEvent(ctx, invitation, &OutboxEvent{EventID: uuid.New()})
	assert.ErrorIs(t, err, authz.ErrProjectNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func redeemColumns() []string {
	return []string{"id", "project_id", "uuid", "sender", "receiver", "role", "created_at", "expires_at", "accepted_at"}
}

func TestStoreRedeem(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	token := uuid.New()
	projectUUID := uuid.New()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT i.id, i.project_id").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(redeemColumns()).
			AddRow(int64(5), int64(9), projectUUID, "alice", "bob", "user", now, now.Add(time.Hour), nil))
	mock.ExpectExec("INSERT INTO project_members").
		WithArgs(int64(9), "bob", authz.RoleUser).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("UPDATE invitations SET accepted_at").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"accepted_at"}).AddRow(now))
	mock.ExpectCommit()

	invitation, err := store.Redeem(ctx, token, "bob")
	require.NoError(t, err)
	assert.Equal(t, projectUUID, invitation.ProjectUUID)
	require.NotNil(t, invitation.AcceptedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRedeemGrantsInvitedRole(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	token := uuid.New()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT i.id, i.project_id").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(redeemColumns()).
			AddRow(int64(5), int64(9), uuid.New(), "alice", "bob", "admin", now, now.Add(time.Hour), nil))
	mock.ExpectExec("INSERT INTO project_members").
		WithArgs(int64(9), "bob", authz.RoleAdmin).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("UPDATE invitations SET accepted_at").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"accepted_at"}).AddRow(now))
	mock.ExpectCommit()

	invitation, err := store.Redeem(ctx, token, "bob")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, invitation.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRedeemUnknownToken(t *testing.T) {
	store, mock := newMockStore(t)
	token := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT i.id, i.project_id").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(redeemColumns()))
	mock.ExpectRollback()

	_, err := store.Redeem(context.Background(), token, "bob")
	assert.ErrorIs(t, err, ErrInvitationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRedeemConsumedToken(t *testing.T) {
	store, mock := newMockStore(t)
	token := uuid.New()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT i.id, i.project_id").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(redeemColumns()).
			AddRow(int64(5), int64(9), uuid.New(), "alice", "bob", "user", now, now.Add(time.Hour), now))
	mock.ExpectRollback()

	_, err := store.Redeem(context.Background(), token, "bob")
	assert.ErrorIs(t, err, ErrInvitationNotFound, "a consumed token must look like a missing one")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRedeemWrongReceiver(t *testing.T) {
	store, mock := newMockStore(t)
	token := uuid.New()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT i.id, i.project_id").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(redeemColumns()).
			AddRow(int64(5), int64(9), uuid.New(), "alice", "bob", "user", now, now.Add(time.Hour), nil))
	mock.ExpectRollback()

	_, err := store.Redeem(context.Background(), token, "eve")
	assert.ErrorIs(t, err, authz.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRedeemExpiredToken(t *testing.T) {
	store, mock := newMockStore(t)
	token := uuid.New()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT i.id, i.project_id").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(redeemColumns()).
			AddRow(int64(5), int64(9), uuid.New(), "alice", "bob", "user", now.Add(-2*time.Hour), now.Add(-time.Hour), nil))
	mock.ExpectRollback()

	_, err := store.Redeem(context.Background(), token, "bob")
	assert.ErrorIs(t, err, ErrInvitationExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListEvents(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	now := time.Now()
	mock.ExpectQuery("SELECT event_id, receiver_email").
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows(
			[]string{"event_id", "receiver_email", "topic", "message", "created_at"}).
			AddRow(first, "a@example.com", "Invitation to project Apollo", "m1", now).
			AddRow(second, "b@example.com", "Invitation to project Apollo", "m2", now))

	events, err := store.ListEvents(ctx, 100)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first, events[0].EventID)
	assert.Equal(t, "b@example.com", events[1].ReceiverEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDeleteEvent(t *testing.T) {
	store, mock := newMockStore(t)
	eventID := uuid.New()

	mock.ExpectExec("DELETE FROM invitation_events").
		WithArgs(eventID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteEvent(context.Background(), eventID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
