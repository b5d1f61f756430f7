package invitations

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/authz"
	"github.com/platinummonkey/benjamin/pkg/observability"
	"github.com/platinummonkey/benjamin/pkg/projects"
	"github.com/platinummonkey/benjamin/pkg/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembers struct {
	roles map[uuid.UUID]map[string]authz.Role
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{roles: make(map[uuid.UUID]map[string]authz.Role)}
}

func (f *fakeMembers) add(project uuid.UUID, username string, role authz.Role) {
	if _, ok := f.roles[project]; !ok {
		f.roles[project] = make(map[string]authz.Role)
	}
	f.roles[project][username] = role
}

func (f *fakeMembers) RoleOf(ctx context.Context, project uuid.UUID, username string) (authz.Role, bool, error) {
	role, ok := f.roles[project][username]
	return role, ok, nil
}

func (f *fakeMembers) ProjectExists(ctx context.Context, project uuid.UUID) (bool, error) {
	_, ok := f.roles[project]
	return ok, nil
}

type fakeDirectory struct {
	known map[string]*users.User
}

func (f *fakeDirectory) FetchByUsername(ctx context.Context, username string) (*users.User, error) {
	if user, ok := f.known[username]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("%w: %s", users.ErrUserNotFound, username)
}

type fakeProjects struct {
	titles map[uuid.UUID]string
}

func (f *fakeProjects) GetByUUID(ctx context.Context, projectUUID uuid.UUID) (*projects.Project, error) {
	title, ok := f.titles[projectUUID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", authz.ErrProjectNotFound, projectUUID)
	}
	return &projects.Project{UUID: projectUUID, Title: title}, nil
}

type fakeInvalidator struct {
	invalidated []string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, project uuid.UUID, username string) error {
	f.invalidated = append(f.invalidated, fmt.Sprintf("%s:%s", project, username))
	return nil
}

func (f *fakeInvalidator) InvalidateProject(ctx context.Context, project uuid.UUID) error {
	return nil
}

type serviceFixture struct {
	svc     *Service
	mock    sqlmock.Sqlmock
	metrics *observability.Metrics
	cache   *fakeInvalidator
}

func newServiceFixture(t *testing.T, members *fakeMembers, directory *fakeDirectory, projectSource *fakeProjects) *serviceFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	guard := authz.NewGuard(authz.NewChecker(members), logger, nil)
	cache := &fakeInvalidator{}

	svc := NewService(NewStore(db), guard, directory, projectSource, cache, logger, metrics, Config{
		TTL:           40 * time.Minute,
		PublicBaseURL: "https://tracker.example.com",
	})
	return &serviceFixture{svc: svc, mock: mock, metrics: metrics, cache: cache}
}

func TestServiceInvite(t *testing.T) {
	project := uuid.New()
	members := newFakeMembers()
	members.add(project, "alice", authz.RoleOwner)
	directory := &fakeDirectory{known: map[string]*users.User{
		"bob": {Username: "bob", FirstName: "Bob", Email: "bob@example.com"},
	}}
	projectSource := &fakeProjects{titles: map[uuid.UUID]string{project: "backend"}}
	f := newServiceFixture(t, members, directory, projectSource)
	ctx := context.Background()

	f.mock.ExpectBegin()
	f.mock.ExpectQuery("INSERT INTO invitations").
		WithArgs(project, sqlmock.AnyArg(), "alice", "bob", authz.RoleAdmin, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	f.mock.ExpectExec("INSERT INTO invitation_events").
		WithArgs(sqlmock.AnyArg(), "bob@example.com", "Invitation to project backend", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectCommit()

	invitation, err := f.svc.Invite(ctx, "alice",
		InviteCommand{ProjectUUID: project, Receiver: "bob", Role: authz.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "alice", invitation.Sender)
	assert.Equal(t, "bob", invitation.Receiver)
	assert.Equal(t, authz.RoleAdmin, invitation.Role)
	assert.NotEqual(t, uuid.Nil, invitation.UUID)
	assert.WithinDuration(t, time.Now().Add(40*time.Minute), invitation.ExpiresAt, time.Minute)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(f.metrics.InvitationsTotal.WithLabelValues("success")))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestServiceInviteFailures(t *testing.T) {
	project := uuid.New()
	members := newFakeMembers()
	members.add(project, "alice", authz.RoleOwner)
	members.add(project, "carol", authz.RoleUser)
	directory := &fakeDirectory{known: map[string]*users.User{
		"bob":   {Username: "bob", Email: "bob@example.com"},
		"carol": {Username: "carol", Email: "carol@example.com"},
	}}
	projectSource := &fakeProjects{titles: map[uuid.UUID]string{project: "backend"}}
	f := newServiceFixture(t, members, directory, projectSource)
	ctx := context.Background()

	t.Run("receiver not in directory", func(t *testing.T) {
		_, err := f.svc.Invite(ctx, "alice",
			InviteCommand{ProjectUUID: project, Receiver: "ghost", Role: authz.RoleUser})
		assert.ErrorIs(t, err, ErrReceiverNotFound)
		assert.Equal(t, float64(1),
			testutil.ToFloat64(f.metrics.InvitationsTotal.WithLabelValues("receiver_not_found")))
	})

	t.Run("receiver already a member", func(t *testing.T) {
		_, err := f.svc.Invite(ctx, "alice",
			InviteCommand{ProjectUUID: project, Receiver: "carol", Role: authz.RoleUser})
		assert.ErrorIs(t, err, ErrAlreadyHasAccess)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := f.svc.Invite(ctx, "alice",
			InviteCommand{ProjectUUID: project, Receiver: "bob", Role: "superuser"})
		assert.ErrorIs(t, err, projects.ErrInvalidRole)
	})

	t.Run("sender lacks invite authority", func(t *testing.T) {
		_, err := f.svc.Invite(ctx, "carol",
			InviteCommand{ProjectUUID: project, Receiver: "bob", Role: authz.RoleUser})
		assert.ErrorIs(t, err, authz.ErrAccessDenied)
		assert.Equal(t, float64(1),
			testutil.ToFloat64(f.metrics.InvitationsTotal.WithLabelValues("access_denied")))
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := f.svc.Invite(ctx, "alice",
			InviteCommand{ProjectUUID: uuid.New(), Receiver: "bob", Role: authz.RoleUser})
		assert.ErrorIs(t, err, authz.ErrProjectNotFound)
	})

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestServiceJoin(t *testing.T) {
	project := uuid.New()
	f := newServiceFixture(t, newFakeMembers(), &fakeDirectory{}, &fakeProjects{})
	ctx := context.Background()
	token := uuid.New()

	now := time.Now()
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("SELECT i.id, i.project_id").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(redeemColumns()).
			AddRow(int64(5), int64(9), project, "alice", "bob", "user", now, now.Add(time.Hour), nil))
	f.mock.ExpectExec("INSERT INTO project_members").
		WithArgs(int64(9), "bob", authz.RoleUser).
		WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectQuery("UPDATE invitations SET accepted_at").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"accepted_at"}).AddRow(now))
	f.mock.ExpectCommit()

	invitation, err := f.svc.Join(ctx, "bob", JoinCommand{Token: token})
	require.NoError(t, err)
	assert.Equal(t, project, invitation.ProjectUUID)

	assert.Equal(t, []string{fmt.Sprintf("%s:%s", project, "bob")}, f.cache.invalidated)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(f.metrics.JoinsTotal.WithLabelValues("success")))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestServiceJoinExpired(t *testing.T) {
	f := newServiceFixture(t, newFakeMembers(), &fakeDirectory{}, &fakeProjects{})
	token := uuid.New()

	now := time.Now()
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("SELECT i.id, i.project_id").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(redeemColumns()).
			AddRow(int64(5), int64(9), uuid.New(), "alice", "bob", "user", now.Add(-2*time.Hour), now.Add(-time.Hour), nil))
	f.mock.ExpectRollback()

	_, err := f.svc.Join(context.Background(), "bob", JoinCommand{Token: token})
	assert.ErrorIs(t, err, ErrInvitationExpired)
	assert.Empty(t, f.cache.invalidated)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(f.metrics.JoinsTotal.WithLabelValues("expired")))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBuildMessage(t *testing.T) {
	f := newServiceFixture(t, newFakeMembers(), &fakeDirectory{}, &fakeProjects{})
	token := uuid.MustParse("7f6eebf0-1111-2222-3333-444455556666")

	msg := f.svc.buildMessage(&users.User{FirstName: "Bob"}, "alice", "backend", token)
	assert.Equal(t,
		"Dear Bob. alice invites you to backend project. "+
			"If you want to join follow the link https://tracker.example.com/invitation/join/7f6eebf0-1111-2222-3333-444455556666",
		msg)
}
