package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/benjamin/pkg/authz"
	"github.com/platinummonkey/benjamin/pkg/config"
	"github.com/platinummonkey/benjamin/pkg/httputil"
	"github.com/platinummonkey/benjamin/pkg/invitations"
	"github.com/platinummonkey/benjamin/pkg/middleware"
	"github.com/platinummonkey/benjamin/pkg/observability"
	"github.com/platinummonkey/benjamin/pkg/projects"
	"github.com/platinummonkey/benjamin/pkg/tasks"
	"github.com/platinummonkey/benjamin/pkg/users"
)

// ProjectService is the project operations surface the handlers use
type ProjectService interface {
	CreateProject(ctx context.Context, actor string, cmd projects.CreateProjectCommand) (*projects.Project, error)
	ListProjects(ctx context.Context, actor string) ([]*projects.Project, error)
	GetProject(ctx context.Context, actor string, cmd projects.GetProjectCommand) (*projects.Project, error)
	UpdateProject(ctx context.Context, actor string, cmd projects.UpdateProjectCommand) (*projects.Project, error)
	DeleteProject(ctx context.Context, actor string, cmd projects.DeleteProjectCommand) error
	ListMembers(ctx context.Context, actor string, cmd projects.ListMembersCommand) ([]*projects.Member, error)
	ChangeUserRole(ctx context.Context, actor string, cmd projects.ChangeUserRoleCommand) (*projects.Member, error)
}

// TaskService is the task operations surface the handlers use
type TaskService interface {
	CreateTask(ctx context.Context, actor string, cmd tasks.CreateTaskCommand) (*tasks.Task, error)
	GetTask(ctx context.Context, actor string, cmd tasks.GetTaskCommand) (*tasks.Task, error)
	ListTasks(ctx context.Context, actor string, cmd tasks.ListTasksCommand) ([]*tasks.Task, error)
	UpdateTask(ctx context.Context, actor string, cmd tasks.UpdateTaskCommand) (*tasks.Task, error)
	DeleteTask(ctx context.Context, actor string, cmd tasks.DeleteTaskCommand) error
}

// InvitationService is the invitation operations surface the handlers use
type InvitationService interface {
	Invite(ctx context.Context, actor string, cmd invitations.InviteCommand) (*invitations.Invitation, error)
	Join(ctx context.Context, actor string, cmd invitations.JoinCommand) (*invitations.Invitation, error)
}

// Server is the public HTTP server
type Server struct {
	cfg        config.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	logger     *observability.Logger

	projectService    ProjectService
	taskService       TaskService
	invitationService InvitationService
}

// NewServer creates the public HTTP server and wires its routes
func NewServer(
	cfg config.ServerConfig,
	auth *middleware.AuthMiddleware,
	logger *observability.Logger,
	metrics *observability.Metrics,
	projectService ProjectService,
	taskService TaskService,
	invitationService InvitationService,
) *Server {
	s := &Server{
		cfg:               cfg,
		router:            mux.NewRouter(),
		logger:            logger,
		projectService:    projectService,
		taskService:       taskService,
		invitationService: invitationService,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logging(logger))
	if metrics != nil {
		s.router.Use(middleware.Metrics(metrics))
	}
	s.router.Use(auth.Handler)

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	s.router.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{uuid}", s.handleGetProject).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{uuid}", s.handleUpdateProject).Methods(http.MethodPut)
	s.router.HandleFunc("/projects/{uuid}", s.handleDeleteProject).Methods(http.MethodDelete)

	s.router.HandleFunc("/projects/{uuid}/members", s.handleListMembers).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{uuid}/members/{username}", s.handleChangeUserRole).Methods(http.MethodPut)

	s.router.HandleFunc("/projects/{uuid}/tasks", s.handleCreateTask).Methods(http.MethodPost)
	s.router.HandleFunc("/projects/{uuid}/tasks", s.handleListTasks).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{uuid}/tasks/{number}", s.handleGetTask).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{uuid}/tasks/{number}", s.handleUpdateTask).Methods(http.MethodPut)
	s.router.HandleFunc("/projects/{uuid}/tasks/{number}", s.handleDeleteTask).Methods(http.MethodDelete)

	s.router.HandleFunc("/projects/{uuid}/invitations", s.handleInvite).Methods(http.MethodPost)
	s.router.HandleFunc("/invitation/join/{token}", s.handleJoin).Methods(http.MethodPost)
}

// Router returns the configured router, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving requests and blocks until shutdown
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeServiceError maps service errors to HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrProjectNotFound),
		errors.Is(err, tasks.ErrTaskNotFound),
		errors.Is(err, projects.ErrMemberNotFound),
		errors.Is(err, tasks.ErrAssigneeNotFound),
		errors.Is(err, invitations.ErrReceiverNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, invitations.ErrInvitationNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, authz.ErrAccessDenied):
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, invitations.ErrAlreadyHasAccess),
		errors.Is(err, tasks.ErrAssigneeHasNoAccess):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, invitations.ErrInvitationExpired):
		httputil.WriteGone(w, err.Error())
	case errors.Is(err, projects.ErrInvalidRole),
		errors.Is(err, tasks.ErrInvalidStatus):
		httputil.WriteBadRequest(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}
