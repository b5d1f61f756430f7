package api

import (
	"net/http"

	"github.com/platinummonkey/benjamin/pkg/authz"
	"github.com/platinummonkey/benjamin/pkg/httputil"
	"github.com/platinummonkey/benjamin/pkg/middleware"
	"github.com/platinummonkey/benjamin/pkg/projects"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var cmd projects.CreateProjectCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if !httputil.RequireNonEmpty(w, cmd.Title, "title") {
		return
	}

	project, err := s.projectService.CreateProject(r.Context(), middleware.Username(r), cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.projectService.ListProjects(r.Context(), middleware.Username(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []*projects.Project{}
	}

	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}

	project, err := s.projectService.GetProject(r.Context(), middleware.Username(r),
		projects.GetProjectCommand{ProjectUUID: projectUUID})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}

	var cmd projects.UpdateProjectCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if !httputil.RequireNonEmpty(w, cmd.Title, "title") {
		return
	}
	cmd.ProjectUUID = projectUUID

	project, err := s.projectService.UpdateProject(r.Context(), middleware.Username(r), cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}

	err := s.projectService.DeleteProject(r.Context(), middleware.Username(r),
		projects.DeleteProjectCommand{ProjectUUID: projectUUID})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}

	members, err := s.projectService.ListMembers(r.Context(), middleware.Username(r),
		projects.ListMembersCommand{ProjectUUID: projectUUID})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if members == nil {
		members = []*projects.Member{}
	}

	httputil.WriteSuccess(w, members)
}

func (s *Server) handleChangeUserRole(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}
	username := httputil.GetPathVar(r, "username")
	if !httputil.RequireNonEmpty(w, username, "username") {
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}
	if !httputil.RequireNonEmpty(w, body.Role, "role") {
		return
	}

	member, err := s.projectService.ChangeUserRole(r.Context(), middleware.Username(r),
		projects.ChangeUserRoleCommand{
			ProjectUUID: projectUUID,
			Username:    username,
			Role:        authz.Role(body.Role),
		})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, member)
}
