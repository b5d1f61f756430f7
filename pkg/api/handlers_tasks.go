package api

import (
	"net/http"

	"github.com/platinummonkey/benjamin/pkg/httputil"
	"github.com/platinummonkey/benjamin/pkg/middleware"
	"github.com/platinummonkey/benjamin/pkg/tasks"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}

	var cmd tasks.CreateTaskCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if !httputil.RequireNonEmpty(w, cmd.Title, "title") {
		return
	}
	cmd.ProjectUUID = projectUUID

	task, err := s.taskService.CreateTask(r.Context(), middleware.Username(r), cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}

	list, err := s.taskService.ListTasks(r.Context(), middleware.Username(r),
		tasks.ListTasksCommand{
			ProjectUUID: projectUUID,
			Assignee:    r.URL.Query().Get("assignee"),
		})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []*tasks.Task{}
	}

	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}
	number, ok := httputil.ParsePathInt64OrError(w, r, "number")
	if !ok {
		return
	}

	task, err := s.taskService.GetTask(r.Context(), middleware.Username(r),
		tasks.GetTaskCommand{ProjectUUID: projectUUID, Number: number})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}
	number, ok := httputil.ParsePathInt64OrError(w, r, "number")
	if !ok {
		return
	}

	var cmd tasks.UpdateTaskCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if !httputil.RequireNonEmpty(w, cmd.Title, "title") {
		return
	}
	cmd.ProjectUUID = projectUUID
	cmd.Number = number

	task, err := s.taskService.UpdateTask(r.Context(), middleware.Username(r), cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}
	number, ok := httputil.ParsePathInt64OrError(w, r, "number")
	if !ok {
		return
	}

	err := s.taskService.DeleteTask(r.Context(), middleware.Username(r),
		tasks.DeleteTaskCommand{ProjectUUID: projectUUID, Number: number})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
