package httpserver

import (
	"errors"
	"net/http"

	authdomain "todo/backend/internal/domain/auth"
	taskdomain "todo/backend/internal/domain/task"
	taskusecase "todo/backend/internal/usecase/task"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	identity, ok := authdomain.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := s.taskService.List(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := authdomain.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input taskusecase.CreateInput
	if !decodeJSON(w, r, &input) {
		return
	}

	task, err := s.taskService.Create(r.Context(), identity.UserID, input)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := authdomain.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	task, err := s.taskService.Get(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := authdomain.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input taskusecase.UpdateInput
	if !decodeJSON(w, r, &input) {
		return
	}

	task, err := s.taskService.Update(r.Context(), identity.UserID, chi.URLParam(r, "id"), input)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := authdomain.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.taskService.Delete(r.Context(), identity.UserID, chi.URLParam(r, "id")); err != nil {
		writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Task deleted"})
}

func writeTaskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, taskdomain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, taskdomain.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeInternal(w, r, err)
	}
}
