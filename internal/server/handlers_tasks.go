package server

import (
	"net/http"

	"github.com/normanking/taskdeck/internal/task"
)

type taskRequest struct {
	Title string `json:"title"`
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request, userID string) {
	includeCompleted := r.URL.Query().Get("include_completed") != "false"

	result, err := s.tasks.List(r.Context(), userID, includeCompleted)
	if err != nil {
		s.taskError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) addTaskHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req taskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.tasks.Add(r.Context(), userID, req.Title)
	if err != nil {
		s.taskError(w, "add", err)
		return
	}
	writeJSON(w, taskStatus(result, http.StatusCreated), result)
}

func (s *Server) completeTaskHandler(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := s.tasks.Complete(r.Context(), userID, r.PathValue("task_id"))
	if err != nil {
		s.taskError(w, "complete", err)
		return
	}
	writeJSON(w, taskStatus(result, http.StatusOK), result)
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req taskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.tasks.Update(r.Context(), userID, r.PathValue("task_id"), req.Title)
	if err != nil {
		s.taskError(w, "update", err)
		return
	}
	writeJSON(w, taskStatus(result, http.StatusOK), result)
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := s.tasks.Delete(r.Context(), userID, r.PathValue("task_id"))
	if err != nil {
		s.taskError(w, "delete", err)
		return
	}
	writeJSON(w, taskStatus(result, http.StatusOK), result)
}

// taskStatus maps a repository envelope onto an HTTP status. Failed
// envelopes keep their message in the body; "Task not found" becomes
// 404 and validation failures 400.
func taskStatus(result task.Result, success int) int {
	if result.Success {
		return success
	}
	if result.Message == "Task not found" {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (s *Server) taskError(w http.ResponseWriter, op string, err error) {
	s.log.Error("task operation failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}
