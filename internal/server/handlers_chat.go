package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/normanking/taskdeck/internal/brain"
	"github.com/normanking/taskdeck/internal/chat"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := s.chat.Send(r.Context(), userID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMessageTooLong) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Model errors normally resolve to fallback text inside the
		// loop; anything that still escapes is classified here so the
		// client sees a retry signal rather than a blank 500.
		switch brain.Classify(err) {
		case brain.KindRateLimited:
			s.log.Warn("chat rate limited", "user_id", userID, "error", err)
			writeError(w, http.StatusTooManyRequests, "The AI service is busy. Please try again in a moment.")
		case brain.KindAuthentication:
			s.log.Error("chat model misconfigured", "user_id", userID, "error", err)
			writeError(w, http.StatusServiceUnavailable, "AI service configuration error. Please contact support.")
		default:
			s.log.Error("chat failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		}
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) conversationsHandler(w http.ResponseWriter, r *http.Request, userID string) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	history, err := s.chat.FullHistory(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("history load failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, history)
}
