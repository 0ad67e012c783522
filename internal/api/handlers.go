package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/appointment-assistant/internal/assistant"
	"github.com/hackgods/appointment-assistant/internal/directory"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

type chatHandler struct {
	dir       *directory.Directory
	sessions  *assistant.SessionStore
	assistant Turner
	logger    *logging.Logger
	pongWait  time.Duration
}

func (h *chatHandler) listDoctors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dir.ListDoctors())
}

func (h *chatHandler) createSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	writeJSON(w, http.StatusCreated, SessionResponse{
		ID:        sess.ID,
		Stage:     string(sess.Stage()),
		CreatedAt: sess.CreatedAt,
	})
}

func (h *chatHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session_not_found", "no such session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *chatHandler) transcript(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TranscriptResponse{
		SessionID: sess.ID,
		Stage:     string(sess.Stage()),
		Fields:    sess.Fields(),
		Pairs:     sess.Transcript().Pairs(),
	})
}

// sendMessage streams the reply as chunked text/plain. Clients that ask for
// application/json get the finished reply with its sink outcomes instead.
func (h *chatHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty_message", "text is required")
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		reply, err := h.assistant.Handle(r.Context(), sess, req.Text, nil)
		if err != nil {
			h.handleTurnError(w, sess.ID, err)
			return
		}
		writeJSON(w, http.StatusOK, newReplyResponse(sess.ID, reply))
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Trailer", "X-Reply-Kind, X-Reply-Stage")
	w.WriteHeader(http.StatusOK)

	reply, err := h.assistant.Handle(r.Context(), sess, req.Text, func(tok string) {
		if _, werr := w.Write([]byte(tok)); werr != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil {
		h.logger.Warn("turn failed mid-stream", "session_id", sess.ID, "error", err)
		return
	}
	w.Header().Set("X-Reply-Kind", string(reply.Kind))
	w.Header().Set("X-Reply-Stage", string(reply.Stage))
}

func (h *chatHandler) session(w http.ResponseWriter, r *http.Request) (*assistant.Session, bool) {
	sess, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "no such session")
		return nil, false
	}
	return sess, true
}

func (h *chatHandler) handleTurnError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message", err.Error())
	default:
		h.logger.Error("turn failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
