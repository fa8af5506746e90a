package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs/internal/assistant"
	"github.com/askdocs/askdocs/internal/session"
)

// maxRequestBody caps the request body size. Questions are short; anything
// larger is abuse.
const maxRequestBody = 64 << 10

// queryHandler serves the query and session endpoints.
type queryHandler struct {
	assistant Answerer
	sessions  *registry
	logger    *slog.Logger
}

type queryRequest struct {
	SessionID   string `json:"session_id,omitempty"`
	Query       string `json:"query"`
	PriorAnswer string `json:"prior_answer,omitempty"`
}

type queryResponse struct {
	SessionID string            `json:"session_id,omitempty"`
	Answer    *assistant.Answer `json:"answer"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []session.Message `json:"messages"`
	Tokens    int               `json:"total_tokens"`
}

// query answers one question. An omitted session_id runs the query
// one-shot, without history.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	var sess *session.Session
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session", "session_id is not a valid UUID", nil)
			return
		}
		var ok bool
		sess, ok = h.sessions.get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "session_not_found", "unknown session_id", nil)
			return
		}
	}

	answer, err := h.assistant.Query(r.Context(), sess, req.Query, req.PriorAnswer)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{SessionID: req.SessionID, Answer: answer})
}

// writeQueryError maps pipeline error kinds to HTTP statuses. User errors
// are the caller's problem; application errors are an upstream fault.
func (h *queryHandler) writeQueryError(w http.ResponseWriter, err error) {
	var e *assistant.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case assistant.KindUser:
			writeError(w, http.StatusBadRequest, "query_rejected", e.Message, e.Payload)
			return
		case assistant.KindApplication:
			writeError(w, http.StatusBadGateway, "upstream_failure", e.Message, nil)
			return
		}
	}
	h.logger.Error("unclassified query failure", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
}

// createSession registers a new in-memory conversation.
func (h *queryHandler) createSession(w http.ResponseWriter, _ *http.Request) {
	sess := h.sessions.create()
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sess.ID().String()})
}

// getHistory returns the session's message history and token usage.
func (h *queryHandler) getHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}
	messages := sess.Messages()
	if messages == nil {
		messages = []session.Message{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		SessionID: sess.ID().String(),
		Messages:  messages,
		Tokens:    sess.TotalTokens(),
	})
}

// resetHistory clears the session's history and token counter.
func (h *queryHandler) resetHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}
	sess.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (h *queryHandler) sessionFromPath(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session", "session id is not a valid UUID", nil)
		return nil, false
	}
	sess, ok := h.sessions.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "unknown session id", nil)
		return nil, false
	}
	return sess, true
}

// decodeJSON decodes a bounded JSON request body, rejecting unknown fields
// and trailing content.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
