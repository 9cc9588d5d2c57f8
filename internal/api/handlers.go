package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"adaptive.dev/assessment-server/internal/core"
)

type QuestionIssuer interface {
	IssueQuestion(ctx context.Context, accessCode, email string) (*core.QuestionPayload, error)
}

type ConversationResponder interface {
	Respond(ctx context.Context, turns []core.ConversationTurn) (*core.ModelResponse, error)
}

type CodingAssistant interface {
	Assist(ctx context.Context, message string, actx *core.AssistContext) (string, error)
}

type ModelProbe interface {
	Ping(ctx context.Context) (string, error)
}

type APIHandler struct {
	gateway   QuestionIssuer
	relay     ConversationResponder
	assistant CodingAssistant
	probe     ModelProbe
}

func NewAPIHandler(gateway QuestionIssuer, relay ConversationResponder, assistant CodingAssistant, probe ModelProbe) *APIHandler {
	return &APIHandler{gateway: gateway, relay: relay, assistant: assistant, probe: probe}
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

// writeError maps service errors onto status codes. Unclassified errors are
// logged and reported without their detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, core.ErrUnauthorized.Error()
	case errors.Is(err, core.ErrInvalidEmail):
		status, msg = http.StatusBadRequest, core.ErrInvalidEmail.Error()
	case errors.Is(err, core.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrUpstreamUnavailable):
		status, msg = http.StatusBadGateway, core.ErrUpstreamUnavailable.Error()
	case errors.Is(err, core.ErrResponseParse):
		msg = "failed to process model response"
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	writeJSON(w, status, messageBody{Message: msg})
}

type GetQuestionRequest struct {
	Email string `json:"email"`
}

func (h *APIHandler) GetQuestionHandler(w http.ResponseWriter, r *http.Request) {
	var req GetQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "invalid request body"})
		return
	}

	payload, err := h.gateway.IssueQuestion(r.Context(), r.URL.Query().Get("q"), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type ChatRequest struct {
	Convo []core.ConversationTurn `json:"convo"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "invalid request body"})
		return
	}

	resp, err := h.relay.Respond(r.Context(), req.Convo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type AssistRequest struct {
	Message string              `json:"message"`
	Context *core.AssistContext `json:"context,omitempty"`
}

type AssistResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *APIHandler) AssistHandler(w http.ResponseWriter, r *http.Request) {
	var req AssistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AssistResponse{Error: "invalid request body"})
		return
	}

	answer, err := h.assistant.Assist(r.Context(), req.Message, req.Context)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, AssistResponse{Error: err.Error()})
			return
		}
		slog.Error("assistant request failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, AssistResponse{Error: "failed to get response from AI assistant"})
		return
	}
	writeJSON(w, http.StatusOK, AssistResponse{Success: true, Message: answer})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) ModelHealthHandler(w http.ResponseWriter, r *http.Request) {
	reply, err := h.probe.Ping(r.Context())
	if err != nil {
		slog.Warn("model probe failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "reply": reply})
}
