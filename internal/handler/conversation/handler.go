// Package conversation exposes the per-utterance dispatch surface.
package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zlau-dev/h2ogpt-bridge/internal/lifecycle"
	convmodel "github.com/zlau-dev/h2ogpt-bridge/internal/model/conversation"
	agentservice "github.com/zlau-dev/h2ogpt-bridge/internal/service/agent"
	"github.com/zlau-dev/h2ogpt-bridge/pkg/httpapi"
)

// Handler dispatches utterances to the active agents.
type Handler struct {
	manager *lifecycle.Manager
}

// New creates a conversation handler.
func New(manager *lifecycle.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes mounts the conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversation", h.handleProcess)
	r.Get("/conversation/{conversationID}", h.handleTranscript)
}

type processRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id"`
	Language       string `json:"language"`
	AgentID        string `json:"agent_id"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type responseBody struct {
	Speech string     `json:"speech,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

type processResponse struct {
	Response       responseBody `json:"response"`
	ConversationID string       `json:"conversation_id"`
}

// handleProcess forwards one utterance. Synthesized error replies still
// return 200: from the dispatcher's point of view the conversation carried
// on.
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var payload processRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == "" {
		httpapi.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	ag, ok := h.selectAgent(payload.AgentID)
	if !ok {
		httpapi.RespondError(w, http.StatusServiceUnavailable, "no conversation agent is active")
		return
	}

	result := ag.Process(r.Context(), convmodel.Input{
		ConversationID: payload.ConversationID,
		Text:           payload.Text,
		Language:       payload.Language,
	})

	httpapi.RespondJSON(w, http.StatusOK, toProcessResponse(result))
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	ag, ok := h.selectAgent(r.URL.Query().Get("agent_id"))
	if !ok {
		httpapi.RespondError(w, http.StatusServiceUnavailable, "no conversation agent is active")
		return
	}

	turns, err := ag.Transcript(conversationID)
	if err != nil {
		if errors.Is(err, agentservice.ErrConversationNotFound) {
			httpapi.RespondError(w, http.StatusNotFound, "conversation not found")
			return
		}
		httpapi.RespondError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	httpapi.RespondJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        turns,
	})
}

// selectAgent resolves the target agent: an explicit entry id, or the
// earliest-activated agent when none is given.
func (h *Handler) selectAgent(agentID string) (*agentservice.Agent, bool) {
	if agentID != "" {
		return h.manager.Agent(agentID)
	}
	return h.manager.Default()
}

func toProcessResponse(result convmodel.Result) processResponse {
	resp := processResponse{ConversationID: result.ConversationID}
	if result.Failed() {
		resp.Response.Error = &errorBody{Code: result.ErrorCode, Message: result.ErrorMessage}
	} else {
		resp.Response.Speech = result.Speech
	}
	return resp
}
