// Package configflow implements the setup and options wizard over HTTP.
//
// Results mirror the flow engine of the home-automation platform: a "form"
// result re-renders the wizard step with field errors, a "create_entry"
// result finishes it.
package configflow

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zlau-dev/h2ogpt-bridge/internal/entry"
	"github.com/zlau-dev/h2ogpt-bridge/internal/lifecycle"
	"github.com/zlau-dev/h2ogpt-bridge/pkg/httpapi"
)

// Wizard error codes surfaced as field-level form errors.
const (
	errRequired      = "required"
	errCannotConnect = "cannot_connect"
	errUnknown       = "unknown"
)

// Handler serves the config flow endpoints.
type Handler struct {
	entries entry.Store
	manager *lifecycle.Manager
}

// New creates a config flow handler.
func New(entries entry.Store, manager *lifecycle.Manager) *Handler {
	return &Handler{entries: entries, manager: manager}
}

// RegisterRoutes mounts the config flow routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/config/flow", h.handleUserStep)
	r.Get("/config/entries", h.handleListEntries)
	r.Post("/config/entries/{entryID}/options", h.handleOptionsStep)
	r.Delete("/config/entries/{entryID}", h.handleDeleteEntry)
}

// flowResult is the wizard's answer to a submitted step.
type flowResult struct {
	Type   string            `json:"type"`
	Errors map[string]string `json:"errors,omitempty"`
	Entry  *entry.Entry      `json:"entry,omitempty"`
}

func formResult(field, code string) flowResult {
	return flowResult{Type: "form", Errors: map[string]string{field: code}}
}

// handleUserStep runs the initial two-step sequence: validate the submitted
// host URL by probing it, then persist and activate the entry.
func (h *Handler) handleUserStep(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		HostURL string `json:"host_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.HostURL == "" {
		httpapi.RespondJSON(w, http.StatusOK, formResult("host_url", errRequired))
		return
	}

	ent := entry.Entry{
		ID:      uuid.NewString(),
		Title:   entry.DefaultTitle,
		HostURL: payload.HostURL,
	}

	// Setup probes reachability before registering the agent, which is the
	// wizard validation step.
	if err := h.manager.Setup(r.Context(), ent); err != nil {
		if errors.Is(err, lifecycle.ErrNotReady) {
			httpapi.RespondJSON(w, http.StatusOK, formResult("base", errCannotConnect))
			return
		}
		log.Printf("[configflow] unexpected validation failure: %v", err)
		httpapi.RespondJSON(w, http.StatusOK, formResult("base", errUnknown))
		return
	}

	if err := h.entries.Create(r.Context(), ent); err != nil {
		h.manager.Unload(ent.ID)
		log.Printf("[configflow] failed to persist entry: %v", err)
		httpapi.RespondJSON(w, http.StatusOK, formResult("base", errUnknown))
		return
	}

	created, err := h.entries.Get(r.Context(), ent.ID)
	if err != nil {
		created = ent
	}
	httpapi.RespondJSON(w, http.StatusCreated, flowResult{Type: "create_entry", Entry: &created})
}

// handleOptionsStep updates the mutable options of an existing entry. An
// empty prompt context falls back to the built-in default at read time.
func (h *Handler) handleOptionsStep(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	var payload struct {
		PromptContext string `json:"prompt_context"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := entry.Options{PromptContext: payload.PromptContext}
	if err := h.entries.UpdateOptions(r.Context(), entryID, opts); err != nil {
		if errors.Is(err, entry.ErrEntryNotFound) {
			httpapi.RespondError(w, http.StatusNotFound, "entry not found")
			return
		}
		log.Printf("[configflow] failed to update options: %v", err)
		httpapi.RespondError(w, http.StatusInternalServerError, "failed to update options")
		return
	}

	updated, err := h.entries.Get(r.Context(), entryID)
	if err != nil {
		httpapi.RespondError(w, http.StatusInternalServerError, "failed to load entry")
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, flowResult{Type: "create_entry", Entry: &updated})
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.List(r.Context())
	if err != nil {
		log.Printf("[configflow] failed to list entries: %v", err)
		httpapi.RespondError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	if entries == nil {
		entries = []entry.Entry{}
	}
	httpapi.RespondJSON(w, http.StatusOK, entries)
}

// handleDeleteEntry deactivates and removes an entry.
func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	if err := h.entries.Delete(r.Context(), entryID); err != nil {
		if errors.Is(err, entry.ErrEntryNotFound) {
			httpapi.RespondError(w, http.StatusNotFound, "entry not found")
			return
		}
		log.Printf("[configflow] failed to delete entry: %v", err)
		httpapi.RespondError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}

	h.manager.Unload(entryID)
	httpapi.RespondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
