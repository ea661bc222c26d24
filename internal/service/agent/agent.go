// Package agent implements the conversation agent bound to one config entry.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/zlau-dev/h2ogpt-bridge/internal/entry"
	"github.com/zlau-dev/h2ogpt-bridge/internal/h2ogpt"
	"github.com/zlau-dev/h2ogpt-bridge/internal/model/conversation"
)

var ErrConversationNotFound = errors.New("conversation not found")

// DefaultMaxConversations bounds how many conversations an agent keeps in
// memory before it starts dropping the oldest ones.
const DefaultMaxConversations = 256

// Agent forwards utterances for a single config entry to its h2oGPT server
// and keeps per-conversation transcripts in memory. The entry itself is
// re-read from the store on every utterance so options edits apply without a
// restart. Transcripts live only for the process lifetime.
type Agent struct {
	entryID string
	entries entry.Store
	maxConv int

	mu       sync.RWMutex
	sessions map[string][]*schema.Message
	order    []string // conversation ids, oldest first
}

// New builds an agent for the given entry. maxConversations <= 0 selects
// DefaultMaxConversations.
func New(entryID string, entries entry.Store, maxConversations int) *Agent {
	if maxConversations <= 0 {
		maxConversations = DefaultMaxConversations
	}
	return &Agent{
		entryID:  entryID,
		entries:  entries,
		maxConv:  maxConversations,
		sessions: make(map[string][]*schema.Message),
	}
}

// EntryID returns the id of the config entry this agent serves.
func (a *Agent) EntryID() string {
	return a.entryID
}

// Process handles one utterance. It never returns an error: every failure is
// converted into a synthesized error reply carrying the "unknown" code, and
// the conversation id (possibly freshly minted) is returned either way so the
// caller's conversation survives. On failure the stored transcript is left
// untouched; user and assistant messages are committed together only after a
// successful remote call.
func (a *Agent) Process(ctx context.Context, input conversation.Input) conversation.Result {
	conversationID := a.resolveConversation(input.ConversationID)

	ent, err := a.entries.Get(ctx, a.entryID)
	if err != nil {
		return errorResult(conversationID, fmt.Errorf("load config entry: %w", err))
	}

	promptContext := ent.PromptContext()

	prompt, err := h2ogpt.BuildPrompt(ctx, promptContext, input.Text)
	if err != nil {
		return errorResult(conversationID, err)
	}

	reply, err := h2ogpt.NewClient(ent.HostURL).Generate(ctx, prompt)
	if err != nil {
		log.Printf("[agent] entry=%s conversation=%s remote call failed: %v", a.entryID, conversationID, err)
		return errorResult(conversationID, err)
	}

	a.commit(conversationID, promptContext, input.Text, reply)

	return conversation.Result{ConversationID: conversationID, Speech: reply}
}

// resolveConversation maps the incoming id onto a known conversation, minting
// a fresh one when the id is absent or unknown.
func (a *Agent) resolveConversation(id string) string {
	if id != "" {
		a.mu.RLock()
		_, known := a.sessions[id]
		a.mu.RUnlock()
		if known {
			return id
		}
	}
	return uuid.NewString()
}

// commit stores a completed turn. A conversation not yet in the map is seeded
// with the prompt context as its system message first, so every transcript
// starts with it and grows by exactly two messages per successful turn.
func (a *Agent) commit(conversationID, promptContext, text, reply string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	messages, ok := a.sessions[conversationID]
	if !ok {
		messages = make([]*schema.Message, 0, 8)
		messages = append(messages, schema.SystemMessage(promptContext))
		a.order = append(a.order, conversationID)
	}

	messages = append(messages, schema.UserMessage(text))
	messages = append(messages, schema.AssistantMessage(reply, nil))
	a.sessions[conversationID] = messages

	a.evictLocked()
}

// evictLocked drops the oldest conversations once the bound is exceeded.
// Callers must hold mu.
func (a *Agent) evictLocked() {
	for len(a.order) > a.maxConv {
		oldest := a.order[0]
		a.order = a.order[1:]
		delete(a.sessions, oldest)
		log.Printf("[agent] entry=%s evicted conversation=%s", a.entryID, oldest)
	}
}

// Transcript returns a copy of the stored messages for a conversation.
func (a *Agent) Transcript(conversationID string) ([]conversation.Turn, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	messages, ok := a.sessions[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	turns := make([]conversation.Turn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, conversation.Turn{Role: string(msg.Role), Content: msg.Content})
	}
	return turns, nil
}

// ConversationCount reports how many conversations are currently held.
func (a *Agent) ConversationCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

func errorResult(conversationID string, err error) conversation.Result {
	return conversation.Result{
		ConversationID: conversationID,
		ErrorCode:      conversation.ErrCodeUnknown,
		ErrorMessage:   fmt.Sprintf("Sorry, I had a problem talking to h2oGPT: %v", err),
	}
}
