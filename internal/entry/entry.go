// Package entry persists the configuration entries created by the setup flow.
package entry

import (
	"context"
	"errors"
	"time"
)

// DefaultPromptContext seeds new conversations when the user has not
// customized the prompt context option.
const DefaultPromptContext = `You are the voice assistant of a smart home. Answer the user's question truthfully using plain language. Keep replies short enough to be spoken aloud. If you do not know the answer, say so.`

// DefaultTitle names entries created by the setup flow.
const DefaultTitle = "h2oGPT Conversation"

var ErrEntryNotFound = errors.New("entry not found")

// Options holds the user-editable settings of an entry. Unlike HostURL they
// may change at any time after creation; the agent re-reads them on every
// utterance.
type Options struct {
	PromptContext string `json:"prompt_context"`
}

// Entry is one configured connection to an h2oGPT server.
type Entry struct {
	ID        string    `json:"entry_id"`
	Title     string    `json:"title"`
	HostURL   string    `json:"host_url"`
	Options   Options   `json:"options"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PromptContext returns the configured prompt context, falling back to the
// built-in default when the option is unset.
func (e Entry) PromptContext() string {
	if e.Options.PromptContext == "" {
		return DefaultPromptContext
	}
	return e.Options.PromptContext
}

// Store exposes entry persistence to the flow handlers and the agent.
type Store interface {
	Create(ctx context.Context, ent Entry) error
	Get(ctx context.Context, entryID string) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	UpdateOptions(ctx context.Context, entryID string, opts Options) error
	Delete(ctx context.Context, entryID string) error
	Ping(ctx context.Context) error
	Close() error
}
