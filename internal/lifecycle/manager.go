// Package lifecycle owns the set of active conversation agents, one per
// config entry.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zlau-dev/h2ogpt-bridge/internal/entry"
	"github.com/zlau-dev/h2ogpt-bridge/internal/h2ogpt"
	"github.com/zlau-dev/h2ogpt-bridge/internal/service/agent"
)

// ErrNotReady signals that the entry's h2oGPT server could not be reached at
// setup time. The entry stays persisted; setup can be retried later.
var ErrNotReady = errors.New("h2ogpt endpoint not ready")

// Manager activates and deactivates agents. Setup validates reachability
// before registering; Unload drops the agent and its in-memory transcripts.
type Manager struct {
	entries          entry.Store
	connectTimeout   time.Duration
	maxConversations int

	mu     sync.RWMutex
	agents map[string]*agent.Agent
	order  []string // entry ids, activation order
}

// NewManager builds an empty manager. connectTimeout bounds the reachability
// probe run during Setup.
func NewManager(entries entry.Store, connectTimeout time.Duration, maxConversations int) *Manager {
	return &Manager{
		entries:          entries,
		connectTimeout:   connectTimeout,
		maxConversations: maxConversations,
		agents:           make(map[string]*agent.Agent),
	}
}

// Setup activates an agent for the entry. A failed reachability probe comes
// back wrapped in ErrNotReady; any other failure is fatal for this attempt.
// Setting up an already-active entry replaces its agent.
func (m *Manager) Setup(ctx context.Context, ent entry.Entry) error {
	probeCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	if err := h2ogpt.NewClient(ent.HostURL).CheckReachable(probeCtx); err != nil {
		if errors.Is(err, h2ogpt.ErrCannotConnect) {
			return fmt.Errorf("%w: %v", ErrNotReady, err)
		}
		return fmt.Errorf("validate entry %s: %w", ent.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, active := m.agents[ent.ID]; !active {
		m.order = append(m.order, ent.ID)
	}
	m.agents[ent.ID] = agent.New(ent.ID, m.entries, m.maxConversations)

	log.Printf("[lifecycle] activated agent for entry=%s host=%s", ent.ID, ent.HostURL)
	return nil
}

// Unload deactivates the agent for an entry. It reports whether an agent was
// active.
func (m *Manager) Unload(entryID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, active := m.agents[entryID]; !active {
		return false
	}
	delete(m.agents, entryID)
	for i, id := range m.order {
		if id == entryID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	log.Printf("[lifecycle] deactivated agent for entry=%s", entryID)
	return true
}

// Agent returns the active agent for an entry.
func (m *Manager) Agent(entryID string) (*agent.Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[entryID]
	return a, ok
}

// Default returns the earliest-activated agent. Dispatch falls back to it
// when the caller does not name an entry.
func (m *Manager) Default() (*agent.Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return nil, false
	}
	return m.agents[m.order[0]], true
}

// ActiveCount reports how many agents are currently active.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}
