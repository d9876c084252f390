package terminal

import (
	"strings"
	"sync"
	"time"
)

// State is one terminal's presence record.
type State struct {
	TerminalID string
	Online     bool
	LastSeen   time.Time
}

// Registry tracks which desktop terminals are online. Heartbeats refresh the
// TTL; an entry past its TTL counts as offline even without an offline event.
type Registry struct {
	mu   sync.RWMutex
	data map[string]State
	ttl  time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Registry{
		data: make(map[string]State),
		ttl:  ttl,
	}
}

func (r *Registry) SetOnline(terminalID string, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.data[terminalID]
	state.TerminalID = terminalID
	state.Online = online
	state.LastSeen = time.Now()
	r.data[terminalID] = state
}

func (r *Registry) Heartbeat(terminalID string) {
	r.SetOnline(terminalID, true)
}

func (r *Registry) IsOnline(terminalID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.data[terminalID]
	return ok && state.Online && !r.isExpired(state)
}

func (r *Registry) ListOnline() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]State, 0, len(r.data))
	for _, state := range r.data {
		if strings.TrimSpace(state.TerminalID) == "" {
			continue
		}
		if !state.Online || r.isExpired(state) {
			continue
		}
		out = append(out, state)
	}
	return out
}

func (r *Registry) isExpired(state State) bool {
	if r.ttl <= 0 {
		return false
	}
	return time.Since(state.LastSeen) > r.ttl
}
