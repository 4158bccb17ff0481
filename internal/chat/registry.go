package chat

import (
	"sync"

	"github.com/Smomic/ChatRoom/internal/protocol"
)

// Registry tracks the live sessions. One mutex covers add, remove and the
// broadcast iteration, so fan-out never races a membership change.
type Registry struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Session]struct{})}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = struct{}{}
	ConnectedSessions.Set(float64(len(r.sessions)))
}

// Remove drops s from the set. Removing an absent session is a no-op.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
	ConnectedSessions.Set(float64(len(r.sessions)))
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Broadcast sends st to every authenticated session. Sends are
// best-effort; a failure on one session never blocks the others.
func (r *Registry) Broadcast(st protocol.ChatState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s := range r.sessions {
		if s.authenticated {
			s.Send(st)
		}
	}
	BroadcastsTotal.Inc()
}

// Drain empties the set and returns what it held, for shutdown.
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, s)
	}
	ConnectedSessions.Set(0)
	return out
}
