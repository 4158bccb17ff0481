package chat

import (
	"sort"
	"time"

	"github.com/Smomic/ChatRoom/internal/protocol"
)

const (
	// staleWindow is how far a sender's claimed last-seen-message time may
	// lag the newest appended message and still be accepted, inclusive.
	staleWindow = 500 * time.Millisecond
	// recentMessageCount bounds the default broadcast payload: the newest
	// line plus its predecessor for context. Anything older comes via
	// catch-up snapshots on demand.
	recentMessageCount = 2
)

// joinRecord remembers who joined and when.
type joinRecord struct {
	name     string
	joinedAt time.Time
}

// Room is the authoritative server state: the append-only message log and
// the set of logged-in users. It is owned by the dispatcher goroutine,
// which is its only mutator, so it carries no locking of its own.
type Room struct {
	messages []protocol.Message
	users    map[string]joinRecord
}

func NewRoom() *Room {
	return &Room{users: make(map[string]joinRecord)}
}

// AddUser records name as logged in. Re-adding an existing name just
// refreshes its join record.
func (r *Room) AddUser(name string) {
	r.users[name] = joinRecord{name: name, joinedAt: time.Now()}
}

// RemoveUser forgets name. Removing an absent name is a no-op.
func (r *Room) RemoveUser(name string) {
	delete(r.users, name)
}

func (r *Room) UserCount() int {
	return len(r.users)
}

// JoinedAt returns when name entered the room.
func (r *Room) JoinedAt(name string) (time.Time, bool) {
	rec, ok := r.users[name]
	return rec.joinedAt, ok
}

// UsernameAllowed reports whether name may log in: non-empty, within the
// length bound, and not currently taken.
func (r *Room) UsernameAllowed(name string) bool {
	if protocol.ValidateUsername(name) != nil {
		return false
	}
	_, taken := r.users[name]
	return !taken
}

// AcceptsPriorDate reports whether a sender claiming prior as its newest
// seen message time is caught up enough to submit. An unset prior is
// always stale; an empty log accepts any set prior; otherwise the claim
// may lag the newest appended message by at most staleWindow.
func (r *Room) AcceptsPriorDate(prior time.Time) bool {
	if prior.IsZero() {
		return false
	}
	if len(r.messages) == 0 {
		return true
	}
	last := r.messages[len(r.messages)-1].SentAt
	return last.Sub(prior) <= staleWindow
}

// Append adds msg to the log. Arrival order is kept; nothing is ever
// mutated or reordered in place afterwards.
func (r *Room) Append(msg protocol.Message) {
	r.messages = append(r.messages, msg)
}

// SnapshotRecent returns a snapshot carrying at most the last
// recentMessageCount appended messages plus the full user set.
func (r *Room) SnapshotRecent(status protocol.Status) protocol.ChatState {
	start := len(r.messages) - recentMessageCount
	if start < 0 {
		start = 0
	}
	msgs := append([]protocol.Message(nil), r.messages[start:]...)
	protocol.SortMessages(msgs)
	return protocol.ChatState{Messages: msgs, Users: r.userNames(), Status: status}
}

// SnapshotSince returns every message sent at or after since, sorted
// ascending by SentAt, plus the full user set. The boundary is inclusive
// so a catch-up always carries the requester's own anchor message — the
// overlap the client's compatibility check looks for; the client trims
// the anchor back out before display. A zero since returns the whole
// log, so a client with no anchor gets a full catch-up.
func (r *Room) SnapshotSince(since time.Time, status protocol.Status) protocol.ChatState {
	msgs := make([]protocol.Message, 0, len(r.messages))
	for _, m := range r.messages {
		if since.IsZero() || !m.SentAt.Before(since) {
			msgs = append(msgs, m)
		}
	}
	protocol.SortMessages(msgs)
	return protocol.ChatState{Messages: msgs, Users: r.userNames(), Status: status}
}

func (r *Room) userNames() []string {
	names := make([]string, 0, len(r.users))
	for name := range r.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
