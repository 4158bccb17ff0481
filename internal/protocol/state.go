package protocol

import "time"

// Status tags a ChatState with what it means for the receiving client.
type Status int

const (
	// StatusWorking is a routine state update; the client stays logged in.
	StatusWorking Status = iota
	// StatusLoggedIn confirms a successful login to the new session only.
	StatusLoggedIn
	// StatusLoggedOut confirms a logout; the connection closes after it.
	StatusLoggedOut
	// StatusMessageRejected means a submit was too stale; the snapshot
	// carries the catch-up the client is missing.
	StatusMessageRejected
	// StatusUsernameRejected means the login name was invalid or taken.
	StatusUsernameRejected
	// StatusRejected is the catch-all rejection.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusWorking:
		return "working"
	case StatusLoggedIn:
		return "logged_in"
	case StatusLoggedOut:
		return "logged_out"
	case StatusMessageRejected:
		return "message_rejected"
	case StatusUsernameRejected:
		return "username_rejected"
	default:
		return "rejected"
	}
}

// ChatState is an immutable point-in-time snapshot of the room: a message
// subset sorted ascending by SentAt, the sorted names of everyone logged
// in, and a status for the receiver.
type ChatState struct {
	Messages []Message
	Users    []string
	Status   Status
}

// LoggedIn reports whether the receiving client is still a member of the
// room after this snapshot. A false result is terminal for the session.
func (s ChatState) LoggedIn() bool {
	switch s.Status {
	case StatusWorking, StatusLoggedIn, StatusMessageRejected:
		return true
	}
	return false
}

// CompatibleWith reports whether a client whose newest seen message time
// is last can anchor this snapshot to its own history. An empty snapshot
// or an unset last is always compatible; otherwise at least one message
// must not be newer than last, proving the overlap.
func (s ChatState) CompatibleWith(last time.Time) bool {
	if last.IsZero() || len(s.Messages) == 0 {
		return true
	}
	for _, m := range s.Messages {
		if !m.SentAt.After(last) {
			return true
		}
	}
	return false
}

// MessagesAfter returns a copy of the snapshot holding only messages
// strictly newer than last. The receiver is left untouched, so applying
// the trim twice yields the same view as applying it once.
func (s ChatState) MessagesAfter(last time.Time) ChatState {
	kept := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.SentAt.After(last) {
			kept = append(kept, m)
		}
	}
	return ChatState{
		Messages: kept,
		Users:    append([]string(nil), s.Users...),
		Status:   s.Status,
	}
}
