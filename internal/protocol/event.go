package protocol

import (
	"encoding/gob"
	"time"
)

// Event is the client-to-server wire union. It is sealed: the four
// implementations below are the whole protocol, and the dispatcher
// type-switches over them exhaustively.
type Event interface {
	event()
}

// LoginRequest opens a session under Username. Host and Port echo the
// endpoint the client dialed.
type LoginRequest struct {
	Username string
	Host     string
	Port     int
}

// LogoutRequest ends the session. The server also synthesizes one for a
// connection whose read side failed.
type LogoutRequest struct{}

// MessageSubmit carries a chat line plus the sender's claimed
// last-seen-message time. PriorDate is a staleness hint only; the server
// assigns the stored timestamp itself.
type MessageSubmit struct {
	Content   string
	PriorDate time.Time
}

// ResendRequest asks for every message newer than Since. A zero Since
// requests the full log.
type ResendRequest struct {
	Since time.Time
}

func (LoginRequest) event() {}
func (LogoutRequest) event() {}
func (MessageSubmit) event() {}
func (ResendRequest) event() {}

func init() {
	gob.Register(LoginRequest{})
	gob.Register(LogoutRequest{})
	gob.Register(MessageSubmit{})
	gob.Register(ResendRequest{})
}
