package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Smomic/ChatRoom/internal/protocol"
)

// readInterval throttles a single connection's event rate without
// blocking other sessions.
const readInterval = 100 * time.Millisecond

// inbound is a protocol event stamped with the session it arrived on.
type inbound struct {
	sess *Session
	ev   protocol.Event
}

// Session owns one accepted socket. Its read loop is the only reader of
// the connection; username and authenticated belong to the dispatcher
// goroutine and are never touched here.
type Session struct {
	ID     uuid.UUID
	conn   *protocol.Conn
	logger *slog.Logger

	limiter *rate.Limiter
	stopped atomic.Bool

	// Dispatcher-owned.
	username      string
	authenticated bool

	closeOnce sync.Once
}

func NewSession(raw net.Conn, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	return &Session{
		ID:      id,
		conn:    protocol.NewConn(raw),
		logger:  logger.With("session", id.String()),
		limiter: rate.NewLimiter(rate.Every(readInterval), 1),
	}
}

// ReadLoop decodes events and forwards them to the dispatch queue until
// the connection dies, then synthesizes a logout for itself so the
// dispatcher cleans up. A single undecodable payload is skipped with the
// connection left open; consecutive decode failures mean the stream is
// corrupt (the gob decoder cannot resynchronize) and end the session.
// stop unblocks queue sends once the dispatcher is gone.
func (s *Session) ReadLoop(events chan<- inbound, stop <-chan struct{}) {
	decodeFailures := 0
	for {
		if err := s.limiter.Wait(context.Background()); err != nil {
			return
		}
		ev, err := s.conn.ReadEvent()
		if err != nil {
			if fatalReadError(err) {
				s.selfLogout(events, stop)
				return
			}
			decodeFailures++
			if decodeFailures > 1 {
				s.logger.Warn("closing session after repeated decode failures", "error", err)
				s.selfLogout(events, stop)
				return
			}
			s.logger.Warn("skipping undecodable payload", "error", err)
			continue
		}
		decodeFailures = 0
		select {
		case events <- inbound{sess: s, ev: ev}:
		case <-stop:
			return
		}
	}
}

// selfLogout enqueues a logout for this session's own death, unless the
// session was closed server-side or the dispatcher has stopped.
func (s *Session) selfLogout(events chan<- inbound, stop <-chan struct{}) {
	if s.stopped.Load() {
		return
	}
	select {
	case events <- inbound{sess: s, ev: protocol.LogoutRequest{}}:
	case <-stop:
	}
}

// Send is fire and forget: a failed write is dropped here and surfaces
// soon after as a read failure on the session's own loop.
func (s *Session) Send(st protocol.ChatState) {
	if err := s.conn.WriteState(st); err != nil {
		s.logger.Debug("dropping snapshot send", "status", st.Status.String(), "error", err)
	}
}

// Close releases the socket. Safe to call more than once and safe to
// call while a broadcast iteration holds the registry lock.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.stopped.Store(true)
		_ = s.conn.Close()
	})
}

// fatalReadError separates dead-connection errors, which end the read
// loop, from payload decode errors, which are skipped.
func fatalReadError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
