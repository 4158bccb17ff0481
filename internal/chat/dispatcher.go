package chat

import (
	"log/slog"
	"time"

	"github.com/Smomic/ChatRoom/internal/protocol"
)

const serverAuthor = "Server"

// Dispatcher is the single consumer of the event queue and the only
// goroutine that mutates the Room, so all state changes are totally
// ordered and broadcasts always observe the mutation that triggered
// them. Handlers never let an error escape the loop: a bad session is
// torn down and processing continues.
type Dispatcher struct {
	room     *Room
	registry *Registry
	events   chan inbound
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	room := NewRoom()
	// First log entry anchors every fresh client's last-known date: the
	// LOGGED_IN snapshot is never empty.
	room.Append(protocol.Message{Author: serverAuthor, SentAt: time.Now(), Content: "chat room is up"})
	return &Dispatcher{
		room:     room,
		registry: registry,
		events:   make(chan inbound, buffer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Events is where session read loops push decoded protocol events.
// Producers block when the queue is full.
func (d *Dispatcher) Events() chan<- inbound {
	return d.events
}

// Stop signals the Run loop to exit.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
}

// Stopped is closed when Stop is called. Producers select on it so a
// send to the queue cannot outlive its consumer.
func (d *Dispatcher) Stopped() <-chan struct{} {
	return d.stopCh
}

// Wait blocks until the Run loop has completely finished.
func (d *Dispatcher) Wait() {
	<-d.doneCh
}

func (d *Dispatcher) Run() {
	defer close(d.doneCh)
	for {
		select {
		case in := <-d.events:
			start := time.Now()
			kind := ""

			switch ev := in.ev.(type) {
			case protocol.LoginRequest:
				kind = "login"
				d.handleLogin(in.sess, ev)
			case protocol.LogoutRequest:
				kind = "logout"
				d.handleLogout(in.sess)
			case protocol.MessageSubmit:
				kind = "message"
				d.handleMessage(in.sess, ev)
			case protocol.ResendRequest:
				kind = "resend"
				d.handleResend(in.sess, ev)
			default:
				d.logger.Warn("dropping unknown event", "session", in.sess.ID)
				continue
			}

			EventsTotal.WithLabelValues(kind).Inc()
			EventProcessingDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		case <-d.stopCh:
			return
		}
	}
}

func (d *Dispatcher) handleLogin(sess *Session, ev protocol.LoginRequest) {
	if !d.room.UsernameAllowed(ev.Username) {
		RejectionsTotal.WithLabelValues("username").Inc()
		d.logger.Info("username rejected", "username", ev.Username, "session", sess.ID)
		d.registry.Remove(sess)
		sess.Send(d.room.SnapshotRecent(protocol.StatusUsernameRejected))
		sess.Close()
		// Everyone else refreshes their user list.
		d.registry.Broadcast(d.room.SnapshotRecent(protocol.StatusUsernameRejected))
		return
	}

	d.room.AddUser(ev.Username)
	LoggedInUsers.Set(float64(d.room.UserCount()))
	// The new session is not authenticated yet, so this fan-out reaches
	// everyone else only.
	d.registry.Broadcast(d.room.SnapshotRecent(protocol.StatusWorking))
	sess.username = ev.Username
	sess.authenticated = true
	// Post-registration, so the new user sees themselves in the list.
	sess.Send(d.room.SnapshotRecent(protocol.StatusLoggedIn))
	d.logger.Info("user logged in", "username", ev.Username, "session", sess.ID)
}

// handleLogout runs for explicit logout requests and for synthesized
// ones from dead connections, authenticated or not.
func (d *Dispatcher) handleLogout(sess *Session) {
	if sess.username != "" {
		if joined, ok := d.room.JoinedAt(sess.username); ok {
			d.logger.Info("user logged out", "username", sess.username,
				"connected_for", time.Since(joined).Round(time.Second).String())
		}
		d.room.RemoveUser(sess.username)
		LoggedInUsers.Set(float64(d.room.UserCount()))
	}
	sess.username = ""
	sess.authenticated = false
	d.registry.Remove(sess)
	sess.Send(d.room.SnapshotRecent(protocol.StatusLoggedOut))
	sess.Close()
	d.registry.Broadcast(d.room.SnapshotRecent(protocol.StatusWorking))
}

func (d *Dispatcher) handleMessage(sess *Session, ev protocol.MessageSubmit) {
	// Pre-login injection is dropped outright.
	if !sess.authenticated {
		return
	}
	if !d.room.AcceptsPriorDate(ev.PriorDate) {
		RejectionsTotal.WithLabelValues("stale_message").Inc()
		// Only the stale sender resynchronizes; nobody else is affected.
		sess.Send(d.room.SnapshotSince(ev.PriorDate, protocol.StatusMessageRejected))
		return
	}
	// The stored timestamp is the dispatcher's clock, never the client's.
	d.room.Append(protocol.Message{Author: sess.username, SentAt: time.Now(), Content: ev.Content})
	d.registry.Broadcast(d.room.SnapshotRecent(protocol.StatusWorking))
}

func (d *Dispatcher) handleResend(sess *Session, ev protocol.ResendRequest) {
	if !sess.authenticated {
		return
	}
	sess.Send(d.room.SnapshotSince(ev.Since, protocol.StatusWorking))
}
