package client

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Smomic/ChatRoom/internal/config"
	"github.com/Smomic/ChatRoom/internal/protocol"
)

// resendInterval is how often the reconciler re-asks the server for
// everything newer than its last known message. Broadcast delivery is
// best-effort and snapshots are never acknowledged, so this periodic
// re-ask is the loss-recovery mechanism.
const resendInterval = 2 * time.Second

// State of the reconciler's session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateRejected
)

// View is the rendering sink the reconciler drives. Implementations must
// tolerate calls from the reconciler's internal goroutines.
type View interface {
	ApplySnapshot(protocol.ChatState)
	SetDisconnected()
}

// Reconciler keeps a client's local message view converged with the
// server log across lost broadcasts, reconnects and reordered delivery.
// It tracks the newest message time it has anchored to and trims
// already-seen history out of every snapshot before handing it to the
// view.
type Reconciler struct {
	view   View
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	conn      *protocol.Conn
	lastKnown time.Time
	stopCh    chan struct{}
}

func NewReconciler(view View, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{view: view, logger: logger}
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Login validates the user-supplied endpoint and name, dials the server,
// starts the inbound listener and resend ticker, and sends the login
// event. Bad input comes back as an error before anything is dialed.
func (r *Reconciler) Login(host, port, username string) error {
	p, err := config.ParsePort(port)
	if err != nil {
		return err
	}
	if err := protocol.ValidateUsername(username); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateConnecting || r.state == StateConnected {
		return fmt.Errorf("already connected")
	}

	raw, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("connect %s:%s: %w", host, port, err)
	}

	r.conn = protocol.NewConn(raw)
	r.state = StateConnecting
	r.lastKnown = time.Time{}
	r.stopCh = make(chan struct{})

	go r.listen(r.conn)
	go r.resendLoop(r.conn, r.stopCh)

	if err := r.conn.WriteEvent(protocol.LoginRequest{Username: username, Host: host, Port: p}); err != nil {
		r.teardownLocked(StateDisconnected)
		return fmt.Errorf("send login: %w", err)
	}
	r.logger.Info("login sent", "host", host, "port", p, "username", username)
	return nil
}

// SendMessage submits content with the current last-known date attached
// as the staleness hint.
func (r *Reconciler) SendMessage(content string) {
	r.mu.Lock()
	conn, last := r.conn, r.lastKnown
	r.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.WriteEvent(protocol.MessageSubmit{Content: content, PriorDate: last}); err != nil {
		r.disconnect(conn)
	}
}

// Logout asks the server to end the session. The terminal LOGGED_OUT
// snapshot arriving on the listener finishes the teardown.
func (r *Reconciler) Logout() {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.WriteEvent(protocol.LogoutRequest{}); err != nil {
		r.disconnect(conn)
	}
}

// listen consumes snapshots until the transport dies or a terminal
// status arrives.
func (r *Reconciler) listen(conn *protocol.Conn) {
	for {
		st, err := conn.ReadState()
		if err != nil {
			r.disconnect(conn)
			return
		}
		if !st.LoggedIn() {
			// Apply once so the view can show why, then tear down.
			r.view.ApplySnapshot(st)
			r.terminate(conn, st.Status)
			return
		}
		r.apply(st)
	}
}

// apply runs one reconciliation step: anchor on the first snapshot,
// check compatibility, trim seen history, advance the anchor.
func (r *Reconciler) apply(st protocol.ChatState) {
	r.mu.Lock()
	if r.state == StateConnecting {
		r.state = StateConnected
	}
	if r.lastKnown.IsZero() {
		r.lastKnown = protocol.LatestSentAt(st.Messages)
	}
	if !st.CompatibleWith(r.lastKnown) {
		// A disjoint future with no overlap cannot be anchored; drop it
		// and let the next resend round fetch the gap.
		r.mu.Unlock()
		r.logger.Debug("dropping incompatible snapshot", "messages", len(st.Messages))
		return
	}
	trimmed := st.MessagesAfter(r.lastKnown)
	if latest := protocol.LatestSentAt(st.Messages); !latest.IsZero() {
		r.lastKnown = latest
	}
	r.mu.Unlock()

	r.view.ApplySnapshot(trimmed)
}

// resendLoop periodically requests everything newer than the last known
// date, regardless of snapshot traffic.
func (r *Reconciler) resendLoop(conn *protocol.Conn, stopCh <-chan struct{}) {
	ticker := time.NewTicker(resendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.mu.Lock()
			last := r.lastKnown
			r.mu.Unlock()
			if err := conn.WriteEvent(protocol.ResendRequest{Since: last}); err != nil {
				r.disconnect(conn)
				return
			}
		}
	}
}

// disconnect handles a transport failure: release everything once and
// notify the view once.
func (r *Reconciler) disconnect(conn *protocol.Conn) {
	r.mu.Lock()
	if r.conn != conn {
		// Already torn down, or a newer connection took over.
		r.mu.Unlock()
		return
	}
	r.teardownLocked(StateDisconnected)
	r.mu.Unlock()

	r.logger.Info("disconnected from server")
	r.view.SetDisconnected()
}

// terminate handles a server-sent terminal status.
func (r *Reconciler) terminate(conn *protocol.Conn, status protocol.Status) {
	r.mu.Lock()
	if r.conn != conn {
		r.mu.Unlock()
		return
	}
	next := StateDisconnected
	if status == protocol.StatusUsernameRejected || status == protocol.StatusRejected {
		next = StateRejected
	}
	r.teardownLocked(next)
	r.mu.Unlock()

	r.logger.Info("session ended by server", "status", status.String())
}

// teardownLocked closes the transport and stops the resend loop. The
// caller holds mu.
func (r *Reconciler) teardownLocked(next State) {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
	r.lastKnown = time.Time{}
	r.state = next
}
