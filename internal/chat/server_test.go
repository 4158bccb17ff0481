package chat

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/Smomic/ChatRoom/internal/protocol"
)

func startTestServer(t *testing.T, maxClients int) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", maxClients, testLogger())
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func waitSessionCount(t *testing.T, srv *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.registry.Len() != want {
		if time.Now().After(deadline) {
			t.Fatalf("session count stuck at %d, want %d", srv.registry.Len(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_RejectsStartOnBusyPort(t *testing.T) {
	srv := startTestServer(t, 2)

	clash := NewServer(srv.Addr().String(), 2, testLogger())
	if err := clash.Start(); err == nil {
		clash.Stop()
		t.Fatal("second listener on the same port should fail")
	}
}

func TestServer_CapacityClosesOverCapConnection(t *testing.T) {
	srv := startTestServer(t, 1)

	first, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	waitSessionCount(t, srv, 1)

	second, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	// The over-cap connection is accepted at the transport level, then
	// closed without ever becoming a session.
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := second.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("expected EOF on over-cap connection, got %v", err)
	}
	waitSessionCount(t, srv, 1)

	// The admitted connection logs in; the rejected one never shows up in
	// the user list.
	conn := protocol.NewConn(first)
	if err := conn.WriteEvent(protocol.LoginRequest{Username: "alice"}); err != nil {
		t.Fatalf("send login: %v", err)
	}
	st, err := conn.ReadState()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if st.Status != protocol.StatusLoggedIn {
		t.Fatalf("status = %v, want logged_in", st.Status)
	}
	if len(st.Users) != 1 || st.Users[0] != "alice" {
		t.Fatalf("unexpected user list: %+v", st.Users)
	}
}

func TestServer_DeadConnectionTriggersSelfLogout(t *testing.T) {
	srv := startTestServer(t, 4)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	pconn := protocol.NewConn(conn)
	if err := pconn.WriteEvent(protocol.LoginRequest{Username: "alice"}); err != nil {
		t.Fatalf("send login: %v", err)
	}
	if _, err := pconn.ReadState(); err != nil {
		t.Fatalf("read login snapshot: %v", err)
	}
	waitSessionCount(t, srv, 1)

	// Drop the socket without a logout. The read loop synthesizes one and
	// the session is deregistered.
	conn.Close()
	waitSessionCount(t, srv, 0)
}
