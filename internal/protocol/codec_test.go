package protocol

import (
	"net"
	"testing"
	"time"
)

func TestConn_EventRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	server := NewConn(a)
	client := NewConn(b)
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	sent := []Event{
		LoginRequest{Username: "alice", Host: "localhost", Port: 5000},
		MessageSubmit{Content: "hi", PriorDate: time.UnixMilli(1234)},
		ResendRequest{Since: time.UnixMilli(99)},
		LogoutRequest{},
	}

	errCh := make(chan error, 1)
	go func() {
		for _, ev := range sent {
			if err := client.WriteEvent(ev); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()

	got := make([]Event, 0, len(sent))
	for range sent {
		ev, err := server.ReadEvent()
		if err != nil {
			t.Fatalf("ReadEvent: %v", err)
		}
		got = append(got, ev)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	login, ok := got[0].(LoginRequest)
	if !ok || login.Username != "alice" || login.Port != 5000 {
		t.Fatalf("unexpected first event: %#v", got[0])
	}
	submit, ok := got[1].(MessageSubmit)
	if !ok || submit.Content != "hi" || !submit.PriorDate.Equal(time.UnixMilli(1234)) {
		t.Fatalf("unexpected second event: %#v", got[1])
	}
	resend, ok := got[2].(ResendRequest)
	if !ok || !resend.Since.Equal(time.UnixMilli(99)) {
		t.Fatalf("unexpected third event: %#v", got[2])
	}
	if _, ok := got[3].(LogoutRequest); !ok {
		t.Fatalf("unexpected fourth event: %#v", got[3])
	}
}

func TestConn_StateRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	server := NewConn(a)
	client := NewConn(b)
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	want := ChatState{
		Messages: []Message{msg("alice", 100, "hello"), msg("bob", 200, "hey")},
		Users:    []string{"alice", "bob"},
		Status:   StatusLoggedIn,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.WriteState(want)
	}()

	got, err := client.ReadState()
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("WriteState: %v", err)
	}

	if got.Status != StatusLoggedIn {
		t.Fatalf("status = %v, want %v", got.Status, StatusLoggedIn)
	}
	if len(got.Messages) != 2 || got.Messages[1].Author != "bob" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if !got.Messages[0].SentAt.Equal(want.Messages[0].SentAt) {
		t.Fatalf("timestamp not preserved: %v vs %v", got.Messages[0].SentAt, want.Messages[0].SentAt)
	}
	if len(got.Users) != 2 {
		t.Fatalf("unexpected users: %+v", got.Users)
	}
}

func TestConn_ReadFailsAfterClose(t *testing.T) {
	a, b := net.Pipe()
	server := NewConn(a)
	client := NewConn(b)

	client.Close()
	if _, err := server.ReadEvent(); err == nil {
		t.Fatal("expected read error after peer close")
	}
	server.Close()
}
