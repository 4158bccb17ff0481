package protocol

import (
	"testing"
	"time"
)

func msg(author string, at int64, content string) Message {
	return Message{Author: author, SentAt: time.UnixMilli(at), Content: content}
}

func TestCompatibleWith_Boundaries(t *testing.T) {
	last := time.UnixMilli(200)

	tests := []struct {
		name string
		st   ChatState
		last time.Time
		want bool
	}{
		{
			name: "empty snapshot always compatible",
			st:   ChatState{},
			last: last,
			want: true,
		},
		{
			name: "unset last always compatible",
			st:   ChatState{Messages: []Message{msg("a", 500, "x")}},
			last: time.Time{},
			want: true,
		},
		{
			name: "newest equals last counts as overlap",
			st:   ChatState{Messages: []Message{msg("a", 200, "x")}},
			last: last,
			want: true,
		},
		{
			name: "one old message anchors the rest",
			st:   ChatState{Messages: []Message{msg("a", 150, "x"), msg("a", 900, "y")}},
			last: last,
			want: true,
		},
		{
			name: "oldest strictly newer than last is disjoint",
			st:   ChatState{Messages: []Message{msg("a", 201, "x"), msg("a", 300, "y")}},
			last: last,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.CompatibleWith(tt.last); got != tt.want {
				t.Fatalf("CompatibleWith = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessagesAfter_TrimsAndIsIdempotent(t *testing.T) {
	st := ChatState{
		Messages: []Message{msg("a", 100, "m1"), msg("b", 200, "m2"), msg("c", 300, "m3")},
		Users:    []string{"a", "b", "c"},
		Status:   StatusWorking,
	}
	last := time.UnixMilli(200)

	once := st.MessagesAfter(last)
	if len(once.Messages) != 1 || once.Messages[0].Content != "m3" {
		t.Fatalf("unexpected trim result: %+v", once.Messages)
	}

	twice := once.MessagesAfter(last)
	if len(twice.Messages) != len(once.Messages) {
		t.Fatalf("trim is not idempotent: %d vs %d", len(twice.Messages), len(once.Messages))
	}

	// The original snapshot must be untouched.
	if len(st.Messages) != 3 {
		t.Fatalf("trim mutated the source snapshot: %+v", st.Messages)
	}
	if len(once.Users) != 3 {
		t.Fatalf("users not carried over: %+v", once.Users)
	}
}

func TestLoggedIn(t *testing.T) {
	in := []Status{StatusWorking, StatusLoggedIn, StatusMessageRejected}
	out := []Status{StatusLoggedOut, StatusUsernameRejected, StatusRejected}

	for _, s := range in {
		if !(ChatState{Status: s}).LoggedIn() {
			t.Errorf("status %v should keep the session logged in", s)
		}
	}
	for _, s := range out {
		if (ChatState{Status: s}).LoggedIn() {
			t.Errorf("status %v should be terminal", s)
		}
	}
}

func TestLatestSentAt(t *testing.T) {
	if got := LatestSentAt(nil); !got.IsZero() {
		t.Fatalf("expected zero time for empty slice, got %v", got)
	}
	msgs := []Message{msg("a", 300, "x"), msg("b", 100, "y"), msg("c", 200, "z")}
	if got := LatestSentAt(msgs); !got.Equal(time.UnixMilli(300)) {
		t.Fatalf("LatestSentAt = %v, want 300ms", got)
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("alice"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if err := ValidateUsername(""); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := ValidateUsername("exactly15chars!"); err != nil {
		t.Fatalf("15-char name rejected: %v", err)
	}
	if err := ValidateUsername("sixteen--chars!!"); err == nil {
		t.Fatal("16-char name accepted")
	}
}
