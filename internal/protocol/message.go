package protocol

import (
	"errors"
	"sort"
	"time"
)

// MaxUsernameLen bounds usernames on both ends of the wire.
const MaxUsernameLen = 15

var ErrUsernameInvalid = errors.New("username must be 1-15 characters")

// ValidateUsername checks the length rule shared by client-side input
// validation and the server's login check. Uniqueness is the server's
// business.
func ValidateUsername(name string) error {
	if name == "" || len(name) > MaxUsernameLen {
		return ErrUsernameInvalid
	}
	return nil
}

// Message is one chat line. Immutable once created; the room hands out
// copies so receivers can never touch the stored values.
type Message struct {
	Author  string
	SentAt  time.Time
	Content string
}

// SortMessages orders msgs ascending by SentAt, in place. Equal
// timestamps keep their relative order.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].SentAt.Before(msgs[j].SentAt) })
}

// LatestSentAt returns the newest SentAt in msgs, or the zero time when
// msgs is empty.
func LatestSentAt(msgs []Message) time.Time {
	var latest time.Time
	for _, m := range msgs {
		if m.SentAt.After(latest) {
			latest = m.SentAt
		}
	}
	return latest
}
