package games

import (
	"github.com/google/uuid"
	"time"
)

// ChatMessage is a message in the global or a team-scoped chat.
type ChatMessage struct {
	// ID is taken from the match-wide message counter and therefore strictly
	// increasing over all scopes.
	ID      int    `json:"id"`
	Content string `json:"content"`
	Sender  Player `json:"sender"`
	// Scope is the id of the team for team-scoped messages. It is not valid for
	// global messages.
	Scope     uuid.NullUUID `json:"scope"`
	Timestamp time.Time     `json:"timestamp"`
}

// MessagePage is a bounded slice of a message log.
type MessagePage struct {
	Messages []ChatMessage `json:"messages"`
	// End is true when Messages reaches the end of the log.
	End bool `json:"end"`
}

// messageLog is an append-only chat log.
type messageLog []ChatMessage

// page returns up to count messages, starting at the given offset. Negative
// values are treated as zero. The returned messages are a copy.
func (l messageLog) page(start int, count int) MessagePage {
	if start < 0 {
		start = 0
	}
	if count < 0 {
		count = 0
	}
	from := start
	if from > len(l) {
		from = len(l)
	}
	to := from + count
	if to > len(l) {
		to = len(l)
	}
	messages := make([]ChatMessage, to-from)
	copy(messages, l[from:to])
	return MessagePage{
		Messages: messages,
		End:      to >= len(l),
	}
}
