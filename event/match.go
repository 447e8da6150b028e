package event

import (
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/ctf-server/games"
	"time"
)

// Topic is a broadcast topic that observers subscribe to.
type Topic string

const (
	// TopicState is used for StateEvent.
	TopicState Topic = "state"
	// TopicAnnouncement is used for AnnouncementEvent.
	TopicAnnouncement Topic = "announcement"
	// TopicChat is used for global ChatMessageEvent.
	TopicChat Topic = "chat"
	// TopicNotification is used for NotificationEvent.
	TopicNotification Topic = "notification"
)

// TeamChatTopic returns the topic for chat messages of the team with the given
// id.
func TeamChatTopic(teamID uuid.UUID) Topic {
	return Topic("chat/team/" + teamID.String())
}

// Envelope wraps a payload with the topic it was published to.
type Envelope struct {
	Topic   Topic       `json:"topic"`
	Payload interface{} `json:"payload"`
}

// StateEvent is published when the match phase, its remaining time or pause
// state changes.
type StateEvent struct {
	State games.Phase `json:"state"`
	// Duration is the remaining phase time in milliseconds.
	Duration int64 `json:"duration"`
	Paused   bool  `json:"paused"`
}

// NewStateEvent creates a StateEvent with the remaining time in milliseconds.
func NewStateEvent(phase games.Phase, remaining time.Duration, paused bool) StateEvent {
	return StateEvent{
		State:    phase,
		Duration: remaining.Milliseconds(),
		Paused:   paused,
	}
}

// AnnouncementEvent is published for announcements.
type AnnouncementEvent struct {
	Type    games.AnnouncementKind `json:"type"`
	Message nulls.String           `json:"message"`
}

// ChatMessageEvent is published for new chat messages.
type ChatMessageEvent struct {
	ID         int       `json:"id"`
	Content    string    `json:"content"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	// Team is the team the message is scoped to. Null for global messages.
	Team      uuid.NullUUID `json:"team"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewChatMessageEvent creates a ChatMessageEvent from the given
// games.ChatMessage.
func NewChatMessageEvent(message games.ChatMessage) ChatMessageEvent {
	return ChatMessageEvent{
		ID:         message.ID,
		Content:    message.Content,
		SenderID:   message.Sender.ID,
		SenderName: message.Sender.Name,
		Team:       message.Scope,
		Timestamp:  message.Timestamp,
	}
}

// ChatTopic returns the topic for the given games.ChatMessage.
func ChatTopic(message games.ChatMessage) Topic {
	if message.Scope.Valid {
		return TeamChatTopic(message.Scope.UUID)
	}
	return TopicChat
}

// NotificationEvent is published for push notifications.
type NotificationEvent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ControlAction is an action for ControlEvent.
type ControlAction string

const (
	ControlActionStart  ControlAction = "start"
	ControlActionPause  ControlAction = "pause"
	ControlActionResume ControlAction = "resume"
	ControlActionSkip   ControlAction = "skip"
	ControlActionRewind ControlAction = "rewind"
	ControlActionEnd    ControlAction = "end"
	ControlActionReset  ControlAction = "reset"
)

// ControlEvent is received for remote match control.
type ControlEvent struct {
	Action ControlAction `json:"action"`
	// Hard is used for ControlActionReset.
	Hard bool `json:"hard"`
}
