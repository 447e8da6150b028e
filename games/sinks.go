package games

import (
	"github.com/gobuffalo/nulls"
	"time"
)

// AnnouncementKind is the type of announcement that is broadcast.
type AnnouncementKind string

const (
	// AnnouncementFrozen is used when the grace period expired without all flags
	// being registered.
	AnnouncementFrozen AnnouncementKind = "frozen"
	// AnnouncementRegister is used when a team registers its flag. The payload is
	// the team id.
	AnnouncementRegister AnnouncementKind = "register"
	// AnnouncementVictory is used when a team declares victory. The payload is the
	// team id.
	AnnouncementVictory AnnouncementKind = "victory"
	// AnnouncementReset is used for hard resets.
	AnnouncementReset AnnouncementKind = "reset"
	// AnnouncementRelease is used when an emergency is lifted.
	AnnouncementRelease AnnouncementKind = "release"
	// AnnouncementEmergency is the operator announcement kind that declares an
	// emergency.
	AnnouncementEmergency AnnouncementKind = "emergency"
)

// Broadcaster delivers state changes to all observers. Implementations must not
// block as they are called while holding the match lock.
type Broadcaster interface {
	// BroadcastState broadcasts the current phase with remaining duration and
	// pause state.
	BroadcastState(phase Phase, remaining time.Duration, paused bool)
	// BroadcastAnnouncement broadcasts an announcement with optional payload.
	BroadcastAnnouncement(kind AnnouncementKind, payload nulls.String)
	// BroadcastMessage broadcasts a chat message.
	BroadcastMessage(message ChatMessage)
}

// Notifier delivers push notifications to all subscribers. Implementations
// must not block as they are called while holding the match lock.
type Notifier interface {
	NotifyAll(title string, body string)
}
