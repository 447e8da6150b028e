package games

import "github.com/google/uuid"

// Player is a participant of the match. Players are immutable. They are created
// on join and dropped on leave.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	// Team is the id of the team the player belongs to.
	Team uuid.UUID `json:"team"`
	// Privileged players may act outside the normal phase gates, for example
	// join after the match started.
	Privileged bool `json:"auth"`
}

// IsOnTeam checks whether the player belongs to the team with the given id.
func (p Player) IsOnTeam(teamID uuid.UUID) bool {
	return p.Team == teamID
}
