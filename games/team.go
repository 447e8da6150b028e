package games

import "github.com/google/uuid"

// Coordinates is a position on the playing field map.
type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// team is a team of the match. Identity is fixed while flag registration and
// messages are cleared on reset.
type team struct {
	id    uuid.UUID
	name  string
	color string
	// flag is the registered flag location. Only meaningful if registered is
	// true.
	flag       Coordinates
	registered bool
	// messages is the team-scoped chat log.
	messages messageLog
}

func newTeam(name string, color string) *team {
	return &team{
		id:    uuid.New(),
		name:  name,
		color: color,
	}
}

// registerFlag sets the flag location and marks the team as registered.
// Registering again moves the flag.
func (t *team) registerFlag(location Coordinates) {
	t.flag = location
	t.registered = true
}

// reset clears flag registration and messages.
func (t *team) reset() {
	t.flag = Coordinates{}
	t.registered = false
	t.messages = nil
}

// TeamStatus is the public projection of a team.
type TeamStatus struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Registered bool      `json:"registered"`
	// Flag is the registered flag location. It is only set when the flag is
	// registered and locations are revealed.
	Flag *Coordinates `json:"flag"`
}

// status projects the team. The flag location is only included if
// revealFlag is true.
func (t *team) status(revealFlag bool) TeamStatus {
	s := TeamStatus{
		ID:         t.id,
		Name:       t.name,
		Color:      t.color,
		Registered: t.registered,
	}
	if revealFlag && t.registered {
		flag := t.flag
		s.Flag = &flag
	}
	return s
}
