package games

import (
	"github.com/google/uuid"
	"github.com/lefinal/ctf-server/errors"
	"go.uber.org/zap"
)

// AddPlayer adds a player with the given name to the team with the given id.
// Players may only join while waiting to start, unless they are privileged.
// Player names are unique.
func (m *Match) AddPlayer(name string, teamID uuid.UUID, privileged bool) (Player, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.phase != PhaseWaitingToStart && !privileged {
		return Player{}, errors.NewStateConflictError(errors.KindMatchPhaseViolation, "cannot join match at this time",
			errors.Details{"phase": m.phase})
	}
	for _, p := range m.players {
		if p.Name == name {
			return Player{}, errors.NewBadRequestError(errors.KindDuplicateName, "player name already taken",
				errors.Details{"player_name": name})
		}
	}
	t, err := m.teamByID(teamID)
	if err != nil {
		return Player{}, errors.NewBadRequestError(errors.KindUnknownTeam, "invalid team choice",
			errors.Details{"team_id": teamID})
	}
	player := Player{
		ID:         uuid.New(),
		Name:       name,
		Team:       t.id,
		Privileged: privileged,
	}
	m.players = append(m.players, player)
	m.logger.Debug("player joined",
		zap.String("player_name", name),
		zap.String("team_name", t.name),
		zap.Bool("privileged", privileged))
	return player, nil
}

// RemovePlayer removes the player with the given id. If no players remain, the
// match is soft-reset.
func (m *Match) RemovePlayer(playerID uuid.UUID) error {
	m.m.Lock()
	defer m.m.Unlock()
	for i, p := range m.players {
		if p.ID != playerID {
			continue
		}
		m.players = append(m.players[:i], m.players[i+1:]...)
		m.logger.Debug("player left", zap.String("player_name", p.Name))
		if len(m.players) == 0 {
			m.reset(false)
		}
		return nil
	}
	return errors.NewNotFoundError(errors.KindUnknownPlayer, "player not found",
		errors.Details{"player_id": playerID})
}

// Player returns the player with the given id.
func (m *Match) Player(playerID uuid.UUID) (Player, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.playerByID(playerID)
}

// Players returns all players in join order.
func (m *Match) Players() []Player {
	m.m.RLock()
	defer m.m.RUnlock()
	players := make([]Player, len(m.players))
	copy(players, m.players)
	return players
}

// IsPlayerOnTeam checks whether the player with the given id exists and
// belongs to the team with the given id.
func (m *Match) IsPlayerOnTeam(playerID uuid.UUID, teamID uuid.UUID) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	p, err := m.playerByID(playerID)
	return err == nil && p.IsOnTeam(teamID)
}

// Team returns the status of the team with the given id.
func (m *Match) Team(teamID uuid.UUID) (TeamStatus, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	t, err := m.teamByID(teamID)
	if err != nil {
		return TeamStatus{}, err
	}
	return t.status(m.flagsRevealed()), nil
}

// Teams returns the status of all teams in registration order.
func (m *Match) Teams() []TeamStatus {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.teamStatuses()
}

// AllFlagsRegistered returns whether every team has registered its flag.
func (m *Match) AllFlagsRegistered() bool {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.allFlagsRegistered()
}

// SendMessage appends a global chat message from the player with the given id
// and broadcasts it.
func (m *Match) SendMessage(senderID uuid.UUID, content string) (ChatMessage, error) {
	m.m.Lock()
	defer m.m.Unlock()
	sender, err := m.playerByID(senderID)
	if err != nil {
		return ChatMessage{}, errors.Wrap(err, "sender by id", nil)
	}
	message := m.nextMessage(sender, content, uuid.NullUUID{})
	m.messages = append(m.messages, message)
	m.broadcaster.BroadcastMessage(message)
	return message, nil
}

// SendTeamMessage appends a chat message to the log of the team with the given
// id and broadcasts it. The sender must be a member of the team or privileged.
func (m *Match) SendTeamMessage(teamID uuid.UUID, senderID uuid.UUID, content string) (ChatMessage, error) {
	m.m.Lock()
	defer m.m.Unlock()
	t, err := m.teamByID(teamID)
	if err != nil {
		return ChatMessage{}, errors.Wrap(err, "team by id", nil)
	}
	sender, err := m.playerByID(senderID)
	if err != nil {
		return ChatMessage{}, errors.Wrap(err, "sender by id", nil)
	}
	if !sender.Privileged && !sender.IsOnTeam(t.id) {
		return ChatMessage{}, errors.NewBadRequestError(errors.KindNotTeamMember, "sender is not a member of the team",
			errors.Details{"player_id": sender.ID, "team_id": t.id})
	}
	message := m.nextMessage(sender, content, uuid.NullUUID{UUID: t.id, Valid: true})
	t.messages = append(t.messages, message)
	m.broadcaster.BroadcastMessage(message)
	return message, nil
}

// Messages returns a page of the global chat log.
func (m *Match) Messages(start int, count int) MessagePage {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.messages.page(start, count)
}

// TeamMessages returns a page of the chat log for the team with the given id.
func (m *Match) TeamMessages(teamID uuid.UUID, start int, count int) (MessagePage, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	t, err := m.teamByID(teamID)
	if err != nil {
		return MessagePage{}, errors.Wrap(err, "team by id", nil)
	}
	return t.messages.page(start, count), nil
}

// nextMessage creates a ChatMessage with the next id. The caller must hold m.
func (m *Match) nextMessage(sender Player, content string, scope uuid.NullUUID) ChatMessage {
	m.messageCounter++
	return ChatMessage{
		ID:        m.messageCounter,
		Content:   content,
		Sender:    sender,
		Scope:     scope,
		Timestamp: m.clock.Now(),
	}
}

// playerByID returns the player with the given id. The caller must hold m.
func (m *Match) playerByID(playerID uuid.UUID) (Player, error) {
	for _, p := range m.players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return Player{}, errors.NewNotFoundError(errors.KindUnknownPlayer, "player not found",
		errors.Details{"player_id": playerID})
}

// teamByID returns the team with the given id. The caller must hold m.
func (m *Match) teamByID(teamID uuid.UUID) (*team, error) {
	for _, t := range m.teams {
		if t.id == teamID {
			return t, nil
		}
	}
	return nil, errors.NewNotFoundError(errors.KindUnknownTeam, "team not found",
		errors.Details{"team_id": teamID})
}

// allFlagsRegistered checks whether every team has registered its flag. The
// caller must hold m.
func (m *Match) allFlagsRegistered() bool {
	for _, t := range m.teams {
		if !t.registered {
			return false
		}
	}
	return true
}

// missingFlags returns the names of the teams that did not register their flag
// yet. The caller must hold m.
func (m *Match) missingFlags() []string {
	missing := make([]string, 0)
	for _, t := range m.teams {
		if !t.registered {
			missing = append(missing, t.name)
		}
	}
	return missing
}
