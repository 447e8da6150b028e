package games

import (
	"encoding/json"
	"github.com/google/uuid"
	"time"
)

// Status is a consistent snapshot of the match.
type Status struct {
	Phase Phase
	// Remaining is the remaining time of the current phase. It is never negative
	// and never exceeds the phase duration.
	Remaining time.Duration
	Paused    bool
	Emergency bool
	// Frozen is set when the grace period expired while flags are missing.
	Frozen bool
	// Winner is the team that declared victory. Only valid in PhaseEnded.
	Winner  uuid.NullUUID
	Players []Player
	Teams   []TeamStatus
	Map     MapConfig
}

type statusJSON struct {
	Phase     Phase         `json:"state"`
	Remaining int64         `json:"duration"`
	Paused    bool          `json:"paused"`
	Emergency bool          `json:"emergency"`
	Frozen    bool          `json:"frozen"`
	Winner    uuid.NullUUID `json:"winner"`
	Players   []Player      `json:"players"`
	Teams     []TeamStatus  `json:"teams"`
	Map       MapConfig     `json:"map"`
}

// MarshalJSON encodes the Status with the remaining time in milliseconds.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{
		Phase:     s.Phase,
		Remaining: s.Remaining.Milliseconds(),
		Paused:    s.Paused,
		Emergency: s.Emergency,
		Frozen:    s.Frozen,
		Winner:    s.Winner,
		Players:   s.Players,
		Teams:     s.Teams,
		Map:       s.Map,
	})
}

// Status returns a snapshot of the current match state.
func (m *Match) Status() Status {
	m.m.RLock()
	defer m.m.RUnlock()
	players := make([]Player, len(m.players))
	copy(players, m.players)
	s := Status{
		Phase:     m.phase,
		Remaining: m.remainingForStatus(),
		Paused:    m.paused,
		Emergency: m.emergency,
		Frozen:    m.isFrozen(),
		Players:   players,
		Teams:     m.teamStatuses(),
		Map:       m.config.Map,
	}
	if m.phase == PhaseEnded {
		s.Winner = m.winner
	}
	return s
}

// remainingForStatus returns the remaining phase time clamped to
// [0, phaseDuration]. The caller must hold m.
func (m *Match) remainingForStatus() time.Duration {
	switch {
	case m.phase == PhaseWaitingToStart:
		return m.phaseDuration
	case m.phase == PhaseEnded:
		return 0
	case m.paused:
		return clampDuration(m.remaining, m.phaseDuration)
	}
	return m.remainingRunning()
}

// isFrozen describes whether the grace period expired while flags are missing.
// The caller must hold m.
func (m *Match) isFrozen() bool {
	return m.paused && m.phase == PhaseGracePeriod && m.remaining <= 0
}

// flagsRevealed describes whether flag locations are public. The caller must
// hold m.
func (m *Match) flagsRevealed() bool {
	return m.phase == PhaseFFAPeriod || m.phase == PhaseEnded
}

// teamStatuses projects all teams. The caller must hold m.
func (m *Match) teamStatuses() []TeamStatus {
	revealFlags := m.flagsRevealed()
	teams := make([]TeamStatus, 0, len(m.teams))
	for _, t := range m.teams {
		teams = append(teams, t.status(revealFlags))
	}
	return teams
}
