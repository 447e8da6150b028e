package games

import (
	"fmt"
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/scheduling"
	"go.uber.org/zap"
	"sync"
	"time"
)

// MatchDeps are the collaborators of a Match. Nil fields are replaced with
// defaults in NewMatch.
type MatchDeps struct {
	// Broadcaster receives state changes, announcements and chat messages. If not
	// set, broadcasts are discarded.
	Broadcaster Broadcaster
	// Notifier receives push notifications. If not set, notifications are
	// discarded.
	Notifier Notifier
	// Timer is used for phase expiry. Defaults to scheduling.NewTimer.
	Timer scheduling.Timer
	// Clock provides the current time. Defaults to scheduling.NewClock.
	Clock scheduling.Clock
}

// Match is the orchestrator for a capture-the-flag match. It owns the phase
// state machine, the roster and the chat ledger. All operations are safe for
// concurrent use.
type Match struct {
	logger      *zap.Logger
	broadcaster Broadcaster
	notifier    Notifier
	timer       scheduling.Timer
	clock       scheduling.Clock
	// m locks all following fields.
	m      sync.RWMutex
	config Config
	phase  Phase
	paused bool
	// phaseDuration is the full duration of the current phase. While waiting to
	// start, this is the grace time.
	phaseDuration time.Duration
	// phaseStart is the (possibly shifted) time the current phase started at.
	// Only meaningful while not paused.
	phaseStart time.Time
	// remaining is the snapshot of the remaining phase time. Only meaningful
	// while paused.
	remaining time.Duration
	// timerToken identifies the currently armed timer callback. It is increased
	// whenever the timer is armed or cancelled so that callbacks from superseded
	// timers are ignored.
	timerToken uint64
	// winner is the team that declared victory. Only valid in PhaseEnded.
	winner    uuid.NullUUID
	emergency bool
	// messageCounter is the id of the last chat message for both global and team
	// messages.
	messageCounter int
	messages       messageLog
	teams          []*team
	players        []Player
}

// NewMatch creates a new Match that is waiting to start. Teams from the
// config are registered up to Config.MaxTeams. Duplicate team names result in
// an errors.ErrFatal error.
func NewMatch(logger *zap.Logger, config Config, deps MatchDeps) (*Match, error) {
	m := &Match{
		logger:        logger,
		broadcaster:   deps.Broadcaster,
		notifier:      deps.Notifier,
		timer:         deps.Timer,
		clock:         deps.Clock,
		config:        config,
		phase:         PhaseWaitingToStart,
		phaseDuration: config.GraceTime,
		teams:         make([]*team, 0, len(config.Teams)),
		players:       make([]Player, 0),
	}
	if m.broadcaster == nil {
		m.broadcaster = nopBroadcaster{}
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.timer == nil {
		m.timer = scheduling.NewTimer()
	}
	if m.clock == nil {
		m.clock = scheduling.NewClock()
	}
	err := m.registerTeams(config.Teams, config.MaxTeams)
	if err != nil {
		return nil, errors.Wrap(err, "register teams", nil)
	}
	return m, nil
}

// registerTeams registers the first max teams. If max is not positive, all are
// registered.
func (m *Match) registerTeams(teams []TeamConfig, max int) error {
	if max > 0 && len(teams) > max {
		teams = teams[:max]
	}
	for _, teamConfig := range teams {
		for _, existing := range m.teams {
			if existing.name == teamConfig.Name {
				return errors.NewFatalError(errors.KindTeamRegistrationFailed, nil, "duplicate team name",
					errors.Details{"team_name": teamConfig.Name})
			}
		}
		m.teams = append(m.teams, newTeam(teamConfig.Name, teamConfig.Color))
	}
	return nil
}

// Start starts the match with the grace period. Only allowed while waiting to
// start or after the match ended.
func (m *Match) Start() error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.phase != PhaseWaitingToStart && m.phase != PhaseEnded {
		return errors.NewStateConflictError(errors.KindMatchPhaseViolation, "cannot start match in this phase",
			errors.Details{"phase": m.phase})
	}
	m.goTo(PhaseGracePeriod, true)
	return nil
}

// Pause pauses the running match and sends a pause notification.
func (m *Match) Pause() error {
	m.m.Lock()
	defer m.m.Unlock()
	return m.pause(true)
}

// pause pauses the running match and snapshots the remaining phase time. The
// caller must hold m.
func (m *Match) pause(announce bool) error {
	if !m.phase.isRunning() {
		return errors.NewStateConflictError(errors.KindMatchPhaseViolation, "cannot pause match that is not running",
			errors.Details{"phase": m.phase})
	}
	if m.paused {
		return errors.NewStateConflictError(errors.KindAlreadyPaused, "match already paused", nil)
	}
	m.cancelTimer()
	m.remaining = m.remainingRunning()
	m.paused = true
	m.logger.Debug("match paused",
		zap.Any("phase", m.phase),
		zap.Duration("remaining", m.remaining))
	if announce {
		m.notifier.NotifyAll("The game has been paused", "Check the global chat for more information")
	}
	m.broadcastState(m.remaining)
	return nil
}

// Resume resumes the paused match. If the grace period already expired while
// flags are missing, resume is refused. If the grace period expired and all
// flags are registered, the match continues with the scout period.
func (m *Match) Resume() error {
	m.m.Lock()
	defer m.m.Unlock()
	return m.resume()
}

// resume is the implementation of Resume. The caller must hold m.
func (m *Match) resume() error {
	if !m.paused {
		return errors.NewStateConflictError(errors.KindNotPaused, "match not paused", nil)
	}
	if m.phase == PhaseGracePeriod && m.remaining <= 0 {
		if !m.allFlagsRegistered() {
			return errors.NewStateConflictError(errors.KindFlagsNotRegistered, "cannot resume until all flags are registered",
				errors.Details{"missing": m.missingFlags()})
		}
		m.goTo(PhaseScoutPeriod, true)
		return nil
	}
	remaining := m.remaining
	m.paused = false
	m.phaseStart = m.clock.Now().Add(remaining - m.phaseDuration)
	m.remaining = 0
	m.logger.Debug("match resumed",
		zap.Any("phase", m.phase),
		zap.Duration("remaining", remaining))
	m.broadcastState(remaining)
	m.armTimer(remaining)
	return nil
}

// Skip advances to the next phase regardless of the phase timer. A running
// match behaves as if the timer expired. A paused match moves to the next
// phase and stays paused with the full duration of the new phase.
func (m *Match) Skip() error {
	m.m.Lock()
	defer m.m.Unlock()
	if !m.phase.isRunning() {
		return errors.NewStateConflictError(errors.KindMatchPhaseViolation, "cannot skip match that is not running",
			errors.Details{"phase": m.phase})
	}
	if !m.paused {
		m.advance()
		return nil
	}
	if m.phase == PhaseGracePeriod && m.remaining <= 0 && !m.allFlagsRegistered() {
		return errors.NewStateConflictError(errors.KindFlagsNotRegistered, "cannot skip until all flags are registered",
			errors.Details{"missing": m.missingFlags()})
	}
	next := nextPhase(m.phase)
	if !next.isRunning() {
		m.goTo(next, false)
		return nil
	}
	m.holdPaused(next)
	return nil
}

// Rewind moves back in the phase sequence. Within RewindTolerance of the phase
// start, the previous phase is entered with its full duration. Otherwise, the
// current phase restarts. A paused match stays paused.
func (m *Match) Rewind() error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.phase == PhaseWaitingToStart {
		return errors.NewStateConflictError(errors.KindMatchPhaseViolation, "cannot rewind match that is not running or ended",
			errors.Details{"phase": m.phase})
	}
	var elapsed time.Duration
	if m.paused {
		elapsed = m.phaseDuration - m.remaining
	} else {
		elapsed = m.clock.Now().Sub(m.phaseStart)
	}
	target := m.phase
	if elapsed <= RewindTolerance {
		target = previousPhase(m.phase)
	}
	m.logger.Debug("rewind match",
		zap.Any("from", m.phase),
		zap.Any("to", target),
		zap.Duration("elapsed", elapsed))
	if !m.paused || !target.isRunning() {
		m.goTo(target, false)
		return nil
	}
	m.holdPaused(target)
	return nil
}

// End ends the running match.
func (m *Match) End() error {
	m.m.Lock()
	defer m.m.Unlock()
	return m.end()
}

// end is the implementation of End. The caller must hold m.
func (m *Match) end() error {
	if !m.phase.isRunning() {
		return errors.NewStateConflictError(errors.KindMatchPhaseViolation, "cannot end match that is not running",
			errors.Details{"phase": m.phase})
	}
	m.goTo(PhaseEnded, true)
	return nil
}

// Reset returns the match to PhaseWaitingToStart and resets all teams. A hard
// reset also removes all players and messages.
func (m *Match) Reset(hard bool) {
	m.m.Lock()
	defer m.m.Unlock()
	m.reset(hard)
}

// reset is the implementation of Reset. The caller must hold m.
func (m *Match) reset(hard bool) {
	m.cancelTimer()
	m.phase = PhaseWaitingToStart
	m.paused = false
	m.phaseDuration = m.config.GraceTime
	m.phaseStart = time.Time{}
	m.remaining = 0
	m.winner = uuid.NullUUID{}
	for _, t := range m.teams {
		t.reset()
	}
	if hard {
		m.players = make([]Player, 0)
		m.messages = nil
		m.messageCounter = 0
		m.broadcaster.BroadcastAnnouncement(AnnouncementReset, nulls.String{})
	}
	m.logger.Debug("match reset", zap.Bool("hard", hard))
	m.broadcastState(m.phaseDuration)
}

// DeclareVictory lets the team with the given id win and ends the match. Only
// allowed in the scout and free-for-all period.
func (m *Match) DeclareVictory(teamID uuid.UUID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.phase != PhaseScoutPeriod && m.phase != PhaseFFAPeriod {
		return errors.NewStateConflictError(errors.KindMatchPhaseViolation, "cannot declare victory in this phase",
			errors.Details{"phase": m.phase})
	}
	t, err := m.teamByID(teamID)
	if err != nil {
		return errors.Wrap(err, "team by id", nil)
	}
	m.winner = uuid.NullUUID{UUID: t.id, Valid: true}
	m.notifier.NotifyAll(fmt.Sprintf("Team %s has declared victory!", t.name),
		"The game has concluded. Please return to the rendezvous point.")
	m.broadcaster.BroadcastAnnouncement(AnnouncementVictory, nulls.NewString(t.id.String()))
	return m.end()
}

// DeclareEmergency sets the emergency flag and pauses the match if possible.
func (m *Match) DeclareEmergency() {
	m.m.Lock()
	defer m.m.Unlock()
	m.declareEmergency()
}

// declareEmergency is the implementation of DeclareEmergency. The caller must
// hold m.
func (m *Match) declareEmergency() {
	m.emergency = true
	err := m.pause(false)
	if err != nil {
		m.logger.Debug("could not pause match for emergency", zap.Error(err))
	}
	m.logger.Warn("emergency declared")
	m.notifier.NotifyAll("EMERGENCY DECLARED",
		"An emergency has been declared. Return to the rendezvous point immediately")
}

// ReleaseEmergency clears the emergency flag. The match stays paused.
func (m *Match) ReleaseEmergency() {
	m.m.Lock()
	defer m.m.Unlock()
	m.emergency = false
	m.logger.Info("emergency released")
	m.notifier.NotifyAll("Emergency state has been lifted",
		"Check the global chat for further information if needed.")
	m.broadcaster.BroadcastAnnouncement(AnnouncementRelease, nulls.String{})
}

// EmergencyDeclared returns whether an emergency is currently declared.
func (m *Match) EmergencyDeclared() bool {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.emergency
}

// Announce broadcasts an operator announcement. AnnouncementEmergency declares
// an emergency first.
func (m *Match) Announce(kind AnnouncementKind, payload nulls.String) {
	m.m.Lock()
	defer m.m.Unlock()
	if kind == AnnouncementEmergency {
		m.declareEmergency()
	}
	m.broadcaster.BroadcastAnnouncement(kind, payload)
}

// RegisterFlag registers the flag location for the team with the given id.
// Only allowed in the grace period. If this completes flag registration for a
// match that was frozen because of missing flags, the match resumes with the
// scout period.
func (m *Match) RegisterFlag(teamID uuid.UUID, location Coordinates) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.phase != PhaseGracePeriod {
		return errors.NewStateConflictError(errors.KindMatchPhaseViolation, "flags can only be registered during grace period",
			errors.Details{"phase": m.phase})
	}
	t, err := m.teamByID(teamID)
	if err != nil {
		return errors.Wrap(err, "team by id", nil)
	}
	t.registerFlag(location)
	m.logger.Debug("flag registered",
		zap.String("team_name", t.name),
		zap.Int("x", location.X),
		zap.Int("y", location.Y))
	if m.paused && m.remaining <= 0 && m.allFlagsRegistered() {
		err = m.resume()
		if err != nil {
			return errors.Wrap(err, "resume after flag registration", nil)
		}
	}
	m.broadcaster.BroadcastAnnouncement(AnnouncementRegister, nulls.NewString(t.id.String()))
	return nil
}

// Merge applies the given settings to the match config. Only allowed while
// waiting to start.
func (m *Match) Merge(settings Settings) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.phase != PhaseWaitingToStart {
		return errors.NewStateConflictError(errors.KindSettingsLocked, "settings can only be changed before the match",
			errors.Details{"phase": m.phase})
	}
	err := settings.validate()
	if err != nil {
		return errors.Wrap(err, "validate settings", nil)
	}
	m.config = settings.apply(m.config)
	m.phaseDuration = m.config.GraceTime
	m.logger.Debug("settings merged",
		zap.Duration("grace_time", m.config.GraceTime),
		zap.Duration("scout_time", m.config.ScoutTime),
		zap.Duration("ffa_time", m.config.FFATime))
	m.broadcastState(m.phaseDuration)
	return nil
}

// Config returns the current match config.
func (m *Match) Config() Config {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.config
}

// advance handles phase expiry. An expired grace period with missing flags
// freezes the match instead of progressing. The caller must hold m.
func (m *Match) advance() {
	switch m.phase {
	case PhaseGracePeriod:
		if !m.allFlagsRegistered() {
			m.freeze()
			return
		}
		m.goTo(PhaseScoutPeriod, true)
	case PhaseScoutPeriod:
		m.goTo(PhaseFFAPeriod, true)
	case PhaseFFAPeriod:
		m.goTo(PhaseEnded, true)
	}
}

// freeze pauses the grace period with no time remaining until all flags are
// registered. The caller must hold m.
func (m *Match) freeze() {
	m.cancelTimer()
	m.paused = true
	m.remaining = 0
	m.logger.Info("match frozen because of missing flags", zap.Any("missing", m.missingFlags()))
	m.broadcastState(0)
	m.notifier.NotifyAll("Waiting for all flags to be registered",
		"The game will resume once all teams have registered their flags")
	m.broadcaster.BroadcastAnnouncement(AnnouncementFrozen, nulls.String{})
}

// goTo enters the given phase with its full duration, unpaused. Running phases
// arm the timer. The caller must hold m.
func (m *Match) goTo(phase Phase, notify bool) {
	m.cancelTimer()
	if phase != PhaseEnded {
		m.winner = uuid.NullUUID{}
	}
	duration := m.config.durationFor(phase)
	if phase == PhaseWaitingToStart {
		duration = m.config.GraceTime
	}
	m.phase = phase
	m.paused = false
	m.phaseDuration = duration
	m.phaseStart = m.clock.Now()
	m.remaining = 0
	m.logger.Debug("enter phase",
		zap.Any("phase", phase),
		zap.Duration("duration", duration))
	m.broadcastState(duration)
	if notify {
		m.notifier.NotifyAll(phaseNotification(phase, m.config))
	}
	if phase.isRunning() {
		m.armTimer(duration)
	}
}

// holdPaused enters the given running phase but keeps the match paused with
// the full phase duration remaining. The caller must hold m.
func (m *Match) holdPaused(phase Phase) {
	m.cancelTimer()
	m.winner = uuid.NullUUID{}
	m.phase = phase
	m.paused = true
	m.phaseDuration = m.config.durationFor(phase)
	m.remaining = m.phaseDuration
	m.logger.Debug("enter phase paused",
		zap.Any("phase", phase),
		zap.Duration("duration", m.phaseDuration))
	m.broadcastState(m.remaining)
}

// armTimer arms the phase timer with a new token. The caller must hold m.
func (m *Match) armTimer(d time.Duration) {
	m.timerToken++
	token := m.timerToken
	m.timer.Arm(d, func() {
		m.onTimer(token)
	})
}

// cancelTimer cancels the phase timer and invalidates its token. The caller
// must hold m.
func (m *Match) cancelTimer() {
	m.timerToken++
	m.timer.Cancel()
}

// onTimer is called when the phase timer with the given token fires.
func (m *Match) onTimer(token uint64) {
	m.m.Lock()
	defer m.m.Unlock()
	if token != m.timerToken {
		m.logger.Debug("drop stale phase timer")
		return
	}
	m.advance()
}

// remainingRunning returns the remaining time of the running phase, clamped to
// [0, phaseDuration]. The caller must hold m.
func (m *Match) remainingRunning() time.Duration {
	return clampDuration(m.phaseDuration-m.clock.Now().Sub(m.phaseStart), m.phaseDuration)
}

// broadcastState broadcasts the current phase and pause state with the given
// remaining time. The caller must hold m.
func (m *Match) broadcastState(remaining time.Duration) {
	m.broadcaster.BroadcastState(m.phase, clampDuration(remaining, m.phaseDuration), m.paused)
}

// clampDuration clamps d to [0, max]. Negative max values are treated as zero.
func clampDuration(d time.Duration, max time.Duration) time.Duration {
	if max < 0 {
		max = 0
	}
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastState(_ Phase, _ time.Duration, _ bool) {}

func (nopBroadcaster) BroadcastAnnouncement(_ AnnouncementKind, _ nulls.String) {}

func (nopBroadcaster) BroadcastMessage(_ ChatMessage) {}

type nopNotifier struct{}

func (nopNotifier) NotifyAll(_ string, _ string) {}
