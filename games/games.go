// Package games holds the match orchestrator for a capture-the-flag match. A
// single Match owns the phase state machine, the roster and the chat ledger.
// All operations serialize on the match lock and report state changes to a
// Broadcaster and Notifier.
package games

import (
	"fmt"
	"math"
	"time"
)

// Phase is a stage of the match's timed lifecycle.
type Phase string

const (
	// PhaseWaitingToStart is used before the match starts. Players may join
	// freely.
	PhaseWaitingToStart Phase = "ready"
	// PhaseGracePeriod is used for teams hiding and registering their flags.
	PhaseGracePeriod Phase = "grace"
	// PhaseScoutPeriod is used for scouting. Flags can be stolen but locations
	// are not revealed yet.
	PhaseScoutPeriod Phase = "scout"
	// PhaseFFAPeriod is the free-for-all where flag locations are revealed.
	PhaseFFAPeriod Phase = "ffa"
	// PhaseEnded is used when the match has ended.
	PhaseEnded Phase = "ended"
)

// RewindTolerance is the maximum time within a phase for which a rewind steps
// back to the previous phase instead of restarting the current one.
const RewindTolerance = 5000 * time.Millisecond

// PhaseDisplayName maps the given Phase to a human-readable name.
func PhaseDisplayName(phase Phase) string {
	switch phase {
	case PhaseWaitingToStart:
		return "Waiting to start"
	case PhaseGracePeriod:
		return "Grace period"
	case PhaseScoutPeriod:
		return "Scout period"
	case PhaseFFAPeriod:
		return "Free-for-all"
	case PhaseEnded:
		return "Ended"
	}
	return string(phase)
}

// isRunning describes whether the phase is one of the timed phases.
func (phase Phase) isRunning() bool {
	return phase == PhaseGracePeriod || phase == PhaseScoutPeriod || phase == PhaseFFAPeriod
}

// nextPhase returns the phase following the given one. Phases without a
// successor return themselves.
func nextPhase(phase Phase) Phase {
	switch phase {
	case PhaseGracePeriod:
		return PhaseScoutPeriod
	case PhaseScoutPeriod:
		return PhaseFFAPeriod
	case PhaseFFAPeriod:
		return PhaseEnded
	}
	return phase
}

// previousPhase returns the phase preceding the given one. PhaseWaitingToStart
// is the floor.
func previousPhase(phase Phase) Phase {
	switch phase {
	case PhaseScoutPeriod:
		return PhaseGracePeriod
	case PhaseFFAPeriod:
		return PhaseScoutPeriod
	case PhaseEnded:
		return PhaseFFAPeriod
	}
	return PhaseWaitingToStart
}

// roundMinutes rounds the given duration to full minutes.
func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// phaseNotification returns the title and body of the push notification that
// announces the given phase.
func phaseNotification(phase Phase, config Config) (string, string) {
	switch phase {
	case PhaseGracePeriod:
		return "The game has begun", fmt.Sprintf("The grace period has started. You have %d minutes to hide and register your flag.",
			roundMinutes(config.GraceTime))
	case PhaseScoutPeriod:
		return "The scouting period has commenced", fmt.Sprintf("Flags can now be stolen. You have %d minutes until the flag locations are revealed.",
			roundMinutes(config.ScoutTime))
	case PhaseFFAPeriod:
		return "Flags have been revealed!", fmt.Sprintf("Check the map on the website to see where the flags are located. You have %d minutes until the game finishes.",
			roundMinutes(config.FFATime))
	case PhaseEnded:
		return "The game has ended", "Return to the rendezvous point."
	}
	return "Capture the Flag", fmt.Sprintf("The match is now in phase: %s.", PhaseDisplayName(phase))
}
