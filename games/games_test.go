package games

import (
	"encoding/json"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/ctf-server/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestPhaseSequence(t *testing.T) {
	assert.Equal(t, PhaseScoutPeriod, nextPhase(PhaseGracePeriod))
	assert.Equal(t, PhaseFFAPeriod, nextPhase(PhaseScoutPeriod))
	assert.Equal(t, PhaseEnded, nextPhase(PhaseFFAPeriod))
	assert.Equal(t, PhaseEnded, nextPhase(PhaseEnded))
	assert.Equal(t, PhaseWaitingToStart, nextPhase(PhaseWaitingToStart))
	assert.Equal(t, PhaseFFAPeriod, previousPhase(PhaseEnded))
	assert.Equal(t, PhaseScoutPeriod, previousPhase(PhaseFFAPeriod))
	assert.Equal(t, PhaseGracePeriod, previousPhase(PhaseScoutPeriod))
	assert.Equal(t, PhaseWaitingToStart, previousPhase(PhaseGracePeriod))
	assert.Equal(t, PhaseWaitingToStart, previousPhase(PhaseWaitingToStart))
}

func TestPhaseDisplayName(t *testing.T) {
	assert.Equal(t, "Grace period", PhaseDisplayName(PhaseGracePeriod))
	assert.Equal(t, "Free-for-all", PhaseDisplayName(PhaseFFAPeriod))
	assert.Equal(t, "unknown", PhaseDisplayName("unknown"))
}

func TestPhaseNotificationRoundsMinutes(t *testing.T) {
	config := Config{GraceTime: 150 * time.Second, ScoutTime: 89 * time.Second, FFATime: 30 * time.Minute}
	_, body := phaseNotification(PhaseGracePeriod, config)
	assert.Contains(t, body, "You have 3 minutes")
	_, body = phaseNotification(PhaseScoutPeriod, config)
	assert.Contains(t, body, "You have 1 minutes")
	title, body := phaseNotification(PhaseFFAPeriod, config)
	assert.Equal(t, "Flags have been revealed!", title)
	assert.Contains(t, body, "You have 30 minutes")
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, Settings{}.validate(), "empty settings should be valid")
	assert.NoError(t, Settings{GraceTime: nulls.NewInt(1)}.validate())
	err := Settings{MapHeight: nulls.NewInt(-2)}.validate()
	require.Error(t, err)
	assert.True(t, errors.HasKind(err, errors.KindInvalidSettings))
}

func TestSettingsJSON(t *testing.T) {
	var s Settings
	require.NoError(t, json.Unmarshal([]byte(`{"scout_time": 120, "map_width": null}`), &s))
	c := s.apply(Config{ScoutTime: time.Second, Map: MapConfig{Width: 5}})
	assert.Equal(t, 2*time.Minute, c.ScoutTime)
	assert.Equal(t, 5, c.Map.Width, "null should keep value")
}

func TestStatusJSON(t *testing.T) {
	s := Status{
		Phase:     PhaseScoutPeriod,
		Remaining: 1500 * time.Millisecond,
		Players:   []Player{},
		Teams:     []TeamStatus{},
	}
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "scout", decoded["state"])
	assert.EqualValues(t, 1500, decoded["duration"])
	assert.Nil(t, decoded["winner"])
}
