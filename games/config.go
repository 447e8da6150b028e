package games

import (
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/ctf-server/errors"
	"time"
)

// TeamConfig is the configuration for a team that is registered on match
// creation.
type TeamConfig struct {
	// Name is the unique name of the team.
	Name string `json:"name"`
	// Color is the display color of the team.
	Color string `json:"color"`
}

// MapConfig holds the dimensions of the playing field map.
type MapConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Config is the configuration for a Match.
type Config struct {
	// GraceTime is the duration of PhaseGracePeriod.
	GraceTime time.Duration
	// ScoutTime is the duration of PhaseScoutPeriod.
	ScoutTime time.Duration
	// FFATime is the duration of PhaseFFAPeriod.
	FFATime time.Duration
	// MaxTeams is the maximum number of teams from Teams to register. If not
	// positive, all teams are registered.
	MaxTeams int
	// Teams to register on match creation.
	Teams []TeamConfig
	// Map is the playing field map.
	Map MapConfig
}

// MaxPhaseSeconds is the upper bound for configured phase durations in
// seconds.
const MaxPhaseSeconds = 7 * 24 * 60 * 60

// durationFor returns the configured duration for the given Phase.
func (c Config) durationFor(phase Phase) time.Duration {
	switch phase {
	case PhaseGracePeriod:
		return c.GraceTime
	case PhaseScoutPeriod:
		return c.ScoutTime
	case PhaseFFAPeriod:
		return c.FFATime
	}
	return 0
}

// Settings is a partial update for the Config that may be merged before the
// match starts. Durations are in seconds.
type Settings struct {
	GraceTime nulls.Int `json:"grace_time"`
	ScoutTime nulls.Int `json:"scout_time"`
	FFATime   nulls.Int `json:"ffa_time"`
	MapWidth  nulls.Int `json:"map_width"`
	MapHeight nulls.Int `json:"map_height"`
}

// validate assures that all set values are positive and that durations do not
// exceed MaxPhaseSeconds.
func (s Settings) validate() error {
	values := map[string]nulls.Int{
		"grace_time": s.GraceTime,
		"scout_time": s.ScoutTime,
		"ffa_time":   s.FFATime,
		"map_width":  s.MapWidth,
		"map_height": s.MapHeight,
	}
	for name, v := range values {
		if v.Valid && v.Int <= 0 {
			return errors.NewBadRequestError(errors.KindInvalidSettings, "settings must be positive",
				errors.Details{"setting": name, "was": v.Int})
		}
	}
	durations := map[string]nulls.Int{
		"grace_time": s.GraceTime,
		"scout_time": s.ScoutTime,
		"ffa_time":   s.FFATime,
	}
	for name, v := range durations {
		if v.Valid && v.Int > MaxPhaseSeconds {
			return errors.NewBadRequestError(errors.KindInvalidSettings, "duration too long",
				errors.Details{"setting": name, "was": v.Int, "max": MaxPhaseSeconds})
		}
	}
	return nil
}

// apply returns the given Config with all set values from the Settings.
func (s Settings) apply(c Config) Config {
	if s.GraceTime.Valid {
		c.GraceTime = time.Duration(s.GraceTime.Int) * time.Second
	}
	if s.ScoutTime.Valid {
		c.ScoutTime = time.Duration(s.ScoutTime.Int) * time.Second
	}
	if s.FFATime.Valid {
		c.FFATime = time.Duration(s.FFATime.Int) * time.Second
	}
	if s.MapWidth.Valid {
		c.Map.Width = s.MapWidth.Int
	}
	if s.MapHeight.Valid {
		c.Map.Height = s.MapHeight.Int
	}
	return c
}
