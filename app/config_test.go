package app

import (
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		WebServerAddr: ":8080",
		Game: GameConfig{
			GraceTime: 300,
			ScoutTime: 600,
			FFATime:   1800,
			Teams: []games.TeamConfig{
				{Name: "red", Color: "#ff0000"},
				{Name: "blue", Color: "#0000ff"},
			},
			Map: games.MapConfig{Width: 800, Height: 600},
		},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		ok     bool
	}{
		{
			name:   "ok",
			modify: func(_ *Config) {},
			ok:     true,
		},
		{
			name:   "missing web server addr",
			modify: func(c *Config) { c.WebServerAddr = "" },
		},
		{
			name:   "empty mqtt addr",
			modify: func(c *Config) { c.MQTTAddr = nulls.NewString("") },
		},
		{
			name:   "mqtt addr",
			modify: func(c *Config) { c.MQTTAddr = nulls.NewString("mqtt://localhost:1883") },
			ok:     true,
		},
		{
			name:   "zero grace time",
			modify: func(c *Config) { c.Game.GraceTime = 0 },
		},
		{
			name:   "negative scout time",
			modify: func(c *Config) { c.Game.ScoutTime = -1 },
		},
		{
			name:   "zero ffa time",
			modify: func(c *Config) { c.Game.FFATime = 0 },
		},
		{
			name:   "max grace time",
			modify: func(c *Config) { c.Game.GraceTime = games.MaxPhaseSeconds },
			ok:     true,
		},
		{
			name:   "overflowing grace time",
			modify: func(c *Config) { c.Game.GraceTime = 9300000000 },
		},
		{
			name:   "ffa time above max",
			modify: func(c *Config) { c.Game.FFATime = games.MaxPhaseSeconds + 1 },
		},
		{
			name:   "no teams",
			modify: func(c *Config) { c.Game.Teams = nil },
		},
		{
			name:   "negative max teams",
			modify: func(c *Config) { c.Game.MaxTeams = -1 },
		},
		{
			name:   "zero debug stats interval",
			modify: func(c *Config) { c.Log.SystemDebugStatsInterval = nulls.NewInt(0) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modify(&config)
			err := ValidateConfig(config)
			if tt.ok {
				assert.NoError(t, err, "should not fail")
				return
			}
			require.Error(t, err, "should fail")
			assert.True(t, errors.HasKind(err, errors.KindInvalidConfig), "should have correct kind")
		})
	}
}

func TestGameConfig_matchConfig(t *testing.T) {
	c := validConfig().Game
	c.MaxTeams = 4
	got := c.matchConfig()
	assert.Equal(t, 5*time.Minute, got.GraceTime)
	assert.Equal(t, 10*time.Minute, got.ScoutTime)
	assert.Equal(t, 30*time.Minute, got.FFATime)
	assert.Equal(t, 4, got.MaxTeams)
	assert.Equal(t, c.Teams, got.Teams)
	assert.Equal(t, c.Map, got.Map)
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"web_server_addr": ":9000",
		"mqtt_addr": "mqtt://broker:1883",
		"log": {"stdout_log_level": "warn", "debug_output": "/tmp/ctf-debug.log"},
		"push": {"subscriber": "referee@example.com"},
		"game": {
			"grace_time": 60,
			"scout_time": 120,
			"ffa_time": 180,
			"teams": [{"name": "red", "color": "#ff0000"}],
			"map": {"width": 10, "height": 20}
		}
	}`)
	config, err := LoadConfig(path)
	require.NoError(t, err, "should not fail")
	assert.Equal(t, ":9000", config.WebServerAddr)
	assert.Equal(t, nulls.NewString("mqtt://broker:1883"), config.MQTTAddr)
	assert.Equal(t, zapcore.WarnLevel, config.Log.StdoutLogLevel)
	assert.Equal(t, nulls.NewString("/tmp/ctf-debug.log"), config.Log.DebugOutput)
	assert.False(t, config.Log.HighPriorityOutput.Valid)
	assert.Equal(t, "referee@example.com", config.Push.Subscriber)
	assert.Equal(t, 60, config.Game.GraceTime)
	assert.Equal(t, []games.TeamConfig{{Name: "red", Color: "#ff0000"}}, config.Game.Teams)
	assert.Equal(t, games.MapConfig{Width: 10, Height: 20}, config.Game.Map)
	assert.NoError(t, ValidateConfig(config), "loaded config should be valid")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CTF_WEB_SERVER_ADDR", ":7000")
	t.Setenv("CTF_MQTT_ADDR", "mqtt://other:1883")
	t.Setenv("CTF_VAPID_PUBLIC_KEY", "public")
	t.Setenv("CTF_VAPID_PRIVATE_KEY", "private")
	t.Setenv("CTF_VAPID_SUBSCRIBER", "mailto:referee@example.com")
	path := writeConfigFile(t, `{"web_server_addr": ":9000"}`)
	config, err := LoadConfig(path)
	require.NoError(t, err, "should not fail")
	assert.Equal(t, ":7000", config.WebServerAddr)
	assert.Equal(t, nulls.NewString("mqtt://other:1883"), config.MQTTAddr)
	assert.Equal(t, "public", config.Push.VAPIDPublicKey)
	assert.Equal(t, "private", config.Push.VAPIDPrivateKey)
	assert.Equal(t, "mailto:referee@example.com", config.Push.Subscriber)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err, "should fail")
}

func TestLoadConfigMalformed(t *testing.T) {
	_, err := LoadConfig(writeConfigFile(t, `{`))
	require.Error(t, err, "should fail")
	assert.True(t, errors.HasKind(err, errors.KindInvalidConfig))
}
