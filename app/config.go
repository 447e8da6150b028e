package app

import (
	"encoding/json"
	nativeerrors "errors"
	"github.com/caarlos0/env/v11"
	"github.com/gobuffalo/nulls"
	"github.com/joho/godotenv"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/games"
	"go.uber.org/zap/zapcore"
	"io/fs"
	"os"
	"time"
)

// Config is the configuration needed in order to boot an App.
type Config struct {
	// WebServerAddr is the address, the app will listen for connections on.
	WebServerAddr string `json:"web_server_addr"`
	// AllowedOrigins for CORS. If empty, all origins are allowed.
	AllowedOrigins []string `json:"allowed_origins"`
	// MQTTAddr is the address of the MQTT server. If not set, MQTT is disabled.
	MQTTAddr nulls.String `json:"mqtt_addr"`
	Log      LogConfig    `json:"log"`
	Push     PushConfig   `json:"push"`
	Game     GameConfig   `json:"game"`
}

// LogConfig configures logging.
type LogConfig struct {
	// StdoutLogLevel is the minimum level for logging to stdout.
	StdoutLogLevel zapcore.Level `json:"stdout_log_level"`
	// HighPriorityOutput is the file to write warnings and errors to.
	HighPriorityOutput nulls.String `json:"high_priority_output"`
	// DebugOutput is the file to write all logs to.
	DebugOutput nulls.String `json:"debug_output"`
	// MaxSize is the maximum size in megabytes of log files before rotation.
	MaxSize int `json:"max_size"`
	// KeepDays is the number of days to keep rotated log files.
	KeepDays int `json:"keep_days"`
	// SystemDebugStatsInterval is the interval in seconds for logging debug stats.
	// If not set, debug stats are disabled.
	SystemDebugStatsInterval nulls.Int `json:"system_debug_stats_interval"`
}

// PushConfig configures web push notifications.
type PushConfig struct {
	VAPIDPublicKey  string `json:"vapid_public_key"`
	VAPIDPrivateKey string `json:"vapid_private_key"`
	// Subscriber is the contact mail address or URL for push services.
	Subscriber string `json:"subscriber"`
	// TTL in seconds for notifications at the push service.
	TTL nulls.Int `json:"ttl"`
}

// GameConfig configures the match. Durations are in seconds.
type GameConfig struct {
	GraceTime int                `json:"grace_time"`
	ScoutTime int                `json:"scout_time"`
	FFATime   int                `json:"ffa_time"`
	MaxTeams  int                `json:"max_teams"`
	Teams     []games.TeamConfig `json:"teams"`
	Map       games.MapConfig    `json:"map"`
}

// matchConfig creates the games.Config for the GameConfig.
func (c GameConfig) matchConfig() games.Config {
	return games.Config{
		GraceTime: time.Duration(c.GraceTime) * time.Second,
		ScoutTime: time.Duration(c.ScoutTime) * time.Second,
		FFATime:   time.Duration(c.FFATime) * time.Second,
		MaxTeams:  c.MaxTeams,
		Teams:     c.Teams,
		Map:       c.Map,
	}
}

// envConfig holds the values that can be overridden by environment variables.
type envConfig struct {
	WebServerAddr   string `env:"CTF_WEB_SERVER_ADDR"`
	MQTTAddr        string `env:"CTF_MQTT_ADDR"`
	VAPIDPublicKey  string `env:"CTF_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"CTF_VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string `env:"CTF_VAPID_SUBSCRIBER"`
}

// LoadConfig reads the JSON config file at the given path. Values can be
// overridden using environment variables which are also read from a .env file
// in the working directory, if existing.
func LoadConfig(path string) (Config, error) {
	var config Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewInternalErrorFromErr(err, "read config file", errors.Details{"path": path})
	}
	err = json.Unmarshal(raw, &config)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "parse config file",
			Details: errors.Details{"path": path},
		}
	}
	err = godotenv.Load()
	if err != nil && !nativeerrors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.NewInternalErrorFromErr(err, "load .env file", nil)
	}
	config, err = applyEnv(config)
	if err != nil {
		return Config{}, errors.Wrap(err, "apply environment", nil)
	}
	return config, nil
}

// applyEnv overrides values of the given Config with the ones set via
// environment variables.
func applyEnv(config Config) (Config, error) {
	var overrides envConfig
	err := env.Parse(&overrides)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "parse environment variables",
		}
	}
	if overrides.WebServerAddr != "" {
		config.WebServerAddr = overrides.WebServerAddr
	}
	if overrides.MQTTAddr != "" {
		config.MQTTAddr = nulls.NewString(overrides.MQTTAddr)
	}
	if overrides.VAPIDPublicKey != "" {
		config.Push.VAPIDPublicKey = overrides.VAPIDPublicKey
	}
	if overrides.VAPIDPrivateKey != "" {
		config.Push.VAPIDPrivateKey = overrides.VAPIDPrivateKey
	}
	if overrides.VAPIDSubscriber != "" {
		config.Push.Subscriber = overrides.VAPIDSubscriber
	}
	return config, nil
}

// ValidateConfig makes sure that the given Config can be used for booting.
func ValidateConfig(config Config) error {
	invalid := func(message string, details errors.Details) error {
		return errors.NewBadRequestError(errors.KindInvalidConfig, message, details)
	}
	if config.WebServerAddr == "" {
		return invalid("missing web server address", nil)
	}
	if config.MQTTAddr.Valid && config.MQTTAddr.String == "" {
		return invalid("empty mqtt address", nil)
	}
	durations := []struct {
		name  string
		value int
	}{
		{name: "grace_time", value: config.Game.GraceTime},
		{name: "scout_time", value: config.Game.ScoutTime},
		{name: "ffa_time", value: config.Game.FFATime},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return invalid("durations must be positive", errors.Details{"setting": d.name, "was": d.value})
		}
		if d.value > games.MaxPhaseSeconds {
			return invalid("duration too long", errors.Details{"setting": d.name, "was": d.value, "max": games.MaxPhaseSeconds})
		}
	}
	if len(config.Game.Teams) == 0 {
		return invalid("no teams configured", nil)
	}
	if config.Game.MaxTeams < 0 {
		return invalid("max teams must not be negative", errors.Details{"was": config.Game.MaxTeams})
	}
	if config.Log.SystemDebugStatsInterval.Valid && config.Log.SystemDebugStatsInterval.Int <= 0 {
		return invalid("debug stats interval must be positive", errors.Details{"was": config.Log.SystemDebugStatsInterval.Int})
	}
	return nil
}
