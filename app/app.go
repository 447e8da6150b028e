package app

import (
	"context"
	"github.com/lefinal/ctf-server/broadcast"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/games"
	"github.com/lefinal/ctf-server/portal"
	"github.com/lefinal/ctf-server/push"
	"github.com/lefinal/ctf-server/web_server"
	"github.com/lefinal/ctf-server/ws"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"os"
)

// App is a complete ctf-server instance.
type App struct {
	// config is the main config used for the App.
	config Config
}

func NewApp(config Config) *App {
	return &App{
		config: config,
	}
}

// Boot sets everything up based on the set config and runs until the given
// context.Context is done.
func (app *App) Boot(ctx context.Context) error {
	// Validate config.
	err := ValidateConfig(app.config)
	if err != nil {
		return errors.Error{
			Code:    errors.ErrFatal,
			Err:     err,
			Message: "invalid config",
		}
	}
	// Setup logger.
	logger := app.setupLogging(app.config.Log)
	defer func(loggerToSync *zap.Logger) {
		_ = loggerToSync.Sync()
	}(logger)
	// Boot.
	err = app.boot(ctx, logger)
	if err != nil {
		err = errors.Wrap(err, "boot", nil)
		errors.Log(logger, err)
		return err
	}
	return nil
}

// components are the wired parts of the App.
type components struct {
	match      *games.Match
	relay      *broadcast.Relay
	hub        *ws.Hub
	push       *push.Service
	portalBase portal.Base
	webServer  *web_server.WebServer
}

// wire creates all components based on the config.
func (app *App) wire(ctx context.Context, logger *zap.Logger) (*components, error) {
	var err error
	c := &components{}
	// Create push service.
	c.push, err = push.NewService(logger.Named("push"), push.Config{
		VAPIDPublicKey:  app.config.Push.VAPIDPublicKey,
		VAPIDPrivateKey: app.config.Push.VAPIDPrivateKey,
		Subscriber:      app.config.Push.Subscriber,
		TTL:             app.config.Push.TTL.Int,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new push service", nil)
	}
	// Create websocket hub.
	c.hub = ws.NewHub(logger.Named("ws"))
	publishers := []broadcast.Publisher{c.hub}
	// Create MQTT portal if address is provided.
	if app.config.MQTTAddr.Valid {
		c.portalBase, err = portal.NewBase(logger.Named("portal"), portal.Config{MQTTAddr: app.config.MQTTAddr.String})
		if err != nil {
			return nil, errors.Wrap(err, "new portal base", nil)
		}
		publishers = append(publishers, portal.NewEventPublisher(c.portalBase.NewPortal("broadcast")))
	}
	c.relay = broadcast.NewRelay(logger.Named("relay"), broadcast.Config{}, c.push, publishers...)
	// Create match.
	c.match, err = games.NewMatch(logger.Named("match"), app.config.Game.matchConfig(), games.MatchDeps{
		Broadcaster: c.relay,
		Notifier:    c.relay,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new match", nil)
	}
	// Create web server.
	c.webServer, err = web_server.NewWebServer(logger.Named("web-server"), web_server.Config{
		ServeAddr:      app.config.WebServerAddr,
		WriteTimeout:   web_server.DefaultWriteTimeout,
		ReadTimeout:    web_server.DefaultReadTimeout,
		AllowedOrigins: app.config.AllowedOrigins,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create web server", nil)
	}
	c.webServer.PopulateRoutes(ctx, web_server.RouteDeps{
		Match: c.match,
		Hub:   c.hub,
		Push:  c.push,
	})
	return c, nil
}

func (app *App) boot(ctx context.Context, logger *zap.Logger) error {
	logger.Warn("booting up")
	c, err := app.wire(ctx, logger)
	if err != nil {
		return errors.Wrap(err, "wire", nil)
	}
	services, err := createServices(app.config, logger, c)
	if err != nil {
		return errors.Wrap(err, "create services", nil)
	}
	logger.Warn("setup completed. running services...")
	err = services.run(ctx, logger)
	if err != nil {
		return errors.Wrap(err, "run services", nil)
	}
	logger.Warn("shut down")
	return nil
}

func (app *App) setupLogging(config LogConfig) *zap.Logger {
	encConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cores := make([]zapcore.Core, 0)
	// Setup stdout logger with colorful level output.
	stdOutEncConfig := encConfig
	stdOutEncConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= config.StdoutLogLevel && level < zap.ErrorLevel
		})))
	// Setup error logger.
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.ErrorLevel
		})))
	// Setup high priority logger.
	if config.HighPriorityOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.HighPriorityOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.WarnLevel
			})))
	}
	// Setup debug logger.
	if config.DebugOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.DebugOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.DebugLevel
			})))
	}
	// Combine.
	return zap.New(zapcore.NewTee(cores...))
}
