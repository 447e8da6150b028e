package app

import (
	"context"
	"fmt"
	"github.com/lefinal/ctf-server/controlsvc"
	"github.com/lefinal/ctf-server/debugstats"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"time"
)

type services map[string]service.Service

func createServices(appConfig Config, logger *zap.Logger, c *components) (services, error) {
	services := make(services)
	// Debug stats service.
	s, err := debugstats.NewService(logger.Named("debug-stats"), debugstats.Config{
		IsEnabled: appConfig.Log.SystemDebugStatsInterval.Valid && appConfig.Log.SystemDebugStatsInterval.Int > 0,
		Interval:  time.Duration(appConfig.Log.SystemDebugStatsInterval.Int) * time.Second,
	}, debugstats.Sources{
		Match: c.match,
		Hub:   c.hub,
		Relay: c.relay,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new debug stats service", nil)
	}
	services["debug-stats"] = s
	services["relay"] = c.relay
	services["ws-hub"] = c.hub
	services["web-server"] = c.webServer
	// MQTT stuff.
	if c.portalBase != nil {
		services["portal"] = service.Func(c.portalBase.Open)
		services["control"] = controlsvc.NewControlService(logger.Named("control"), c.portalBase.NewPortal("control"), c.match)
	}
	return services, nil
}

func (s services) run(ctx context.Context, logger *zap.Logger) error {
	wg, lifetime := errgroup.WithContext(ctx)
	// Run each.
	for name, serviceToRun := range s {
		// Copy values.
		name, serviceToRun := name, serviceToRun
		wg.Go(func() error {
			logger.Debug(fmt.Sprintf("service %s up", name))
			defer logger.Debug(fmt.Sprintf("service %s down", name))
			if err := serviceToRun.Run(lifetime); err != nil {
				return errors.Wrap(err, "run service", errors.Details{"service_name": name})
			}
			return nil
		})
	}
	return wg.Wait()
}
