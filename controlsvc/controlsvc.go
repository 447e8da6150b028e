// Package controlsvc allows controlling the match via MQTT, for example from
// hardware buttons at the referee table.
package controlsvc

import (
	"context"
	"fmt"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/event"
	"github.com/lefinal/ctf-server/games"
	"github.com/lefinal/ctf-server/portal"
	"github.com/lefinal/ctf-server/service"
	"go.uber.org/zap"
	"sync"
)

// Topics.
var (
	// topicControl is where control requests are received.
	topicControl = portal.Topic(portal.BaseTopic + "/control")
	// topicControlError is where failed control requests are reported.
	topicControlError = portal.Topic(portal.BaseTopic + "/control/error")
	// topicStatusReport is used for requesting a status report to topicStatus.
	topicStatusReport = portal.Topic(portal.BaseTopic + "/status/report")
	// topicStatus is where the match status is reported.
	topicStatus = portal.Topic(portal.BaseTopic + "/status")
)

// Controller is the match to control.
type Controller interface {
	Start() error
	Pause() error
	Resume() error
	Skip() error
	Rewind() error
	End() error
	Reset(hard bool)
	EmergencyDeclared() bool
	Status() games.Status
}

// controlService handles control requests and status reports.
type controlService struct {
	logger *zap.Logger
	// portal to use for communication.
	portal portal.Portal
	// match is the Controller to apply control requests to.
	match Controller
}

// NewControlService creates a new service.Service ready to run.
func NewControlService(logger *zap.Logger, portal portal.Portal, match Controller) service.Service {
	return &controlService{
		logger: logger,
		portal: portal,
		match:  match,
	}
}

// Run the service and serve until the given context.Context is done.
func (s *controlService) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	// Handle control requests.
	controlNewsletter := portal.Subscribe[event.ControlEvent](ctx, s.portal, topicControl)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range controlNewsletter.Receive {
			s.handleControlEvent(ctx, e.Payload)
		}
	}()
	// Handle status reports.
	reportNewsletter := portal.Subscribe[event.EmptyEvent](ctx, s.portal, topicStatusReport)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range reportNewsletter.Receive {
			s.reportStatus(ctx)
		}
	}()
	wg.Wait()
	return nil
}

// handleControlEvent applies the event.ControlEvent and reports errors to
// topicControlError.
func (s *controlService) handleControlEvent(ctx context.Context, e event.ControlEvent) {
	err := s.apply(e)
	if err != nil {
		err = errors.Wrap(err, "apply control", errors.Details{"action": e.Action})
		errors.Log(s.logger, err)
		s.portal.Publish(ctx, topicControlError, event.ErrorEventPayloadFromError(err))
		return
	}
	s.logger.Info("applied remote control", zap.Any("action", e.Action))
}

// apply the action of the given event.ControlEvent.
func (s *controlService) apply(e event.ControlEvent) error {
	if s.match.EmergencyDeclared() {
		return errors.NewStateConflictError(errors.KindEmergencyDeclared, "match controls locked during emergency", nil)
	}
	switch e.Action {
	case event.ControlActionStart:
		return s.match.Start()
	case event.ControlActionPause:
		return s.match.Pause()
	case event.ControlActionResume:
		return s.match.Resume()
	case event.ControlActionSkip:
		return s.match.Skip()
	case event.ControlActionRewind:
		return s.match.Rewind()
	case event.ControlActionEnd:
		return s.match.End()
	case event.ControlActionReset:
		s.match.Reset(e.Hard)
		return nil
	}
	return errors.NewBadRequestError(errors.KindUnexpected, fmt.Sprintf("unsupported control action: %s", e.Action), nil)
}

// reportStatus publishes the current match status to topicStatus.
func (s *controlService) reportStatus(ctx context.Context) {
	s.portal.Publish(ctx, topicStatus, s.match.Status())
}
