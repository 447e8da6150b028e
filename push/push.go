// Package push delivers web push notifications to all subscribed browsers.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/event"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"io"
	"net/http"
	"sync"
)

// DefaultTTL is the default time-to-live in seconds for notifications at the
// push service.
const DefaultTTL = 60

// DefaultMaxConcurrentSends is the default limit of concurrent requests to push
// services.
const DefaultMaxConcurrentSends = 8

// Config is the configuration for Service.
type Config struct {
	// VAPIDPublicKey is the public application server key. If either key is
	// missing, a new key pair is generated.
	VAPIDPublicKey string
	// VAPIDPrivateKey is the private application server key.
	VAPIDPrivateKey string
	// Subscriber is the contact (mail address or URL) sent to push services.
	Subscriber string
	// TTL in seconds. If not positive, DefaultTTL is used.
	TTL int
	// MaxConcurrentSends limits concurrent requests. If not positive,
	// DefaultMaxConcurrentSends is used.
	MaxConcurrentSends int
}

// Subscription is a browser push subscription.
type Subscription = webpush.Subscription

// sendFunc sends a notification to a push service.
type sendFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// Service holds push subscriptions and sends notifications to them.
type Service struct {
	logger *zap.Logger
	config Config
	send   sendFunc
	// subscriptions holds all subscriptions by their endpoint.
	subscriptions map[string]Subscription
	// subscriptionsMutex locks subscriptions.
	subscriptionsMutex sync.RWMutex
}

// NewService creates a new Service. If VAPID keys are missing, they are
// generated.
func NewService(logger *zap.Logger, config Config) (*Service, error) {
	if config.VAPIDPublicKey == "" || config.VAPIDPrivateKey == "" {
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			return nil, errors.NewInternalErrorFromErr(err, "generate vapid keys", nil)
		}
		config.VAPIDPrivateKey = privateKey
		config.VAPIDPublicKey = publicKey
		logger.Warn("no vapid keys configured. generated new ones. existing push subscriptions will not work.",
			zap.String("public_key", publicKey))
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxConcurrentSends <= 0 {
		config.MaxConcurrentSends = DefaultMaxConcurrentSends
	}
	return &Service{
		logger:        logger,
		config:        config,
		send:          webpush.SendNotificationWithContext,
		subscriptions: make(map[string]Subscription),
	}, nil
}

// PublicKey returns the VAPID public key that browsers need for subscribing.
func (s *Service) PublicKey() string {
	return s.config.VAPIDPublicKey
}

// Subscribe adds the given Subscription. An existing one with the same endpoint
// is replaced.
func (s *Service) Subscribe(sub Subscription) error {
	if sub.Endpoint == "" {
		return errors.NewBadRequestError(errors.KindInvalidSubscription, "missing endpoint", nil)
	}
	if sub.Keys.Auth == "" || sub.Keys.P256dh == "" {
		return errors.NewBadRequestError(errors.KindInvalidSubscription, "missing keys", errors.Details{"endpoint": sub.Endpoint})
	}
	s.subscriptionsMutex.Lock()
	defer s.subscriptionsMutex.Unlock()
	s.subscriptions[sub.Endpoint] = sub
	s.logger.Debug("push subscription added", zap.String("endpoint", sub.Endpoint))
	return nil
}

// Unsubscribe removes the subscription with the given endpoint.
func (s *Service) Unsubscribe(endpoint string) {
	s.subscriptionsMutex.Lock()
	defer s.subscriptionsMutex.Unlock()
	delete(s.subscriptions, endpoint)
}

// SubscriptionCount returns the number of active subscriptions.
func (s *Service) SubscriptionCount() int {
	s.subscriptionsMutex.RLock()
	defer s.subscriptionsMutex.RUnlock()
	return len(s.subscriptions)
}

// NotifyAll sends a notification with the given title and body to all
// subscriptions. Failed deliveries are logged. Subscriptions that expired at
// the push service are removed.
func (s *Service) NotifyAll(ctx context.Context, title string, body string) error {
	message, err := json.Marshal(event.NotificationEvent{
		Title: title,
		Body:  body,
	})
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "marshal notification", nil)
	}
	s.subscriptionsMutex.RLock()
	subscriptions := make([]Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		subscriptions = append(subscriptions, sub)
	}
	s.subscriptionsMutex.RUnlock()
	var eg errgroup.Group
	eg.SetLimit(s.config.MaxConcurrentSends)
	for _, sub := range subscriptions {
		sub := sub
		eg.Go(func() error {
			err := s.notify(ctx, message, sub)
			if err != nil {
				errors.Log(s.logger, err)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return nil
}

// notify sends the message to the given Subscription.
func (s *Service) notify(ctx context.Context, message []byte, sub Subscription) error {
	response, err := s.send(ctx, message, &sub, &webpush.Options{
		Subscriber:      s.config.Subscriber,
		VAPIDPublicKey:  s.config.VAPIDPublicKey,
		VAPIDPrivateKey: s.config.VAPIDPrivateKey,
		TTL:             s.config.TTL,
	})
	if err != nil {
		return errors.Error{
			Code:    errors.ErrCommunication,
			Err:     err,
			Message: "send push notification",
			Details: errors.Details{"endpoint": sub.Endpoint},
		}
	}
	defer func() { _ = response.Body.Close() }()
	_, _ = io.Copy(io.Discard, response.Body)
	switch {
	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusGone:
		s.Unsubscribe(sub.Endpoint)
		s.logger.Debug("removed expired push subscription", zap.String("endpoint", sub.Endpoint))
	case response.StatusCode >= 400:
		return errors.Error{
			Code:    errors.ErrCommunication,
			Message: fmt.Sprintf("push service responded with status %d", response.StatusCode),
			Details: errors.Details{"endpoint": sub.Endpoint},
		}
	}
	return nil
}
