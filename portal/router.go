package portal

import (
	"context"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/event"
	"go.uber.org/zap"
	"sync"
	"time"
)

// brokerTimeout is the timeout for subscribe and unsubscribe requests to the
// MQTT server.
const brokerTimeout = 5 * time.Second

// mqttRouter abstracts paho.Router with only stuff that is needed for router.
type mqttRouter interface {
	RegisterHandler(topic string, handler paho.MessageHandler)
	UnregisterHandler(topic string)
}

// mqttKiosk subscribes and unsubscribes topics at the MQTT server.
type mqttKiosk interface {
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
	Unsubscribe(ctx context.Context, u *paho.Unsubscribe) (*paho.Unsuback, error)
}

// subscription is a container for the lifetime context.Context and the channel
// to forward the received paho.Publish message to.
type subscription struct {
	lifetime context.Context
	forward  chan<- event.Event[any]
}

// registeredHandler is a container for subscriptions to serve.
type registeredHandler struct {
	// subscriptions contains all active subscriptions that are served by the
	// handler.
	subscriptions map[*subscription]struct{}
	// subscriptionsMutex locks subscriptions.
	subscriptionsMutex sync.RWMutex
}

// Handler returns a paho.MessageHandler that forwards to all subscriptions for
// the handler.
func (handler *registeredHandler) Handler() paho.MessageHandler {
	return func(publish *paho.Publish) {
		// Forward to all listeners.
		var allForwarded sync.WaitGroup
		handler.subscriptionsMutex.RLock()
		for sub := range handler.subscriptions {
			allForwarded.Add(1)
			go func(sub *subscription) {
				defer allForwarded.Done()
				select {
				case <-sub.lifetime.Done():
				case sub.forward <- event.Event[any]{Publish: publish}:
				}
			}(sub)
		}
		// Keep the lock until forwarded so that unsubscribe does not close a channel
		// that is currently forwarded to.
		allForwarded.Wait()
		handler.subscriptionsMutex.RUnlock()
	}
}

// router is used for multiplexing MQTT subscriptions and forwarding received
// messages according to them.
type router struct {
	logger *zap.Logger
	// mqtt is the actual router that performs the matching.
	mqtt mqttRouter
	// kiosk is used for subscribing at the MQTT server. It is nil while not
	// connected.
	kiosk mqttKiosk
	// registeredHandlers holds all handlers by subscribed topics.
	registeredHandlers map[Topic]*registeredHandler
	// registeredHandlersMutex locks registeredHandlers and kiosk.
	registeredHandlersMutex sync.Mutex
}

func newRouter(logger *zap.Logger, mqtt mqttRouter) *router {
	return &router{
		logger:             logger,
		mqtt:               mqtt,
		registeredHandlers: make(map[Topic]*registeredHandler),
	}
}

// setKiosk sets the mqttKiosk for a new connection and subscribes all topics
// with registered handlers.
func (router *router) setKiosk(ctx context.Context, kiosk mqttKiosk) {
	router.registeredHandlersMutex.Lock()
	router.kiosk = kiosk
	topics := make([]Topic, 0, len(router.registeredHandlers))
	for topic := range router.registeredHandlers {
		topics = append(topics, topic)
	}
	router.registeredHandlersMutex.Unlock()
	for _, topic := range topics {
		router.subscribeAtBroker(ctx, kiosk, topic)
	}
}

// subscribeAtBroker subscribes the given Topic at the MQTT server.
func (router *router) subscribeAtBroker(ctx context.Context, kiosk mqttKiosk, topic Topic) {
	timeout, cancel := context.WithTimeout(ctx, brokerTimeout)
	defer cancel()
	_, err := kiosk.Subscribe(timeout, &paho.Subscribe{
		Subscriptions: map[string]paho.SubscribeOptions{
			string(topic): {QoS: mqttQOS},
		},
	})
	if err != nil {
		errors.Log(router.logger, errors.Error{
			Code:    errors.ErrCommunication,
			Err:     err,
			Message: "subscribe at mqtt server",
			Details: errors.Details{"topic": topic},
		})
		return
	}
	router.logger.Debug("subscribed at mqtt server", zap.Any("topic", topic))
}

// unsubscribeAtBroker unsubscribes the given Topic at the MQTT server.
func (router *router) unsubscribeAtBroker(kiosk mqttKiosk, topic Topic) {
	timeout, cancel := context.WithTimeout(context.Background(), brokerTimeout)
	defer cancel()
	_, err := kiosk.Unsubscribe(timeout, &paho.Unsubscribe{Topics: []string{string(topic)}})
	if err != nil {
		errors.Log(router.logger, errors.Error{
			Code:    errors.ErrCommunication,
			Err:     err,
			Message: "unsubscribe at mqtt server",
			Details: errors.Details{"topic": topic},
		})
	}
}

// subscribe for the given Topic and forward messages to the given channel until
// the context.Context is done.
func (router *router) subscribe(lifetime context.Context, topic Topic, forward chan<- event.Event[any]) {
	router.registeredHandlersMutex.Lock()
	defer router.registeredHandlersMutex.Unlock()
	// Check if already existing.
	handlerRef, ok := router.registeredHandlers[topic]
	if !ok {
		handlerRef = &registeredHandler{subscriptions: make(map[*subscription]struct{})}
		router.registeredHandlers[topic] = handlerRef
		router.mqtt.RegisterHandler(string(topic), handlerRef.Handler())
		if router.kiosk != nil {
			go router.subscribeAtBroker(lifetime, router.kiosk, topic)
		}
		router.logger.Debug("subscribed to topic", zap.Any("topic", topic))
	}
	// Add subscription.
	sub := &subscription{
		lifetime: lifetime,
		forward:  forward,
	}
	handlerRef.subscriptionsMutex.Lock()
	handlerRef.subscriptions[sub] = struct{}{}
	handlerRef.subscriptionsMutex.Unlock()
	// Unsubscribe when lifetime done.
	go func() {
		<-lifetime.Done()
		router.unsubscribe(topic, sub)
	}()
}

// unsubscribe the given subscription for the Topic. Only router should call
// this!
func (router *router) unsubscribe(topic Topic, sub *subscription) {
	router.registeredHandlersMutex.Lock()
	defer router.registeredHandlersMutex.Unlock()
	// Get handler.
	handler, ok := router.registeredHandlers[topic]
	if !ok {
		errors.Log(router.logger, errors.NewInternalError("unsubscribe called for unknown registered handler",
			errors.Details{"topic": topic}))
		return
	}
	// Remove subscription.
	handler.subscriptionsMutex.Lock()
	defer handler.subscriptionsMutex.Unlock()
	if _, ok := handler.subscriptions[sub]; !ok {
		errors.Log(router.logger, errors.NewInternalError("unsubscribe with unknown subscription for handler",
			errors.Details{"topic": topic}))
		return
	}
	delete(handler.subscriptions, sub)
	close(sub.forward)
	// Check if subscriptions left as then we do not need to unregister the handler.
	if len(handler.subscriptions) > 0 {
		return
	}
	// Unregister handler.
	delete(router.registeredHandlers, topic)
	router.mqtt.UnregisterHandler(string(topic))
	if router.kiosk != nil {
		go router.unsubscribeAtBroker(router.kiosk, topic)
	}
}
