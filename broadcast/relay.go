// Package broadcast delivers match events to observers. The Relay decouples
// the match from slow transports by queueing events in a bounded buffer.
package broadcast

import (
	"context"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/event"
	"github.com/lefinal/ctf-server/games"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"sync"
	"time"
)

// DefaultBufferSize is the buffer size used when Config.BufferSize is not
// positive.
const DefaultBufferSize = 256

// Publisher publishes payloads for topics. Implementations handle their own
// errors.
type Publisher interface {
	Publish(ctx context.Context, topic event.Topic, payload interface{})
}

// PushNotifier sends push notifications to all subscribers.
type PushNotifier interface {
	NotifyAll(ctx context.Context, title string, body string) error
}

// Config for NewRelay.
type Config struct {
	// BufferSize is the maximum number of queued events. Events are dropped when
	// the buffer is full.
	BufferSize int
}

// queued is an event in the Relay queue.
type queued struct {
	topic   event.Topic
	payload interface{}
	// notification is set for events that are also forwarded to the
	// PushNotifier.
	notification nulls.String
	body         string
}

// Relay implements games.Broadcaster and games.Notifier. Calls never block.
// Queued events are delivered to all publishers when running the Relay via Run.
type Relay struct {
	logger     *zap.Logger
	publishers []Publisher
	push       PushNotifier
	queue      chan queued
	dropped    *atomic.Uint64
	// pushes waits for running push deliveries.
	pushes sync.WaitGroup
}

// NewRelay creates a new Relay. The PushNotifier is optional.
func NewRelay(logger *zap.Logger, config Config, push PushNotifier, publishers ...Publisher) *Relay {
	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Relay{
		logger:     logger,
		publishers: publishers,
		push:       push,
		queue:      make(chan queued, bufferSize),
		dropped:    atomic.NewUint64(0),
	}
}

// BroadcastState queues a event.StateEvent.
func (r *Relay) BroadcastState(phase games.Phase, remaining time.Duration, paused bool) {
	r.enqueue(queued{
		topic:   event.TopicState,
		payload: event.NewStateEvent(phase, remaining, paused),
	})
}

// BroadcastAnnouncement queues an event.AnnouncementEvent.
func (r *Relay) BroadcastAnnouncement(kind games.AnnouncementKind, payload nulls.String) {
	r.enqueue(queued{
		topic: event.TopicAnnouncement,
		payload: event.AnnouncementEvent{
			Type:    kind,
			Message: payload,
		},
	})
}

// BroadcastMessage queues an event.ChatMessageEvent for the global or team
// chat topic.
func (r *Relay) BroadcastMessage(message games.ChatMessage) {
	r.enqueue(queued{
		topic:   event.ChatTopic(message),
		payload: event.NewChatMessageEvent(message),
	})
}

// NotifyAll queues an event.NotificationEvent that is also forwarded to the
// PushNotifier.
func (r *Relay) NotifyAll(title string, body string) {
	r.enqueue(queued{
		topic: event.TopicNotification,
		payload: event.NotificationEvent{
			Title: title,
			Body:  body,
		},
		notification: nulls.NewString(title),
		body:         body,
	})
}

// Dropped returns the number of events that were dropped because of a full
// buffer.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}

// enqueue adds the given event to the queue or drops it if the queue is full.
func (r *Relay) enqueue(q queued) {
	select {
	case r.queue <- q:
	default:
		r.dropped.Inc()
		r.logger.Warn("drop event because of full buffer",
			zap.Any("topic", q.topic),
			zap.Uint64("dropped_total", r.dropped.Load()))
	}
}

// Run delivers queued events until the given context.Context is done.
func (r *Relay) Run(ctx context.Context) error {
	defer r.pushes.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case q := <-r.queue:
			r.deliver(ctx, q)
		}
	}
}

// deliver publishes the given event to all publishers. Push notifications are
// sent in the background as they involve remote requests.
func (r *Relay) deliver(ctx context.Context, q queued) {
	for _, publisher := range r.publishers {
		publisher.Publish(ctx, q.topic, q.payload)
	}
	if !q.notification.Valid || r.push == nil {
		return
	}
	r.pushes.Add(1)
	go func() {
		defer r.pushes.Done()
		err := r.push.NotifyAll(ctx, q.notification.String, q.body)
		if err != nil {
			errors.Log(r.logger, errors.Wrap(err, "push notification", errors.Details{"title": q.notification.String}))
		}
	}()
}
