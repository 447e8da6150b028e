package ws

import (
	"context"
	"encoding/json"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/event"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// outgoing is a marshalled envelope for a topic.
type outgoing struct {
	topic event.Topic
	raw   []byte
}

// Hub holds all active clients and fans out published events to the ones that
// subscribed to the topic.
type Hub struct {
	logger *zap.Logger
	// clients holds all online clients.
	clients map[*Client]struct{}
	// clientCount is the number of clients for reading from outside Run.
	clientCount *atomic.Int64
	// register receives when a Client wants to register itself.
	register chan *Client
	// unregister receives when a Client wants to unregister itself.
	unregister chan *Client
	// publish receives messages to forward to clients.
	publish chan outgoing
	// done is closed when Run returns.
	done chan struct{}
}

// NewHub creates a new Hub. Start it with Hub.Run.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:      logger,
		clients:     make(map[*Client]struct{}),
		clientCount: atomic.NewInt64(0),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		publish:     make(chan outgoing, 64),
		done:        make(chan struct{}),
	}
}

// Run the Hub until the given context.Context is done. All clients are
// disconnected afterwards.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
		close(h.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.clientCount.Store(int64(len(h.clients)))
			h.logger.Debug("client connected",
				zap.Any("client_id", c.id),
				zap.Any("topics", c.topicList()))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("client disconnected", zap.Any("client_id", c.id))
			}
		case o := <-h.publish:
			for c := range h.clients {
				if !c.subscribes(o.topic) {
					continue
				}
				select {
				case c.send <- o.raw:
				default:
					// Slow clients are dropped instead of blocking all others.
					h.drop(c)
					h.logger.Warn("dropped slow client", zap.Any("client_id", c.id))
				}
			}
		}
	}
}

// drop removes the given Client and closes its send-channel which leads to
// stopping the write-pump.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	h.clientCount.Store(int64(len(h.clients)))
	close(c.send)
}

// Publish the given payload to all clients that subscribed to the topic.
func (h *Hub) Publish(ctx context.Context, topic event.Topic, payload interface{}) {
	raw, err := json.Marshal(event.Envelope{
		Topic:   topic,
		Payload: payload,
	})
	if err != nil {
		errors.Log(h.logger, errors.NewInternalErrorFromErr(err, "marshal payload for publishing",
			errors.Details{"topic": topic}))
		return
	}
	select {
	case <-ctx.Done():
	case <-h.done:
	case h.publish <- outgoing{topic: topic, raw: raw}:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}
