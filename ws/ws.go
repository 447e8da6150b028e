package ws

import (
	"context"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/event"
	"go.uber.org/zap"
	"net/http"
	"strings"
)

// DefaultTopics are used for clients that do not request specific topics.
var DefaultTopics = []event.Topic{
	event.TopicState,
	event.TopicAnnouncement,
	event.TopicChat,
	event.TopicNotification,
}

// parseTopics parses the comma-separated topic list. Empty lists result in
// DefaultTopics.
func parseTopics(raw string) map[event.Topic]struct{} {
	topics := make(map[event.Topic]struct{})
	for _, topic := range strings.Split(raw, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		topics[event.Topic(topic)] = struct{}{}
	}
	if len(topics) == 0 {
		for _, topic := range DefaultTopics {
			topics[topic] = struct{}{}
		}
	}
	return topics
}

// HandleWS handles websocket requests. Topics to subscribe to are read from the
// comma-separated topics query parameter. The passed context is used for
// aborting registration when the hub is gone.
func HandleWS(ctx context.Context, logger *zap.Logger, hub *Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errors.Log(logger, errors.Error{
				Code:    errors.ErrCommunication,
				Err:     err,
				Message: "upgrade connection",
			})
			return
		}
		id := uuid.New()
		client := &Client{
			id:         id,
			logger:     logger.With(zap.Any("client_id", id)),
			hub:        hub,
			connection: conn,
			topics:     parseTopics(r.URL.Query().Get("topics")),
			send:       make(chan []byte, sendBufferSize),
		}
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-hub.done:
			_ = conn.Close()
			return
		case hub.register <- client:
		}
		// Power the pumps.
		go client.writePump()
		go client.readPump()
	}
}
