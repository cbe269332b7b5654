// Package delivery streams secret change events to connected clients
// over WebSocket, filtered to the secrets each subscriber may read.
package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coffersec/coffer/api/types/v1alpha1"
	"github.com/coffersec/coffer/internal/cofferd/secret"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Clients authenticate with a bearer token, not cookies, so
		// cross-origin upgrades carry no ambient credentials
		return true
	},
}

// Authorizer decides whether a subscriber may see a change event
type Authorizer interface {
	CanReadEvent(user secret.UserContext, event secret.Event) bool
}

// Streamer serves the event WebSocket endpoint
type Streamer struct {
	hub        *secret.Hub
	authorizer Authorizer
	logger     *slog.Logger
}

// NewStreamer creates a WebSocket event streamer
func NewStreamer(hub *secret.Hub, authorizer Authorizer, logger *slog.Logger) *Streamer {
	return &Streamer{
		hub:        hub,
		authorizer: authorizer,
		logger:     logger,
	}
}

// ServeWS upgrades the request and streams events the user may read
// until the client disconnects
func (s *Streamer) ServeWS(w http.ResponseWriter, r *http.Request, user secret.UserContext) {
	// Subscribe before the upgrade completes so changes made right after
	// the handshake are not missed
	ctx, stop := context.WithCancel(r.Context())
	events, unsubscribe := s.hub.Subscribe(ctx)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		stop()
		s.logger.Error("websocket upgrade failed",
			"error", err,
			"userID", user.ID,
		)
		return
	}

	c := &connection{
		ws:     ws,
		user:   user,
		logger: s.logger,
	}

	go func() {
		defer stop()
		c.readPump()
	}()

	c.writePump(ctx, events, s.authorizer)
	unsubscribe()
}

type connection struct {
	ws     *websocket.Conn
	user   secret.UserContext
	logger *slog.Logger
}

// readPump discards client messages; its job is detecting disconnects
// and answering pings
func (c *connection) readPump() {
	defer func() {
		if err := c.ws.Close(); err != nil {
			c.logger.Debug("error closing websocket", "error", err)
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					"error", err,
					"userID", c.user.ID,
				)
			}
			return
		}
	}
}

func (c *connection) writePump(ctx context.Context, events <-chan secret.Event, authorizer Authorizer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.ws.Close(); err != nil {
			c.logger.Debug("error closing websocket in writePump", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				if err := c.write(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to write close message", "error", err)
				}
				return
			}

			if !authorizer.CanReadEvent(c.user, event) {
				continue
			}

			payload, err := json.Marshal(&v1alpha1.SecretEvent{
				Type:      string(event.Type),
				SecretID:  event.SecretID,
				Name:      event.Name,
				OrgID:     event.OrgID,
				Timestamp: event.Timestamp,
			})
			if err != nil {
				c.logger.Error("failed to marshal event", "error", err)
				continue
			}
			if err := c.write(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

func (c *connection) write(mt int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(mt, payload)
}
