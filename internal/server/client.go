package server

import (
	"context"
	"encoding/json"
	"net/http"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/engine"
	"pillarhunt-server/pkg/api"
	"pillarhunt-server/pkg/logger"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocket settings
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// Intent rate limit per connection
	rateLimitWindow     = time.Second
	maxIntentsPerWindow = 20

	joinTimeout = 5 * time.Second
)

// ActionHello opens every connection. It is handled here, not by the session.
const ActionHello = "HELLO"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client sits between one websocket and the session.
type Client struct {
	Session    *engine.SessionService
	Conn       *websocket.Conn
	Codec      api.Codec
	RemoteAddr string
	ID         domain.ParticipantID

	log *logrus.Entry

	// Touched only by the read loop
	windowStart time.Time
	windowCount int
}

func NewClient(session *engine.SessionService, conn *websocket.Conn, codec api.Codec, remoteAddr string) *Client {
	return &Client{
		Session:    session,
		Conn:       conn,
		Codec:      codec,
		RemoteAddr: remoteAddr,
		log: logger.Log.WithFields(logrus.Fields{
			"remote_addr": remoteAddr,
			"codec":       codec.Name(),
		}),
	}
}

// serve runs the handshake and then the read loop. It owns the connection
// until the participant leaves.
func (c *Client) serve() {
	defer func() {
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("Close after read loop")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("Failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// 1. HANDSHAKE
	var hello api.ClientCommand
	if err := c.Conn.ReadJSON(&hello); err != nil {
		c.log.WithError(err).Warn("Handshake failed")
		return
	}
	if !strings.EqualFold(hello.Action, ActionHello) {
		c.reject("Expected HELLO")
		return
	}
	var payload api.HelloPayload
	if len(hello.Payload) > 0 {
		if err := json.Unmarshal(hello.Payload, &payload); err != nil {
			c.reject("Malformed HELLO")
			return
		}
	}

	// 2. JOIN
	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	res, err := c.Session.Join(ctx, engine.JoinRequest{RemoteAddr: c.RemoteAddr})
	cancel()
	if err != nil {
		c.reject(domain.Reason(err))
		return
	}

	c.ID = res.ID
	c.log = c.log.WithField("participant_id", c.ID)
	c.Session.Metrics.IncrementConnections()
	defer func() {
		c.Session.Leave(c.ID)
		c.Session.Metrics.DecrementConnections()
		c.log.Info("Client disconnected")
	}()

	go c.writePump(res.Updates)
	c.log.Info("Client joined")

	if payload.Name != "" {
		raw, _ := json.Marshal(api.NamePayload{Name: payload.Name})
		c.Session.Submit(c.ID, api.ClientCommand{Action: domain.ActionNameChange.String(), Payload: raw})
	}

	// 3. INTENTS
	for {
		var cmd api.ClientCommand
		if err := c.Conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WS read error")
			}
			return
		}
		if !c.allow(time.Now()) {
			c.Session.Metrics.IncrementRateLimitViolations()
			c.log.WithField("action", cmd.Action).Warn("Rate limit exceeded, intent dropped")
			continue
		}
		c.Session.Submit(c.ID, cmd)
	}
}

// allow is a fixed-window counter.
func (c *Client) allow(now time.Time) bool {
	if now.Sub(c.windowStart) > rateLimitWindow {
		c.windowStart = now
		c.windowCount = 0
	}
	c.windowCount++
	return c.windowCount <= maxIntentsPerWindow
}

// reject answers a refused handshake and closes with the reason.
func (c *Client) reject(reason string) {
	c.log.WithField("reason", reason).Info("Connection rejected")

	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.WithError(err).Debug("Failed to set write deadline")
	}
	if err := c.write(api.ServerMessage{Type: api.TypeRejected, Reason: reason}); err != nil {
		c.log.WithError(err).Debug("Write REJECTED failed")
		return
	}
	closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := c.Conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		c.log.WithError(err).Debug("Write close failed")
	}
}

func (c *Client) write(msg api.ServerMessage) error {
	data, err := c.Codec.Encode(msg)
	if err != nil {
		return err
	}
	kind := websocket.TextMessage
	if c.Codec.Binary() {
		kind = websocket.BinaryMessage
	}
	return c.Conn.WriteMessage(kind, data)
}

// writePump drains the participant channel and pings. A closed channel means
// the session evicted or shut down the participant.
func (c *Client) writePump(updates <-chan api.ServerMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("Close after write pump")
		}
	}()

	var lastReason string
	for {
		select {
		case msg, ok := <-updates:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("Failed to set write deadline")
			}
			if !ok {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, lastReason)
				if err := c.Conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
					c.log.WithError(err).Debug("Write close failed")
				}
				return
			}
			if msg.Type == api.TypeShutdown {
				lastReason = msg.Reason
			}
			if err := c.write(msg); err != nil {
				c.log.WithError(err).Debug("Write frame failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("Failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("Ping failed")
				return
			}
		}
	}
}
