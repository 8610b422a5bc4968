package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/statio/backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // public status feed
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event          string          `json:"event"`
	OrganizationID *uuid.UUID      `json:"organization_id,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// Client is a single subscriber on one topic.
type Client struct {
	ID    string
	Topic string
	// OrganizationID restricts delivery to events of one organization when set.
	OrganizationID *uuid.UUID
	hub            *Hub
	conn           *websocket.Conn
	send           chan WSMessage
	logger         *zap.Logger
}

func newClient(hub *Hub, topic string, orgID *uuid.UUID, conn *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		ID:             uuid.New().String(),
		Topic:          topic,
		OrganizationID: orgID,
		hub:            hub,
		conn:           conn,
		send:           make(chan WSMessage, sendBuffer),
		logger:         logger,
	}
}

func (c *Client) accepts(msg WSMessage) bool {
	if c.OrganizationID == nil {
		return true
	}
	return msg.OrganizationID != nil && *msg.OrganizationID == *c.OrganizationID
}

// ServeWs handles GET /ws/:topic. The optional organization_id query
// parameter limits the feed to one organization.
func ServeWs(hub *Hub, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		topic := c.Param("topic")
		if !ValidTopic(topic) {
			response.NotFound(c, "unknown topic")
			return
		}
		var orgID *uuid.UUID
		if raw := c.Query("organization_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.BadRequest(c, "invalid organization_id")
				return
			}
			orgID = &id
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := newClient(hub, topic, orgID, conn, logger)
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump only keeps the connection alive; subscribers never publish.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", zap.String("client_id", c.ID), zap.Error(err))
				c.hub.remove(c, true)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c, true)
				return
			}
		}
	}
}
