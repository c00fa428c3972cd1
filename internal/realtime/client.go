package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // CORS enforced at middleware level
}

// Message is the envelope sent to dashboard clients.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one dashboard WebSocket connection, scoped to an event.
type Client struct {
	ID      string
	EventID uuid.UUID
	UserID  string
	conn    *websocket.Conn
	send    chan Message
}

// TokenValidator checks the JWT passed in the query string and returns the
// user ID and role.
type TokenValidator func(token string) (userID, role string, err error)

// ServeWs handles GET /ws?event_id=...&token=... for the admin dashboard.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Query("event_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
		userID, _, err := validate(c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:      uuid.New().String(),
			EventID: eventID,
			UserID:  userID,
			conn:    conn,
			send:    make(chan Message, sendBuffer),
		}
		hub.Register(client)

		go client.writePump(hub, logger)
		go client.readPump(hub, logger)
	}
}

func (c *Client) readPump(hub *Hub, logger *zap.Logger) {
	defer func() {
		hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Dashboard clients are read-only; drain until close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump(hub *Hub, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Debug("websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
