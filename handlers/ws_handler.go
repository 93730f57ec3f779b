package handlers

import (
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/websocket"
)

// ServeWs keeps a learner's connection registered with the hub until the
// client goes away. The connection is push-only; inbound frames are ignored.
func ServeWs(hub *websocket.Hub, log *logger.Logger) func(*websocketcontrib.Conn) {
	return func(c *websocketcontrib.Conn) {
		userID, ok := c.Locals("user_id").(uuid.UUID)
		if !ok {
			_ = c.Close()
			return
		}

		client := &websocket.Client{UserID: userID, Conn: c}
		hub.Register(client)
		log.Debug("WebSocket client connected", "user_id", userID)
		defer func() {
			hub.Unregister(client)
			_ = c.Close()
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
					log.Debug("WebSocket closed", "user_id", userID)
				} else {
					log.Warn("WebSocket read error", "user_id", userID, "error", err)
				}
				return
			}
		}
	}
}
