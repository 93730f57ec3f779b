package routes

import (
	"github.com/anjiri1684/learnhub/handlers"
	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/middleware"
	"github.com/anjiri1684/learnhub/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func WebSocketRoutes(app *fiber.App, hub *websocket.Hub, log *logger.Logger, jwtSecret string) {
	api := app.Group("/api")
	api.Use("/ws", middleware.WebSocketUpgrade(jwtSecret))
	api.Get("/ws", websocketcontrib.New(handlers.ServeWs(hub, log)))
}
