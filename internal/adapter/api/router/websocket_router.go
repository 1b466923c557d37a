package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up WebSocket routes. Authentication happens inside
// the handler because browsers cannot set headers on the upgrade request.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
