package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carmarket/internal/adapter/api/handler"
	"carmarket/internal/adapter/api/middleware"
)

type Handlers struct {
	Chat         *handler.ChatHandler
	Notification *handler.NotificationHandler
	PriceAlert   *handler.PriceAlertHandler
	WebSocket    *handler.WebSocketHandler
	Health       *handler.HealthHandler
	DevToken     *handler.DevTokenHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, environment string) {
	api := e.Group("/api")
	api.Use(authMiddleware.Authenticate)

	SetupChatRouter(api, h.Chat)
	SetupNotificationRouter(api, h.Notification)
	SetupPriceAlertRouter(api, h.PriceAlert)
	SetupWebSocketRouter(e, h.WebSocket)
	SetupHealthRouter(e, h.Health)
	SetupDevRouter(e, h.DevToken, environment)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
