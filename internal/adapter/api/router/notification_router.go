package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
)

func SetupNotificationRouter(g *echo.Group, notificationHandler *handler.NotificationHandler) {
	notificationGroup := g.Group("/notifications")

	notificationGroup.GET("", notificationHandler.List)
	notificationGroup.GET("/unread-count", notificationHandler.UnreadCount)
	notificationGroup.PATCH("/read-all", notificationHandler.MarkAllRead)
	notificationGroup.PATCH("/:id/read", notificationHandler.MarkRead)
	notificationGroup.DELETE("/:id", notificationHandler.Delete)
}
