package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
)

// SetupChatRouter registers the chat routes on an authenticated group.
func SetupChatRouter(g *echo.Group, chatHandler *handler.ChatHandler) {
	chatGroup := g.Group("/chat")

	chatGroup.POST("", chatHandler.OpenChat)                 // POST /api/chat - open or create chat for a listing
	chatGroup.GET("", chatHandler.ListChats)                 // GET /api/chat - caller's chats
	chatGroup.GET("/:id", chatHandler.GetChat)               // GET /api/chat/:id - thread, marks incoming read
	chatGroup.POST("/:id/messages", chatHandler.SendMessage) // POST /api/chat/:id/messages
}
