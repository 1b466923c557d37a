package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/middleware"
	ws "carmarket/internal/infrastructure/websocket"
	"carmarket/pkg/logger"
	"carmarket/pkg/response"
)

// WebSocketHandler upgrades authenticated requests. Connections outlive the
// upgrade request, so their handlers run under baseCtx, the server lifetime.
type WebSocketHandler struct {
	wsManager      *ws.Manager
	dispatcher     *ws.Dispatcher
	authMiddleware *middleware.AuthMiddleware
	upgrader       gorillaws.Upgrader
	sendBuffer     int
	baseCtx        context.Context
}

func NewWebSocketHandler(
	baseCtx context.Context,
	wsManager *ws.Manager,
	dispatcher *ws.Dispatcher,
	authMiddleware *middleware.AuthMiddleware,
	allowedOrigins []string,
	sendBuffer int,
) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:      wsManager,
		dispatcher:     dispatcher,
		authMiddleware: authMiddleware,
		sendBuffer:     sendBuffer,
		baseCtx:        baseCtx,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket authenticates the caller and upgrades the connection. The
// identity is fixed for the lifetime of the connection.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	actor, err := h.authMiddleware.Resolve(c)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logger.Warn("WebSocket: upgrade failed for user %s: %v", actor.ID, err)
		return nil
	}

	client := ws.NewClient(actor.ID, actor.DisplayName, conn, h.sendBuffer)
	h.wsManager.Register(client)

	go client.WritePump()
	go client.ReadPump(h.baseCtx, h.wsManager, h.dispatcher)

	return nil
}
