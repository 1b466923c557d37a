package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	ws "carmarket/internal/infrastructure/websocket"
)

// Pinger is a dependency whose reachability is reported by /health.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	wsManager *ws.Manager
	checks    map[string]Pinger
}

func NewHealthHandler(wsManager *ws.Manager, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		wsManager: wsManager,
		checks:    checks,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	online, rooms := h.wsManager.Stats()
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	return c.JSON(status, map[string]interface{}{
		"status":       state,
		"time":         time.Now().UTC().Format(time.RFC3339),
		"dependencies": deps,
		"online_users": online,
		"active_rooms": rooms,
	})
}
