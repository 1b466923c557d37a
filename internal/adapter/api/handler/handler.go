package handler

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/middleware"
	"carmarket/internal/domain/entity"
)

// actorFrom returns the caller stored by the auth middleware.
func actorFrom(c echo.Context) entity.Actor {
	if actor, ok := c.Get(middleware.ContextActor).(entity.Actor); ok {
		return actor
	}
	userID, _ := c.Get(middleware.ContextUserID).(string)
	return entity.Actor{ID: userID}
}
