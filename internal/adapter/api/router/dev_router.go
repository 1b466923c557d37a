package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler, environment string) {
	if environment != "development" || devTokenHandler == nil {
		return
	}

	e.GET("/_dev/token/:userId", devTokenHandler.GenerateUserToken)
}
