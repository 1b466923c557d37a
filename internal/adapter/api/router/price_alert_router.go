package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
)

func SetupPriceAlertRouter(g *echo.Group, priceAlertHandler *handler.PriceAlertHandler) {
	alertGroup := g.Group("/price-alerts")

	alertGroup.POST("", priceAlertHandler.Create)
	alertGroup.GET("", priceAlertHandler.List)
	alertGroup.DELETE("/:id", priceAlertHandler.Delete)
}
