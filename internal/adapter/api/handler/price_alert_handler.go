package handler

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/usecase"
	"carmarket/pkg/errors"
	"carmarket/pkg/response"
	"carmarket/pkg/utils"
)

type PriceAlertHandler struct {
	priceAlertUseCase *usecase.PriceAlertUseCase
}

func NewPriceAlertHandler(priceAlertUseCase *usecase.PriceAlertUseCase) *PriceAlertHandler {
	return &PriceAlertHandler{
		priceAlertUseCase: priceAlertUseCase,
	}
}

// Create arms a new alert (201) or re-arms the existing one (200).
func (h *PriceAlertHandler) Create(c echo.Context) error {
	var req usecase.PriceAlertInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}
	userID := c.Get("uid").(string)

	alert, created, err := h.priceAlertUseCase.Create(c.Request().Context(), userID, req)
	if err != nil {
		return response.Error(c, err)
	}
	if created {
		return response.Created(c, alert)
	}
	return response.Success(c, alert)
}

func (h *PriceAlertHandler) List(c echo.Context) error {
	userID := c.Get("uid").(string)

	alerts, err := h.priceAlertUseCase.List(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, alerts)
}

func (h *PriceAlertHandler) Delete(c echo.Context) error {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		return response.Error(c, errors.NotFound("Price alert", nil))
	}
	userID := c.Get("uid").(string)

	if err := h.priceAlertUseCase.Delete(c.Request().Context(), userID, id); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Price alert deleted"})
}
