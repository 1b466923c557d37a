package handler

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/usecase"
	"carmarket/pkg/errors"
	"carmarket/pkg/response"
	"carmarket/pkg/utils"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
	maxLimit            int
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase, maxLimit int) *NotificationHandler {
	if maxLimit <= 0 {
		maxLimit = usecase.DefaultNotificationLimit
	}
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		maxLimit:            maxLimit,
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	userID := c.Get("uid").(string)
	limit := utils.GetLimit(c, h.maxLimit, h.maxLimit)

	notifications, err := h.notificationUseCase.List(c.Request().Context(), userID, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, notifications)
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	userID := c.Get("uid").(string)

	count, err := h.notificationUseCase.CountUnread(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int64{"count": count})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		return response.Error(c, errors.NotFound("Notification", nil))
	}
	userID := c.Get("uid").(string)

	if err := h.notificationUseCase.MarkRead(c.Request().Context(), userID, id); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{"id": id, "read": true})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID := c.Get("uid").(string)

	updated, err := h.notificationUseCase.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int64{"updated": updated})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		return response.Error(c, errors.NotFound("Notification", nil))
	}
	userID := c.Get("uid").(string)

	if err := h.notificationUseCase.Delete(c.Request().Context(), userID, id); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Notification deleted"})
}
