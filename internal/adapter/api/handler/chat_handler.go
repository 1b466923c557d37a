package handler

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/usecase"
	"carmarket/pkg/errors"
	"carmarket/pkg/response"
	"carmarket/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type openChatRequest struct {
	ListingID uint64 `json:"listingId" validate:"required"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// OpenChat finds or creates the caller's chat about a listing.
func (h *ChatHandler) OpenChat(c echo.Context) error {
	var req openChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.OpenChat(c.Request().Context(), actorFrom(c), req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, chat)
}

// ListChats returns the caller's chats, most recently active first.
func (h *ChatHandler) ListChats(c echo.Context) error {
	userID := c.Get("uid").(string)

	chats, err := h.chatUseCase.ListChats(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, chats)
}

// GetChat returns the thread and marks incoming messages read.
func (h *ChatHandler) GetChat(c echo.Context) error {
	chatID, ok := utils.ParseID(c, "id")
	if !ok {
		return response.Error(c, errors.NotFound("Chat", nil))
	}
	userID := c.Get("uid").(string)

	thread, err := h.chatUseCase.OpenThread(c.Request().Context(), userID, chatID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, thread)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	chatID, ok := utils.ParseID(c, "id")
	if !ok {
		return response.Error(c, errors.NotFound("Chat", nil))
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	// length and blank checks live in the use case so both transports agree
	message, err := h.chatUseCase.SendMessage(c.Request().Context(), actorFrom(c), chatID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, message)
}
