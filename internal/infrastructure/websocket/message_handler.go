package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"carmarket/internal/domain/entity"
	apperrors "carmarket/pkg/errors"
	"carmarket/pkg/logger"
)

const handleTimeout = 10 * time.Second

// ChatGateway is the chat behaviour reachable from a live connection.
type ChatGateway interface {
	// AuthorizeRoom fails unless actor is a participant of chatID.
	AuthorizeRoom(ctx context.Context, actor entity.Actor, chatID uint64) error
	SendMessage(ctx context.Context, actor entity.Actor, chatID uint64, text string) (*entity.Message, error)
	SetTyping(ctx context.Context, actor entity.Actor, chatID uint64, isTyping bool) error
}

// Dispatcher turns inbound frames into chat operations. Frames from one
// connection are handled in arrival order by that connection's read loop.
type Dispatcher struct {
	manager *Manager
	gateway ChatGateway
}

func NewDispatcher(manager *Manager, gateway ChatGateway) *Dispatcher {
	return &Dispatcher{
		manager: manager,
		gateway: gateway,
	}
}

// HandleClientMessage processes one inbound frame.
func (d *Dispatcher) HandleClientMessage(ctx context.Context, client *Client, raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		logger.Warn("WebSocket: invalid frame from client %s (%s): %v", client.ID, client.UserID, err)
		d.sendError(client, apperrors.BadRequest("Invalid message format", err), "")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	actor := entity.Actor{ID: client.UserID, DisplayName: client.DisplayName}

	switch ev.Type {
	case EventPing:
		d.manager.SendToClient(client, NewEvent(EventPong, nil))

	case EventJoinChat:
		var in ChatRef
		if err := decodeData(ev.Data, &in); err != nil || in.ChatID == 0 {
			d.sendError(client, apperrors.Validation("chatId is required"), "")
			return
		}
		if err := d.gateway.AuthorizeRoom(ctx, actor, in.ChatID); err != nil {
			d.sendError(client, err, "")
			return
		}
		d.manager.JoinRoom(client, in.ChatID)
		d.manager.SendToClient(client, NewEvent(EventJoined, in))

	case EventLeaveChat:
		var in ChatRef
		if err := decodeData(ev.Data, &in); err != nil || in.ChatID == 0 {
			d.sendError(client, apperrors.Validation("chatId is required"), "")
			return
		}
		d.manager.LeaveRoom(client, in.ChatID)

	case EventTyping:
		var in TypingInput
		if err := decodeData(ev.Data, &in); err != nil || in.ChatID == 0 {
			d.sendError(client, apperrors.Validation("chatId is required"), "")
			return
		}
		if err := d.gateway.SetTyping(ctx, actor, in.ChatID, in.IsTyping); err != nil {
			// typing over the limit is dropped silently
			if apperrors.Is(err, apperrors.CodeTooManyRequests) {
				return
			}
			d.sendError(client, err, "")
		}

	case EventSendMessage:
		var in SendMessageInput
		if err := decodeData(ev.Data, &in); err != nil || in.ChatID == 0 {
			d.sendError(client, apperrors.Validation("chatId is required"), in.TempID)
			return
		}
		msg, err := d.gateway.SendMessage(ctx, actor, in.ChatID, in.Text)
		if err != nil {
			d.sendError(client, err, in.TempID)
			return
		}
		d.manager.SendToClient(client, NewEvent(EventMessageSent, MessageSentPayload{
			TempID:  in.TempID,
			Message: msg,
		}))

	default:
		d.sendError(client, apperrors.BadRequest("Unknown event type: "+ev.Type, nil), "")
	}
}

func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return errors.New("missing data")
	}
	return json.Unmarshal(data, v)
}

func (d *Dispatcher) sendError(client *Client, err error, tempID string) {
	payload := ErrorPayload{
		Code:    apperrors.CodeInternal,
		Message: "An unexpected error occurred",
		TempID:  tempID,
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		payload.Code = appErr.Code
		payload.Message = appErr.Message
	} else {
		logger.Error("WebSocket: unexpected error for client %s (%s): %v", client.ID, client.UserID, err)
	}
	d.manager.SendToClient(client, NewEvent(EventError, payload))
}
