package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/infrastructure/metrics"
	"carmarket/internal/infrastructure/ratelimit"
	ws "carmarket/internal/infrastructure/websocket"
	apperrors "carmarket/pkg/errors"
	"carmarket/pkg/logger"
)

const notifyTimeout = 2 * time.Second

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	notifier    *NotificationUseCase
	wsManager   ws.Deliverer
	rateLimiter *ratelimit.RateLimiter
	typingTTL   time.Duration
	now         func() time.Time
}

// NewChatUseCase wires the chat controller. rateLimiter may be nil.
func NewChatUseCase(
	chatRepo repository.ChatRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	notifier *NotificationUseCase,
	wsManager ws.Deliverer,
	rateLimiter *ratelimit.RateLimiter,
	typingTTL time.Duration,
) *ChatUseCase {
	if typingTTL <= 0 {
		typingTTL = 5 * time.Second
	}
	return &ChatUseCase{
		chatRepo:    chatRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		wsManager:   wsManager,
		rateLimiter: rateLimiter,
		typingTTL:   typingTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ChatSummary is a chat as seen by one participant.
type ChatSummary struct {
	*entity.Chat
	Listing     *entity.ListingSummary `json:"listing,omitempty"`
	Buyer       *entity.Participant     `json:"buyer,omitempty"`
	Seller      *entity.Participant     `json:"seller,omitempty"`
	LastMessage *entity.Message         `json:"lastMessage,omitempty"`
	UnreadCount int                     `json:"unreadCount"`
}

type ChatThread struct {
	Chat     *ChatSummary      `json:"chat"`
	Messages []*entity.Message `json:"messages"`
}

func (uc *ChatUseCase) allow(userID, action string) error {
	if uc.rateLimiter == nil {
		return nil
	}
	allowed, wait := uc.rateLimiter.Allow(userID, action)
	if allowed {
		return nil
	}
	metrics.RateLimitHits.WithLabelValues(action).Inc()
	return apperrors.TooManyRequests("Rate limit exceeded. Please slow down", wait)
}

// participantChat loads a chat and hides it from anyone who is not a
// participant.
func (uc *ChatUseCase) participantChat(ctx context.Context, userID string, chatID uint64) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		logger.Warn("Chat: user %s is not a participant of chat %d", userID, chatID)
		return nil, apperrors.NotFound("Chat", nil)
	}
	return chat, nil
}

// OpenChat finds or creates the chat between the caller (as buyer) and the
// seller of listingID.
func (uc *ChatUseCase) OpenChat(ctx context.Context, actor entity.Actor, listingID uint64) (*ChatSummary, error) {
	if listingID == 0 {
		return nil, apperrors.Validation("listingId is required")
	}
	if err := uc.allow(actor.ID, ratelimit.ActionCreateChat); err != nil {
		return nil, err
	}

	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil, apperrors.InvalidReference("Listing not found", err)
		}
		return nil, err
	}
	if !listing.IsActive {
		return nil, apperrors.InvalidReference("Listing is not active", nil)
	}
	if listing.SellerID == "" {
		return nil, apperrors.InvalidReference("Listing has no seller", nil)
	}
	if listing.SellerID == actor.ID {
		return nil, apperrors.SelfDealing("You cannot open a chat about your own listing")
	}

	chat, created, err := uc.chatRepo.FindOrCreate(ctx, listing.ID, actor.ID, listing.SellerID)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.ChatsOpened.WithLabelValues("created").Inc()
		logger.Info("Chat: created chat %d for listing %d between %s and %s", chat.ID, listing.ID, actor.ID, listing.SellerID)
	} else {
		metrics.ChatsOpened.WithLabelValues("existing").Inc()
	}

	summaries, err := uc.summarize(ctx, actor.ID, []*entity.Chat{chat}, map[uint64]*entity.Listing{listing.ID: listing})
	if err != nil {
		return nil, err
	}
	return summaries[0], nil
}

// ListChats returns every chat of userID, most recently active first.
func (uc *ChatUseCase) ListChats(ctx context.Context, userID string) ([]*ChatSummary, error) {
	chats, err := uc.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.summarize(ctx, userID, chats, nil)
}

// OpenThread returns the chat with its messages in chronological order and
// marks everything the other participant sent as read.
func (uc *ChatUseCase) OpenThread(ctx context.Context, userID string, chatID uint64) (*ChatThread, error) {
	chat, err := uc.participantChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	readIDs, err := uc.chatRepo.MarkRead(ctx, chatID, userID, uc.now())
	if err != nil {
		return nil, err
	}

	messages, err := uc.chatRepo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	summaries, err := uc.summarize(ctx, userID, []*entity.Chat{chat}, nil)
	if err != nil {
		return nil, err
	}
	summary := summaries[0]

	participants := map[string]*entity.Participant{}
	if summary.Buyer != nil {
		participants[summary.Buyer.ID] = summary.Buyer
	}
	if summary.Seller != nil {
		participants[summary.Seller.ID] = summary.Seller
	}
	for _, m := range messages {
		m.Sender = participants[m.SenderID]
	}

	if len(readIDs) > 0 {
		uc.wsManager.BroadcastToRoom(chatID, ws.NewEvent(ws.EventMessagesRead, ws.MessagesReadPayload{
			ChatID:   chatID,
			ReaderID: userID,
			Count:    len(readIDs),
		}))
	}

	if messages == nil {
		messages = []*entity.Message{}
	}
	return &ChatThread{Chat: summary, Messages: messages}, nil
}

// SendMessage stores a message and then fans it out. Nothing is broadcast or
// notified unless the message was stored.
func (uc *ChatUseCase) SendMessage(ctx context.Context, actor entity.Actor, chatID uint64, text string) (*entity.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("Message text is required")
	}
	if utf8.RuneCountInString(text) > entity.MaxMessageLength {
		return nil, apperrors.Validation("Message text must be at most 1000 characters")
	}
	if err := uc.allow(actor.ID, ratelimit.ActionSendMessage); err != nil {
		return nil, err
	}

	chat, err := uc.participantChat(ctx, actor.ID, chatID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		ChatID:   chat.ID,
		SenderID: actor.ID,
		Text:     text,
	}
	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code != apperrors.CodeInternal {
			return nil, err
		}
		logger.Error("Chat: failed to store message in chat %d from %s: %v", chatID, actor.ID, err)
		return nil, apperrors.Internal("Failed to send message", err)
	}
	message.Sender = &entity.Participant{ID: actor.ID, Name: actor.DisplayName}
	metrics.MessagesSent.Inc()

	uc.wsManager.BroadcastToRoom(chat.ID, ws.NewEvent(ws.EventNewMessage, message))

	// the send has succeeded; notification is best-effort and must outlive
	// a client that disconnects right after sending
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if _, err := uc.notifier.NotifyNewMessage(notifyCtx, chat.Counterpart(actor.ID), actor, chat); err != nil {
		logger.Warn("Chat: notification for message %d in chat %d failed: %v", message.ID, chat.ID, err)
	}

	return message, nil
}

// SetTyping relays a transient typing signal to the other connections in the
// chat room. Stop signals are never rate limited.
func (uc *ChatUseCase) SetTyping(ctx context.Context, actor entity.Actor, chatID uint64, isTyping bool) error {
	if isTyping {
		if err := uc.allow(actor.ID, ratelimit.ActionTyping); err != nil {
			return err
		}
	}
	if _, err := uc.participantChat(ctx, actor.ID, chatID); err != nil {
		return err
	}

	payload := ws.TypingPayload{
		ChatID:   chatID,
		UserID:   actor.ID,
		UserName: actor.DisplayName,
		IsTyping: isTyping,
	}
	if isTyping {
		payload.ExpiresAt = uc.now().Add(uc.typingTTL).Format(time.RFC3339Nano)
	}
	uc.wsManager.BroadcastToRoomExcept(chatID, actor.ID, ws.NewEvent(ws.EventUserTyping, payload))
	return nil
}

// AuthorizeRoom lets a live connection join only the rooms of its own chats.
func (uc *ChatUseCase) AuthorizeRoom(ctx context.Context, actor entity.Actor, chatID uint64) error {
	_, err := uc.participantChat(ctx, actor.ID, chatID)
	return err
}

// summarize attaches listing, participant, last message and unread count to
// each chat. Directory lookups are best-effort.
func (uc *ChatUseCase) summarize(ctx context.Context, viewerID string, chats []*entity.Chat, listings map[uint64]*entity.Listing) ([]*ChatSummary, error) {
	if len(chats) == 0 {
		return []*ChatSummary{}, nil
	}
	chatIDs := lo.Map(chats, func(c *entity.Chat, _ int) uint64 { return c.ID })

	lastMessages, err := uc.chatRepo.LastMessages(ctx, chatIDs)
	if err != nil {
		return nil, err
	}
	unread, err := uc.chatRepo.CountUnread(ctx, chatIDs, viewerID)
	if err != nil {
		return nil, err
	}

	if listings == nil {
		listingIDs := lo.Uniq(lo.Map(chats, func(c *entity.Chat, _ int) uint64 { return c.ListingID }))
		listings, err = uc.listingRepo.GetByIDs(ctx, listingIDs)
		if err != nil {
			logger.Warn("Chat: listing lookup failed: %v", err)
			listings = map[uint64]*entity.Listing{}
		}
	}

	userIDs := lo.Uniq(lo.FlatMap(chats, func(c *entity.Chat, _ int) []string { return []string{c.BuyerID, c.SellerID} }))
	users, err := uc.userRepo.GetByIDs(ctx, userIDs)
	if err != nil {
		logger.Warn("Chat: user lookup failed: %v", err)
		users = map[string]*entity.User{}
	}
	participant := func(id string) *entity.Participant {
		if u, ok := users[id]; ok {
			return u.Participant()
		}
		return &entity.Participant{ID: id}
	}

	summaries := make([]*ChatSummary, 0, len(chats))
	for _, c := range chats {
		s := &ChatSummary{
			Chat:        c,
			Listing:     listings[c.ListingID].Summary(),
			Buyer:       participant(c.BuyerID),
			Seller:      participant(c.SellerID),
			LastMessage: lastMessages[c.ID],
			UnreadCount: unread[c.ID],
		}
		if s.LastMessage != nil {
			s.LastMessage.Sender = participant(s.LastMessage.SenderID)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
