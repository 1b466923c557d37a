package chatclient

import (
	"context"
	"time"
)

// Session folds live events into the local state of one open chat plus the
// notification badge.
type Session struct {
	SelfID string
	Store  *MessageStore
	Typing *TypingTracker
	Unread *UnreadCounter

	// OnError receives error events from the stream, if set.
	OnError func(*StreamError)
}

func NewSession(selfID string, chatID uint64, unread *UnreadCounter) *Session {
	return &Session{
		SelfID: selfID,
		Store:  NewMessageStore(chatID),
		Typing: NewTypingTracker(selfID, DefaultTypingTTL),
		Unread: unread,
	}
}

// Load seeds the store from the REST thread, which also marks incoming
// messages read on the server.
func (s *Session) Load(ctx context.Context, client *Client) (*Thread, error) {
	thread, err := client.GetThread(ctx, s.Store.ChatID())
	if err != nil {
		return nil, err
	}
	s.Store.Seed(thread.Messages)
	return thread, nil
}

// MarkNotificationRead marks one notification read and lowers the badge.
func (s *Session) MarkNotificationRead(ctx context.Context, client *Client, notificationID uint64) error {
	if err := client.MarkNotificationRead(ctx, notificationID); err != nil {
		return err
	}
	if s.Unread != nil {
		s.Unread.Decrement()
	}
	return nil
}

// MarkAllNotificationsRead clears the badge once the server confirms.
func (s *Session) MarkAllNotificationsRead(ctx context.Context, client *Client) error {
	if _, err := client.MarkAllNotificationsRead(ctx); err != nil {
		return err
	}
	if s.Unread != nil {
		s.Unread.Reset()
	}
	return nil
}

// Handle applies one live event. Malformed payloads are ignored.
func (s *Session) Handle(ev Event) {
	switch ev.Type {
	case EventNewMessage:
		var msg Message
		if err := ev.Decode(&msg); err != nil {
			return
		}
		s.Store.Upsert(&msg)
		s.Typing.Clear(msg.ChatID, msg.SenderID)

	case EventMessageSent:
		var sent MessageSent
		if err := ev.Decode(&sent); err != nil || sent.Message == nil {
			return
		}
		if sent.TempID != "" {
			s.Store.Confirm(sent.TempID, sent.Message)
			return
		}
		s.Store.Upsert(sent.Message)

	case EventTyping:
		var typing TypingEvent
		if err := ev.Decode(&typing); err != nil {
			return
		}
		s.Typing.Apply(typing)

	case EventMessagesRead:
		var receipt MessagesRead
		if err := ev.Decode(&receipt); err != nil {
			return
		}
		if receipt.ChatID == s.Store.ChatID() && receipt.ReaderID != s.SelfID {
			s.Store.MarkReadBy(receipt.ReaderID, time.Now().UTC())
		}

	case EventNotification:
		if s.Unread != nil {
			s.Unread.Increment()
		}

	case EventError:
		var streamErr StreamError
		if err := ev.Decode(&streamErr); err != nil {
			return
		}
		if streamErr.TempID != "" {
			s.Store.Discard(streamErr.TempID)
		}
		if s.OnError != nil {
			s.OnError(&streamErr)
		}
	}
}

// Consume applies events until the stream closes or ctx is done.
func (s *Session) Consume(ctx context.Context, stream *Stream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-stream.Events():
			if !ok {
				return stream.Err()
			}
			s.Handle(ev)
		}
	}
}
