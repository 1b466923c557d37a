// Package chatclient is a Go client for the marketplace chat API. Besides
// the REST and live calls it carries the reconciliation a UI needs: message
// de-duplication, typing expiry, draft restore and an unread-count fallback.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the REST API. It is safe for concurrent use.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api error %d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// OpenChat finds or creates the caller's chat about a listing.
func (c *Client) OpenChat(ctx context.Context, listingID uint64) (*Chat, error) {
	var chat Chat
	if err := c.do(ctx, http.MethodPost, "/api/chat", map[string]uint64{"listingId": listingID}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) ListChats(ctx context.Context) ([]*Chat, error) {
	var chats []*Chat
	if err := c.do(ctx, http.MethodGet, "/api/chat", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetThread loads a chat with its messages. The server marks incoming
// messages read as a side effect.
func (c *Client) GetThread(ctx context.Context, chatID uint64) (*Thread, error) {
	var thread Thread
	if err := c.do(ctx, http.MethodGet, "/api/chat/"+strconv.FormatUint(chatID, 10), nil, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID uint64, text string) (*Message, error) {
	var msg Message
	path := "/api/chat/" + strconv.FormatUint(chatID, 10) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"text": text}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) ListNotifications(ctx context.Context, limit int) ([]*Notification, error) {
	path := "/api/notifications"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var notifications []*Notification
	if err := c.do(ctx, http.MethodGet, path, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID uint64) error {
	return c.do(ctx, http.MethodPatch, "/api/notifications/"+strconv.FormatUint(notificationID, 10)+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/notifications/read-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func (c *Client) DeleteNotification(ctx context.Context, notificationID uint64) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/"+strconv.FormatUint(notificationID, 10), nil, nil)
}
