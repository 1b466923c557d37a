package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"carmarket/internal/infrastructure/metrics"
	ws "carmarket/internal/infrastructure/websocket"
	"carmarket/pkg/logger"
)

const (
	DefaultChannel = "carmarket:live"
	publishTimeout = 2 * time.Second
)

// envelope is one live event addressed either to a room or to a user.
type envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room,omitempty"`
	Except string          `json:"except,omitempty"`
	User   string          `json:"user,omitempty"`
	Type   string          `json:"type"`
	Frame  json.RawMessage `json:"frame"`
}

// Relay fans live events out to every instance subscribed to the same Redis
// channel. Events are delivered to local connections immediately and
// published for the other instances; an instance ignores its own envelopes.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	local   *ws.Manager
}

// NewRelay connects to redisURL and checks the connection.
func NewRelay(ctx context.Context, redisURL string, local *ws.Manager) (*Relay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRelayWithClient(client, DefaultChannel, local), nil
}

func NewRelayWithClient(client *redis.Client, channel string, local *ws.Manager) *Relay {
	return &Relay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
	}
}

func (r *Relay) BroadcastToRoom(chatID uint64, event ws.Event) {
	r.BroadcastToRoomExcept(chatID, "", event)
}

func (r *Relay) BroadcastToRoomExcept(chatID uint64, exceptUserID string, event ws.Event) {
	frame, err := event.Encode()
	if err != nil {
		logger.Error("Relay: failed to encode %s event: %v", event.Type, err)
		return
	}
	env := envelope{Room: ws.RoomName(chatID), Except: exceptUserID, Type: event.Type, Frame: frame}
	r.apply(env)
	r.publish(env)
}

func (r *Relay) SendToUser(userID string, event ws.Event) {
	frame, err := event.Encode()
	if err != nil {
		logger.Error("Relay: failed to encode %s event: %v", event.Type, err)
		return
	}
	env := envelope{User: userID, Type: event.Type, Frame: frame}
	r.apply(env)
	r.publish(env)
}

// publish is best-effort. Local connections have already been served.
func (r *Relay) publish(env envelope) {
	env.Origin = r.origin
	payload, err := json.Marshal(env)
	if err != nil {
		logger.Error("Relay: failed to encode envelope: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		metrics.RelayPublishFailures.Inc()
		logger.Warn("Relay: publish of %s event failed, delivered locally only: %v", env.Type, err)
	}
}

func (r *Relay) apply(env envelope) int {
	switch {
	case env.Room != "":
		return r.local.BroadcastFrame(env.Room, env.Except, env.Type, env.Frame)
	case env.User != "":
		return r.local.SendFrameToUser(env.User, env.Type, env.Frame)
	default:
		logger.Warn("Relay: dropping %s envelope without a target", env.Type)
		return 0
	}
}

// handle applies an envelope received from the channel.
func (r *Relay) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		logger.Warn("Relay: malformed envelope: %v", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.apply(env)
}

// Run consumes the channel until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	logger.Info("Relay: subscribed to %s as %s", r.channel, r.origin)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *Relay) Close() error {
	return r.client.Close()
}
