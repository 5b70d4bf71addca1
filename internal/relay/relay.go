// Package relay fans push lines out across server nodes. Every push is
// delivered locally through the hub and, when redis and/or NATS are
// configured, published as an event so sibling nodes can deliver it to their
// own subscribers. A single-node deployment runs the relay with both
// transports nil and only the local path is used.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event is one push line crossing node boundaries.
type Event struct {
	Source string    `json:"source"`
	Scope  string    `json:"scope"`
	Key    uint      `json:"key"`
	Line   string    `json:"line"`
	SentAt time.Time `json:"sent_at"`
}

// Push scopes, matching the hub's keyspaces.
const (
	ScopeChat    = "chat"
	ScopeComment = "comment"
	ScopeUser    = "user"
)

// LocalSink receives push lines for delivery to connections on this node.
// *hub.Hub satisfies it.
type LocalSink interface {
	BroadcastChat(convID uint, line string) int
	BroadcastComments(postID uint, line string) int
	SendToUser(userID uint, line string) int
}

// Relay is the push delivery front door used by the services.
type Relay struct {
	sink    LocalSink
	redis   *redis.Client
	channel string
	nats    *nats.Conn
	subject string
	queue   string
	nodeID  string
	log     zerolog.Logger
}

// New constructs a relay. redisClient and natsConn may each be nil.
func New(sink LocalSink, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *Relay {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":push"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".push"
	}

	return &Relay{
		sink:    sink,
		redis:   redisClient,
		channel: channel,
		nats:    natsConn,
		subject: subject,
		queue:   "pa-hub",
		nodeID:  uuid.NewString(),
		log:     logger.With().Str("component", "relay").Logger(),
	}
}

// Start launches the remote consumers. It is a no-op without transports.
func (r *Relay) Start(ctx context.Context) {
	if r.redis != nil && r.channel != "" {
		go r.consumeRedis(ctx)
	}
	if r.nats != nil && r.subject != "" {
		go r.consumeNATS(ctx)
	}
}

// BroadcastChat delivers line to local conversation subscribers and publishes
// it for sibling nodes.
func (r *Relay) BroadcastChat(convID uint, line string) {
	r.sink.BroadcastChat(convID, line)
	r.publish(Event{Scope: ScopeChat, Key: convID, Line: line})
}

// BroadcastComments delivers line to local post subscribers and publishes it
// for sibling nodes.
func (r *Relay) BroadcastComments(postID uint, line string) {
	r.sink.BroadcastComments(postID, line)
	r.publish(Event{Scope: ScopeComment, Key: postID, Line: line})
}

// SendToUser delivers line to the user's local connections and publishes it
// for sibling nodes.
func (r *Relay) SendToUser(userID uint, line string) {
	r.sink.SendToUser(userID, line)
	r.publish(Event{Scope: ScopeUser, Key: userID, Line: line})
}

func (r *Relay) publish(event Event) {
	if (r.redis == nil || r.channel == "") && (r.nats == nil || r.subject == "") {
		return
	}

	event.Source = r.nodeID
	event.SentAt = time.Now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to marshal push event")
		return
	}

	if r.redis != nil && r.channel != "" {
		if err := r.redis.Publish(context.Background(), r.channel, payload).Err(); err != nil {
			r.log.Warn().Err(err).Msg("failed to publish push event to redis")
		}
	}

	if r.nats != nil && r.subject != "" {
		if err := r.nats.Publish(r.subject, payload); err != nil {
			r.log.Warn().Err(err).Msg("failed to publish push event to nats")
		}
	}
}

func (r *Relay) consumeRedis(ctx context.Context) {
	pubsub := r.redis.Subscribe(ctx, r.channel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.log.Error().Err(err).Msg("push relay redis subscription closed")
			return
		}
		r.handleEvent([]byte(msg.Payload))
	}
}

func (r *Relay) consumeNATS(ctx context.Context) {
	sub, err := r.nats.QueueSubscribe(r.subject, r.queue, func(msg *nats.Msg) {
		r.handleEvent(msg.Data)
	})
	if err != nil {
		r.log.Error().Err(err).Msg("failed to subscribe to nats push subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			r.log.Warn().Err(err).Msg("failed to drain nats push subscription")
		}
	}()
}

func (r *Relay) handleEvent(data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		r.log.Warn().Err(err).Msg("invalid push event")
		return
	}

	if event.Source == r.nodeID {
		return
	}

	switch event.Scope {
	case ScopeChat:
		r.sink.BroadcastChat(event.Key, event.Line)
	case ScopeComment:
		r.sink.BroadcastComments(event.Key, event.Line)
	case ScopeUser:
		r.sink.SendToUser(event.Key, event.Line)
	default:
		r.log.Warn().Str("scope", event.Scope).Msg("push event with unknown scope")
	}
}
