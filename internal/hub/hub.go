// Package hub is the process-wide fan-out registry for connected clients.
// It holds only ephemeral routing state: after a restart clients re-subscribe
// and the maps rebuild themselves.
package hub

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/perentalassist/hub/internal/observability"
)

// Client is a connected handler able to receive asynchronous push lines.
// Deliver must never block; slow clients drop lines instead of stalling the
// broadcasting goroutine.
type Client interface {
	Deliver(line string)
}

// Hub routes push lines across three independent keyspaces: chat topics keyed
// by conversation id, comment topics keyed by post id, and presence keyed by
// user id.
type Hub struct {
	mu          sync.RWMutex
	chatSubs    map[uint]map[Client]struct{}
	commentSubs map[uint]map[Client]struct{}
	users       map[uint]map[Client]struct{}
	log         zerolog.Logger
}

// New constructs an empty hub.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		chatSubs:    make(map[uint]map[Client]struct{}),
		commentSubs: make(map[uint]map[Client]struct{}),
		users:       make(map[uint]map[Client]struct{}),
		log:         logger.With().Str("component", "hub").Logger(),
	}
}

func add(topics map[uint]map[Client]struct{}, key uint, c Client) {
	set, ok := topics[key]
	if !ok {
		set = make(map[Client]struct{})
		topics[key] = set
	}
	set[c] = struct{}{}
}

func remove(topics map[uint]map[Client]struct{}, key uint, c Client) {
	if set, ok := topics[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(topics, key)
		}
	}
}

// SubscribeChat adds c to the conversation topic.
func (h *Hub) SubscribeChat(convID uint, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	add(h.chatSubs, convID, c)
}

// UnsubscribeChat removes c from the conversation topic.
func (h *Hub) UnsubscribeChat(convID uint, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	remove(h.chatSubs, convID, c)
}

// SubscribeComments adds c to the post's comment topic.
func (h *Hub) SubscribeComments(postID uint, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	add(h.commentSubs, postID, c)
}

// UnsubscribeComments removes c from the post's comment topic.
func (h *Hub) UnsubscribeComments(postID uint, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	remove(h.commentSubs, postID, c)
}

// RegisterUser records c as a live connection for userID.
func (h *Hub) RegisterUser(userID uint, c Client) {
	if userID == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	add(h.users, userID, c)
}

// DropClient removes c from every topic and from presence. Called exactly once
// when a connection ends; missing it would leak subscriptions and broadcast to
// dead connections.
func (h *Hub) DropClient(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key, set := range h.chatSubs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.chatSubs, key)
		}
	}
	for key, set := range h.commentSubs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.commentSubs, key)
		}
	}
	for key, set := range h.users {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, key)
		}
	}
}

func (h *Hub) fanout(topics map[uint]map[Client]struct{}, key uint, line string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := topics[key]
	for c := range set {
		c.Deliver(line)
	}
	if n := len(set); n > 0 {
		observability.PushLines().Add(float64(n))
		return n
	}
	return 0
}

// BroadcastChat delivers line to every current subscriber of the conversation.
// Delivery is at-most-once per member subscribed at call time.
func (h *Hub) BroadcastChat(convID uint, line string) int {
	return h.fanout(h.chatSubs, convID, line)
}

// BroadcastComments delivers line to every current subscriber of the post.
func (h *Hub) BroadcastComments(postID uint, line string) int {
	return h.fanout(h.commentSubs, postID, line)
}

// SendToUser delivers line to every live connection authenticated as userID.
func (h *Hub) SendToUser(userID uint, line string) int {
	return h.fanout(h.users, userID, line)
}
