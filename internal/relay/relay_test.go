package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	chat     map[uint][]string
	comments map[uint][]string
	user     map[uint][]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		chat:     make(map[uint][]string),
		comments: make(map[uint][]string),
		user:     make(map[uint][]string),
	}
}

func (s *recordingSink) BroadcastChat(convID uint, line string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat[convID] = append(s.chat[convID], line)
	return 1
}

func (s *recordingSink) BroadcastComments(postID uint, line string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[postID] = append(s.comments[postID], line)
	return 1
}

func (s *recordingSink) SendToUser(userID uint, line string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user[userID] = append(s.user[userID], line)
	return 1
}

func (s *recordingSink) chatCount(convID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chat[convID])
}

func (s *recordingSink) userCount(userID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.user[userID])
}

func TestRelayDeliversLocallyWithoutTransports(t *testing.T) {
	sink := newRecordingSink()
	r := New(sink, nil, nil, "", zerolog.Nop())
	r.Start(context.Background())

	r.BroadcastChat(1, "MSG|1|1|1|hi|ts")
	r.BroadcastComments(2, "COMMENT|2|1|a|b|ts")
	r.SendToUser(3, "NOTIFY|APPT|1|x")

	require.Equal(t, 1, sink.chatCount(1))
	require.Equal(t, 1, sink.userCount(3))
}

func TestRelayFansOutAcrossNodesViaRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = clientA.Close()
		_ = clientB.Close()
	})

	sinkA := newRecordingSink()
	sinkB := newRecordingSink()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	nodeA := New(sinkA, clientA, nil, "pa-hub", zerolog.Nop())
	nodeB := New(sinkB, clientB, nil, "pa-hub", zerolog.Nop())
	nodeA.Start(ctx)
	nodeB.Start(ctx)

	// Wait until both subscribers are attached before publishing.
	require.Eventually(t, func() bool {
		counts, err := clientA.PubSubNumSub(ctx, "pa-hub:push").Result()
		return err == nil && counts["pa-hub:push"] >= 2
	}, 2*time.Second, 10*time.Millisecond)

	nodeA.BroadcastChat(7, "MSG|7|1|1|hello|ts")

	require.Equal(t, 1, sinkA.chatCount(7), "origin node delivers synchronously")
	require.Eventually(t, func() bool {
		return sinkB.chatCount(7) == 1
	}, 2*time.Second, 10*time.Millisecond, "sibling node delivers via redis")

	// The origin must not re-deliver its own event.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, sinkA.chatCount(7))
}

func TestHandleEventIgnoresOwnSourceAndBadPayload(t *testing.T) {
	sink := newRecordingSink()
	r := New(sink, nil, nil, "pa-hub", zerolog.Nop())

	r.handleEvent([]byte("{not json"))
	require.Zero(t, sink.chatCount(1))

	r.handleEvent([]byte(`{"source":"` + r.nodeID + `","scope":"chat","key":1,"line":"MSG|1"}`))
	require.Zero(t, sink.chatCount(1), "own events are filtered")

	r.handleEvent([]byte(`{"source":"other","scope":"chat","key":1,"line":"MSG|1"}`))
	require.Equal(t, 1, sink.chatCount(1))

	r.handleEvent([]byte(`{"source":"other","scope":"user","key":4,"line":"NOTIFY|APPT|1|x"}`))
	require.Equal(t, 1, sink.userCount(4))
}
