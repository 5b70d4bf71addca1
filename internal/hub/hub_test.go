package hub

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	lines []string
}

func (c *recordingClient) Deliver(line string) {
	c.lines = append(c.lines, line)
}

func TestBroadcastChatReachesOnlySubscribers(t *testing.T) {
	h := New(zerolog.Nop())
	a := &recordingClient{}
	b := &recordingClient{}

	h.SubscribeChat(1, a)
	h.SubscribeChat(2, b)

	n := h.BroadcastChat(1, "MSG|1|1|1|hi|2026-01-01 10:00:00")
	require.Equal(t, 1, n)
	require.Len(t, a.lines, 1)
	require.Empty(t, b.lines)
}

func TestBroadcastToEmptyTopic(t *testing.T) {
	h := New(zerolog.Nop())
	require.Zero(t, h.BroadcastChat(42, "MSG|42|1|1|void|ts"))
	require.Zero(t, h.BroadcastComments(42, "COMMENT|42|1|a|b|ts"))
	require.Zero(t, h.SendToUser(42, "NOTIFY|APPT|1|x"))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := New(zerolog.Nop())
	c := &recordingClient{}

	h.SubscribeComments(7, c)
	require.Equal(t, 1, h.BroadcastComments(7, "COMMENT|7|1|a|first|ts"))

	h.UnsubscribeComments(7, c)
	require.Zero(t, h.BroadcastComments(7, "COMMENT|7|2|a|second|ts"))
	require.Len(t, c.lines, 1)
}

func TestRegisterUserIgnoresZeroID(t *testing.T) {
	h := New(zerolog.Nop())
	c := &recordingClient{}

	h.RegisterUser(0, c)
	require.Zero(t, h.SendToUser(0, "NOTIFY|APPT|1|x"))

	h.RegisterUser(9, c)
	require.Equal(t, 1, h.SendToUser(9, "NOTIFY|APPT|1|x"))
}

func TestDropClientScrubsAllTopics(t *testing.T) {
	h := New(zerolog.Nop())
	gone := &recordingClient{}
	stays := &recordingClient{}

	h.SubscribeChat(1, gone)
	h.SubscribeChat(1, stays)
	h.SubscribeComments(2, gone)
	h.RegisterUser(3, gone)

	h.DropClient(gone)

	require.Equal(t, 1, h.BroadcastChat(1, "MSG|1|1|1|hi|ts"))
	require.Zero(t, h.BroadcastComments(2, "COMMENT|2|1|a|b|ts"))
	require.Zero(t, h.SendToUser(3, "NOTIFY|APPT|1|x"))
	require.Empty(t, gone.lines)
	require.Len(t, stays.lines, 1)
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	h := New(zerolog.Nop())
	first := &recordingClient{}
	second := &recordingClient{}

	h.RegisterUser(5, first)
	h.RegisterUser(5, second)

	require.Equal(t, 2, h.SendToUser(5, "NOTIFY|APPT|1|x"))
	require.Len(t, first.lines, 1)
	require.Len(t, second.lines, 1)
}
