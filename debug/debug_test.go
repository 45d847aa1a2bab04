package debug

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialDump(t *testing.T, addr, topic string) *websocket.Conn {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: addr, Path: "/dump", RawQuery: "topic=" + url.QueryEscape(topic)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	return conn
}

func TestPublishDeliversMatchingTopic(t *testing.T) {
	s := NewServer()
	addr, closeFn, err := s.ListenLoopback(0)
	require.NoError(t, err)
	defer closeFn()

	conn := dialDump(t, addr, "npc.*")
	defer conn.Close()
	time.Sleep(20 * time.Millisecond) // allow the upgrade handshake to register the subscriber

	s.Publish(Event{Topic: "npc.mcam", Data: map[string]int{"index": 7}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "npc.mcam", got.Topic)
}

func TestPublishSkipsNonMatchingTopic(t *testing.T) {
	s := NewServer()
	addr, closeFn, err := s.ListenLoopback(0)
	require.NoError(t, err)
	defer closeFn()

	conn := dialDump(t, addr, "tpe.*")
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	s.Publish(Event{Topic: "npc.mcam", Data: nil})
	s.Publish(Event{Topic: "tpe.rpl", Data: nil})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	require.True(t, strings.HasPrefix(got.Topic, "tpe."))
}

func TestMarshalableRoundTrip(t *testing.T) {
	b, err := marshalable(Event{Topic: "x", Data: 1})
	require.NoError(t, err)
	require.Contains(t, string(b), "\"topic\":\"x\"")
}
