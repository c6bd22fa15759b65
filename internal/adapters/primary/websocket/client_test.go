package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

type wireEvent struct {
	Type     domain.EventType `json:"type"`
	TicketID int64            `json:"ticketId"`
	Payload  json.RawMessage  `json:"payload"`
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, "alice@pwc.com", slog.New(slog.NewTextHandler(io.Discard, nil)))
		if !hub.Join(client) {
			_ = conn.Close()
			return
		}
		go client.Serve()
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, msg string) wireEvent {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	return next(t, conn)
}

func next(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestClient_SubscribeProtocol(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := dial(t, hub)

	ev := exchange(t, conn, `{"type":"SUBSCRIBE_TO_TICKET","payload":{"ticketIds":[9,4]}}`)
	assert.Equal(t, EventSubscribed, ev.Type)
	assert.JSONEq(t, `{"ticketIds":[4,9]}`, string(ev.Payload))
	assert.Equal(t, 1, hub.GetClientsInRoom(4))

	ev = exchange(t, conn, `{"type":"UNSUBSCRIBE_FROM_TICKET","payload":{"ticketId":9}}`)
	assert.Equal(t, EventUnsubscribed, ev.Type)
	assert.JSONEq(t, `{"ticketIds":[4]}`, string(ev.Payload))

	// Ticket 5 is filtered out; ticket 4 arrives.
	require.NoError(t, hub.Broadcast(domain.Event{Type: domain.EventTicketUpdated, TicketID: 5}))
	require.NoError(t, hub.Broadcast(domain.Event{Type: domain.EventCommentAdded, TicketID: 4}))
	ev = next(t, conn)
	assert.Equal(t, domain.EventCommentAdded, ev.Type)
	assert.Equal(t, int64(4), ev.TicketID)
}

func TestClient_PingAndRejects(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := dial(t, hub)

	assert.Equal(t, EventPong, exchange(t, conn, `{"type":"PING"}`).Type)

	for _, msg := range []string{
		`not json`,
		`{"type":"SUBSCRIBE_TO_TICKET","payload":"seven"}`,
		`{"type":"SUBSCRIBE_TO_TICKET","payload":{}}`,
		`{"type":"SUBSCRIBE_TO_TICKET","payload":{"ticketIds":[3,-1]}}`,
		`{"type":"SHOUT"}`,
	} {
		ev := exchange(t, conn, msg)
		assert.Equal(t, EventError, ev.Type, msg)

		var p ErrorPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		assert.NotEmpty(t, p.Message, msg)
	}
	assert.Equal(t, 0, hub.GetClientsInRoom(3))
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := dial(t, hub)

	exchange(t, conn, `{"type":"SUBSCRIBE_TO_TICKET","payload":{"ticketId":1}}`)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return hub.GetClientCount() == 0 && hub.GetClientsInRoom(1) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
