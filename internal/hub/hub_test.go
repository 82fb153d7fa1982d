package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trungnc273/ebay-be/internal/config"
)

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 8192,
	}
}

func newTestHub() *Hub {
	h := NewHub(testWSConfig())
	go h.Run()
	return h
}

// recv pulls one payload off the client's send queue, or fails.
func recv(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		return payload
	case <-time.After(time.Second):
		t.Fatal("no payload received")
		return nil
	}
}

// expectNothing asserts the client's send queue stays empty.
func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected payload: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastReachesAllRoomMembers(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New().String()

	a := NewClient("a", h, nil, testWSConfig())
	b := NewClient("b", h, nil, testWSConfig())
	outsider := NewClient("c", h, nil, testWSConfig())
	h.Register(a)
	h.Register(b)
	h.Register(outsider)

	h.JoinRoom(a, roomID)
	h.JoinRoom(b, roomID)

	require.NoError(t, h.Broadcast(roomID, map[string]string{"type": "new_message", "id": "m1"}, ""))

	got := recv(t, a)
	assert.Equal(t, "m1", got["id"])
	got = recv(t, b)
	assert.Equal(t, "m1", got["id"])
	expectNothing(t, outsider)
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New().String()

	a := NewClient("a", h, nil, testWSConfig())
	b := NewClient("b", h, nil, testWSConfig())
	h.Register(a)
	h.Register(b)
	h.JoinRoom(a, roomID)
	h.JoinRoom(b, roomID)

	require.NoError(t, h.Broadcast(roomID, map[string]string{"type": "user_typing"}, a.ID))

	got := recv(t, b)
	assert.Equal(t, "user_typing", got["type"])
	expectNothing(t, a)
}

func TestClientMayJoinMultipleRooms(t *testing.T) {
	h := newTestHub()
	room1 := uuid.New().String()
	room2 := uuid.New().String()

	a := NewClient("a", h, nil, testWSConfig())
	h.Register(a)
	h.JoinRoom(a, room1)
	h.JoinRoom(a, room2)

	assert.True(t, h.InRoom(a.ID, room1))
	assert.True(t, h.InRoom(a.ID, room2))

	require.NoError(t, h.Broadcast(room1, map[string]string{"room": "1"}, ""))
	require.NoError(t, h.Broadcast(room2, map[string]string{"room": "2"}, ""))

	first := recv(t, a)
	second := recv(t, a)
	rooms := []interface{}{first["room"], second["room"]}
	assert.ElementsMatch(t, []interface{}{"1", "2"}, rooms)
}

func TestRepeatedJoinIsNoop(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New().String()

	a := NewClient("a", h, nil, testWSConfig())
	h.Register(a)
	h.JoinRoom(a, roomID)
	h.JoinRoom(a, roomID)

	assert.Equal(t, 1, h.RoomClientCount(roomID))

	require.NoError(t, h.Broadcast(roomID, map[string]string{"type": "new_message"}, ""))
	recv(t, a)
	expectNothing(t, a)
}

func TestLeaveAllRemovesEveryMembership(t *testing.T) {
	h := newTestHub()
	room1 := uuid.New().String()
	room2 := uuid.New().String()

	a := NewClient("a", h, nil, testWSConfig())
	b := NewClient("b", h, nil, testWSConfig())
	h.Register(a)
	h.Register(b)
	h.JoinRoom(a, room1)
	h.JoinRoom(a, room2)
	h.JoinRoom(b, room1)

	h.LeaveAll(a)

	assert.False(t, h.InRoom(a.ID, room1))
	assert.False(t, h.InRoom(a.ID, room2))
	assert.True(t, h.InRoom(b.ID, room1))
	assert.Equal(t, 1, h.RoomClientCount(room1))
	assert.Equal(t, 0, h.RoomClientCount(room2))
}

func TestUnregisterClosesSendAndLeavesRooms(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New().String()

	a := NewClient("a", h, nil, testWSConfig())
	h.Register(a)
	h.JoinRoom(a, roomID)

	h.Unregister(a)

	assert.Eventually(t, func() bool {
		return h.RoomClientCount(roomID) == 0
	}, time.Second, 10*time.Millisecond)

	_, open := <-a.Send
	assert.False(t, open, "send channel must be closed on unregister")
}
