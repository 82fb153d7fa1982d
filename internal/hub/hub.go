package hub

import (
	"encoding/json"
	"sync"

	"github.com/Trungnc273/ebay-be/internal/config"
	"github.com/Trungnc273/ebay-be/pkg/log"
)

// Rooms is the membership tracker contract the protocol handler depends on.
// The hub below is process-local; a distributed deployment can swap in a
// cross-process backing without touching the handler.
type Rooms interface {
	JoinRoom(client *Client, roomID string)
	Broadcast(roomID string, message interface{}, exclude string) error
}

// Hub tracks live connections and their room memberships. A connection may
// be a member of any number of rooms at once; membership is ephemeral and
// vanishes with the connection.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	rooms      map[string]map[string]*Client // roomID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *RoomMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

// RoomMessage is a payload queued for fan-out to one room.
type RoomMessage struct {
	RoomID  string
	Message []byte
	Exclude string // client ID to skip, "" to deliver to everyone
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *RoomMessage, 256),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if members, ok := h.rooms[msg.RoomID]; ok {
				for clientID, client := range members {
					if clientID == msg.Exclude {
						continue
					}
					select {
					case client.Send <- msg.Message:
					default:
						go h.removeClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom registers the connection as a member of the room. Joining a room
// the client is already in is a no-op; earlier memberships are kept.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client

	log.L().Info().
		Str(log.FieldClientID, client.ID).
		Str(log.FieldConversationID, roomID).
		Msg("client joined room")
}

// LeaveAll drops the connection from every room. Called on disconnect; has
// no persisted side effect.
func (h *Hub) LeaveAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID, members := range h.rooms {
		if _, ok := members[client.ID]; !ok {
			continue
		}
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Broadcast delivers a payload to every current member of a room, except
// the excluded client id when set.
func (h *Hub) Broadcast(roomID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.broadcast <- &RoomMessage{
		RoomID:  roomID,
		Message: data,
		Exclude: exclude,
	}
	return nil
}

// RoomClientCount reports the current member count of a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if members, ok := h.rooms[roomID]; ok {
		return len(members)
	}
	return 0
}

// InRoom reports whether the client is currently a member of the room.
func (h *Hub) InRoom(clientID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = members[clientID]
	return ok
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
