// Package telemetry is the per-face subscriber registry and its
// websocket fan-out: a thin observation channel for dev tooling, not
// the player gateway. A subscriber only receives change-sets for faces
// it currently observes, which bounds per-tick broadcast work to the
// sum of visible faces, not subscribers x 30.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sphericsim/worldcore/internal/tick"
)

// Client is one connected subscriber.
type Client struct {
	ID    uuid.UUID
	Conn  *websocket.Conn
	Send  chan []byte
	faces map[int]bool
	hub   *Hub
}

// Hub manages subscribers and their face subscriptions.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	faceRooms  map[int]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []tick.ChangeSet
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		faceRooms:  make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []tick.ChangeSet, 64),
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case sets := <-h.broadcast:
			h.fanOut(sets)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	for face := range client.faces {
		if h.faceRooms[face] == nil {
			h.faceRooms[face] = make(map[*Client]bool)
		}
		h.faceRooms[face][client] = true
	}
	slog.Info("telemetry subscriber connected", "client", client.ID, "faces", len(client.faces))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	for face := range client.faces {
		if room, ok := h.faceRooms[face]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.faceRooms, face)
			}
		}
	}
	slog.Info("telemetry subscriber disconnected", "client", client.ID)
}

// SetFaces replaces a client's face subscriptions.
func (h *Hub) SetFaces(client *Client, faces []int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for face := range client.faces {
		if room, ok := h.faceRooms[face]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.faceRooms, face)
			}
		}
	}
	client.faces = make(map[int]bool, len(faces))
	for _, face := range faces {
		client.faces[face] = true
		if h.faceRooms[face] == nil {
			h.faceRooms[face] = make(map[*Client]bool)
		}
		h.faceRooms[face][client] = true
	}
}

// Broadcast hands a tick's change-sets to the hub. Never blocks the
// tick thread: when the hub is backed up the oldest batch is dropped
// and is not resent.
func (h *Hub) Broadcast(sets []tick.ChangeSet) {
	select {
	case h.broadcast <- sets:
	default:
		select {
		case <-h.broadcast:
		default:
		}
		select {
		case h.broadcast <- sets:
		default:
		}
	}
}

// fanOut routes each face's change-set to that face's room only.
func (h *Hub) fanOut(sets []tick.ChangeSet) {
	h.mu.RLock()
	type delivery struct {
		client *Client
		data   []byte
	}
	var deliveries []delivery
	for i := range sets {
		room, ok := h.faceRooms[sets[i].Face]
		if !ok || len(room) == 0 {
			continue
		}
		data, err := json.Marshal(&sets[i])
		if err != nil {
			slog.Error("failed to marshal change-set", "face", sets[i].Face, "error", err)
			continue
		}
		for client := range room {
			deliveries = append(deliveries, delivery{client: client, data: data})
		}
	}
	h.mu.RUnlock()

	for _, d := range deliveries {
		select {
		case d.client.Send <- d.data:
		default:
			// Per-subscriber channel full: drop this change-set. Slow
			// subscribers lose intermediate sets; the hub does not resend
			// them and sends no snapshot on connect or reconnect.
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
