package realtime

import (
	"sync"

	"github.com/rs/zerolog"
)

// push is a marshaled event addressed to one faculty's connected devices.
type push struct {
	facultyID int64
	data      []byte
}

// Hub maintains the set of active device connections, grouped by faculty
// account, and fans server events out to every device in a group. The server
// is the sole writer of the state these events describe; devices only
// reconcile on receipt.
type Hub struct {
	// Registered clients organized by faculty ID
	clients map[int64]map[*Client]bool

	broadcast  chan push
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan push, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[int64]map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the hub, handling client registrations and broadcasts
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Publish encodes an event and delivers it to every device connected for the
// faculty. Events are advisory; delivery is best-effort and clients reach the
// same truth via polling reads.
func (h *Hub) Publish(facultyID int64, eventType EventType, payload interface{}) {
	data, err := Encode(eventType, payload)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("facultyID", facultyID).
			Str("event", string(eventType)).
			Msg("Failed to encode realtime event")
		return
	}
	h.broadcast <- push{facultyID: facultyID, data: data}
}

// registerClient registers a new client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	facultyID := client.facultyID
	if _, ok := h.clients[facultyID]; !ok {
		h.clients[facultyID] = make(map[*Client]bool)
	}
	h.clients[facultyID][client] = true

	h.logger.Info().
		Int64("facultyID", facultyID).
		Str("deviceID", client.deviceID).
		Msg("Device connected to sync channel")
}

// unregisterClient unregisters a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	facultyID := client.facultyID
	if clients, ok := h.clients[facultyID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.clients, facultyID)
			}

			h.logger.Info().
				Int64("facultyID", facultyID).
				Str("deviceID", client.deviceID).
				Msg("Device disconnected from sync channel")
		}
	}
}

// fanOut delivers one push to every client in the faculty group. Clients
// whose send buffer is full are dropped; they reconcile after reconnecting.
func (h *Hub) fanOut(msg push) {
	h.mu.RLock()
	clients, ok := h.clients[msg.facultyID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	var slow []*Client
	for client := range clients {
		select {
		case client.send <- msg.data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// fanOut runs on the hub goroutine, the sole receiver of the
	// unregister channel; sending to it here would block forever.
	for _, client := range slow {
		h.logger.Warn().
			Int64("facultyID", msg.facultyID).
			Str("deviceID", client.deviceID).
			Msg("Dropping slow sync-channel client")
		h.unregisterClient(client)
	}
}

// ClientsCount returns the number of connected devices for a faculty
func (h *Hub) ClientsCount(facultyID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[facultyID])
}
