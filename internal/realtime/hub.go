// Package realtime pushes roster changes to browsers watching a team page.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nikhil/rosters/internal/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Viewers never send anything meaningful
	maxMessageSize = 512

	sendBuffer = 16
)

// Event types published after a membership or team change is committed.
const (
	EventInvited  = "invited"
	EventAccepted = "accepted"
	EventRejected = "rejected"
	EventRemoved  = "removed"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
)

// RosterEvent is the message sent to every viewer of a team.
type RosterEvent struct {
	Type   string `json:"type"`
	TeamID uint   `json:"team_id"`
	UserID uint   `json:"user_id,omitempty"`
	Action string `json:"action,omitempty"`
}

// Publisher receives roster events.
type Publisher interface {
	Publish(ev RosterEvent)
}

// Hub maintains the set of active clients per team and fans events out to
// them.
type Hub struct {
	teams      map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *logger.Logger
}

// Client represents a WebSocket connection watching one team.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	TeamID uint
	UserID uint
}

// NewHub creates a new Hub instance. Call Run to start it.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		teams:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// NewClient creates a client for conn bound to this hub.
func (h *Hub) NewClient(conn *websocket.Conn, teamID, userID uint) *Client {
	return &Client{
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		TeamID: teamID,
		UserID: userID,
	}
}

// Run handles registrations until ctx is cancelled, then closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, exists := h.teams[client.TeamID]; !exists {
				h.teams[client.TeamID] = make(map[*Client]bool)
			}
			h.teams[client.TeamID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, clients := range h.teams {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, exists := h.teams[client.TeamID]
	if !exists || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.teams, client.TeamID)
	}
}

// Publish sends ev to everyone watching its team.
func (h *Hub) Publish(ev RosterEvent) {
	message, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("Failed to encode roster event", "error", err)
		return
	}
	h.BroadcastToTeam(ev.TeamID, message)
}

// BroadcastToTeam sends a message to all clients in a specific team. Clients
// whose buffer is full are dropped.
func (h *Hub) BroadcastToTeam(teamID uint, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.teams[teamID] {
		select {
		case client.Send <- message:
		default:
			h.remove(client)
		}
	}
}

// ClientCount returns the number of viewers of a team.
func (h *Hub) ClientCount(teamID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.teams[teamID])
}

// ReadPump drains the connection so control frames are processed, and
// unregisters the client when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug("Websocket closed unexpectedly", "team_id", c.TeamID, "error", err)
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ Publisher = (*Hub)(nil)
