package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nikhil/rosters/internal/middleware"
	"github.com/nikhil/rosters/internal/realtime"
)

// The default origin check only accepts pages served from this host.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// TeamChecker tells whether a team exists.
type TeamChecker interface {
	Exists(ctx context.Context, teamID uint) (bool, error)
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	*Responder
	hub   *realtime.Hub
	teams TeamChecker
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *realtime.Hub, teams TeamChecker, resp *Responder) *WebSocketHandler {
	return &WebSocketHandler{Responder: resp, hub: hub, teams: teams}
}

// HandleWebSocket streams roster events of one team. Rosters are public so
// anonymous viewers are accepted.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "team_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}

	exists, err := h.teams.Exists(r.Context(), teamID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !exists {
		h.NotFound(w, r)
		return
	}

	var userID uint
	if user := middleware.CurrentUser(r.Context()); user != nil {
		userID = user.ID
	}

	// Upgrade the HTTP connection to a WebSocket connection
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.WithContext(r.Context()).Warn("Error upgrading connection", "error", err)
		return
	}

	client := h.hub.NewClient(conn, teamID, userID)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	// Start goroutines for reading and writing messages
	go client.WritePump()
	go client.ReadPump()
}
