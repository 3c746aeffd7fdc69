package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/rosters/internal/handlers"
)

// RegisterWebSocketRoutes registers all WebSocket related routes
func RegisterWebSocketRoutes(router *mux.Router, h *handlers.Handlers) {
	router.HandleFunc("/ws/teams/{team_id:[0-9]+}", h.WebSocket.HandleWebSocket).Methods(http.MethodGet)
}
