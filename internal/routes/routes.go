package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/rosters/internal/handlers"
	"github.com/nikhil/rosters/internal/middleware"
	authRoute "github.com/nikhil/rosters/internal/routes/Auth"
	teamroutes "github.com/nikhil/rosters/internal/routes/TeamRoutes"
	userRoutes "github.com/nikhil/rosters/internal/routes/user"
)

// List of all route registration functions
var routeModules = []func(*mux.Router, *handlers.Handlers){
	authRoute.RegisterAuthRoutes,
	userRoutes.UserProfileRoutes,
	teamroutes.TeamRoutes,
	RegisterWebSocketRoutes,
}

// Register all routes dynamically
func RegisterAllRoutes(h *handlers.Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(
		middleware.RequestID,
		h.Session,
		middleware.AccessLog(h.Log),
		middleware.Recover(h.Log),
	)

	for _, register := range routeModules {
		register(router, h)
	}

	router.PathPrefix("/media/").Handler(h.Media).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/", http.RedirectHandler("/teams/", http.StatusFound))
	router.NotFoundHandler = http.HandlerFunc(h.Teams.NotFound)

	return router
}
