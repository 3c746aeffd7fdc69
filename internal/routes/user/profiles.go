package userRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/rosters/internal/handlers"
	"github.com/nikhil/rosters/internal/middleware"
)

func UserProfileRoutes(router *mux.Router, h *handlers.Handlers) {
	profile := h.Profile

	// Protected routes requiring authentication
	protectedRouter := router.PathPrefix("/user").Subrouter()
	protectedRouter.Use(middleware.LoginRequired)

	// User profile routes
	protectedRouter.HandleFunc("/profile", profile.GetUserProfile).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/profile", profile.UpdateUserProfile).Methods(http.MethodPost)
}
