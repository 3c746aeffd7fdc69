package authRoute

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/rosters/internal/handlers"
)

func RegisterAuthRoutes(router *mux.Router, h *handlers.Handlers) {
	auth := h.Auth

	// Public routes without login requirement
	publicRouter := router.PathPrefix("/auth").Subrouter()
	publicRouter.HandleFunc("/signup", auth.Signup).Methods(http.MethodGet, http.MethodPost)
	publicRouter.HandleFunc("/login", auth.Login).Methods(http.MethodGet, http.MethodPost)
	publicRouter.HandleFunc("/logout", auth.Logout).Methods(http.MethodPost)
}
