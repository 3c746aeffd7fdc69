package teamroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/rosters/internal/handlers"
	"github.com/nikhil/rosters/internal/middleware"
)

func TeamRoutes(router *mux.Router, h *handlers.Handlers) {
	teams := h.Teams

	router.Handle("/teams", http.RedirectHandler("/teams/", http.StatusMovedPermanently))

	publicRouter := router.PathPrefix("/teams").Subrouter()
	publicRouter.HandleFunc("/", teams.ListTeams).Methods(http.MethodGet)
	publicRouter.HandleFunc("/{team_id:[0-9]+}/", teams.ViewTeam).Methods(http.MethodGet)
	publicRouter.HandleFunc("/{team_id:[0-9]+}/invite", teams.InviteUser).Methods(http.MethodPost)
	publicRouter.HandleFunc("/{team_id:[0-9]+}/accept", teams.AcceptInvite).Methods(http.MethodPost)
	publicRouter.HandleFunc("/{team_id:[0-9]+}/reject", teams.RejectInvite).Methods(http.MethodPost)
	publicRouter.HandleFunc("/user/{user_id:[0-9]+}/", teams.ViewProfileTeam).Methods(http.MethodGet)
	publicRouter.HandleFunc("/user/{user_id:[0-9]+}/edit", teams.EditTeam).Methods(http.MethodGet, http.MethodPost)
	publicRouter.HandleFunc("/user/{user_id:[0-9]+}/remove", teams.RemoveMember).Methods(http.MethodPost)
	publicRouter.HandleFunc("/user/{user_id:[0-9]+}/delete", teams.DeleteTeam).Methods(http.MethodPost)

	publicRouter.Handle("/create", middleware.LoginRequired(http.HandlerFunc(teams.CreateTeam))).Methods(http.MethodGet, http.MethodPost)
}
