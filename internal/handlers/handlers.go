package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/logger"
	"github.com/nikhil/rosters/internal/middleware"
	"github.com/nikhil/rosters/internal/realtime"
	services "github.com/nikhil/rosters/internal/service/auth"
	teamService "github.com/nikhil/rosters/internal/service/team"
	profileService "github.com/nikhil/rosters/internal/service/users"
	"github.com/nikhil/rosters/internal/views"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Teams         *teamService.TeamService
	Auth          *services.AuthService
	Profiles      *profileService.ProfileService
	Hub           *realtime.Hub
	Views         *views.Renderer
	MediaRoot     string
	SecureCookies bool
	Log           *logger.Logger
}

// Handlers groups every handler the routes register.
type Handlers struct {
	Teams     *TeamHandler
	Auth      *AuthHandler
	Profile   *ProfileHandler
	WebSocket *WebSocketHandler
	Media     http.Handler
	Session   func(http.Handler) http.Handler
	Log       *logger.Logger
}

// New wires the handlers.
func New(d Deps) *Handlers {
	log := d.Log.Named("http")
	resp := &Responder{Views: d.Views, Log: log}

	return &Handlers{
		Teams:     NewTeamHandler(d.Teams, resp),
		Auth:      NewAuthHandler(d.Auth, d.SecureCookies, resp),
		Profile:   NewProfileHandler(d.Profiles, resp),
		WebSocket: NewWebSocketHandler(d.Hub, d.Teams, resp),
		Media:     http.StripPrefix("/media/", http.FileServer(http.Dir(d.MediaRoot))),
		Session:   middleware.AuthMiddleware(d.Auth, d.Profiles, log),
		Log:       log,
	}
}

// Responder renders pages and maps service errors to responses.
type Responder struct {
	Views *views.Renderer
	Log   *logger.Logger
}

// errorPage is the data of the error template.
type errorPage struct {
	Status  int
	Message string
}

func (resp *Responder) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data interface{}) {
	resp.Views.Render(w, status, name, views.Page{
		Title: title,
		User:  middleware.CurrentUser(r.Context()),
		Data:  data,
	})
}

// renderInvalid shows a form again with its field messages.
func (resp *Responder) renderInvalid(w http.ResponseWriter, r *http.Request, name, title string, errs forms.Errors, data interface{}) {
	resp.Views.Render(w, http.StatusOK, name, views.Page{
		Title:   title,
		User:    middleware.CurrentUser(r.Context()),
		Warning: forms.Warning,
		Errors:  errs,
		Data:    data,
	})
}

func (resp *Responder) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// NotFound renders the 404 page.
func (resp *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	resp.render(w, r, http.StatusNotFound, "error", "Not found", errorPage{
		Status:  http.StatusNotFound,
		Message: "The page you are looking for does not exist.",
	})
}

func (resp *Responder) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	resp.Log.WithContext(r.Context()).Warn("Bad request", "path", r.URL.Path, "error", err)
	resp.render(w, r, http.StatusBadRequest, "error", "Bad request", errorPage{
		Status:  http.StatusBadRequest,
		Message: "The request could not be understood.",
	})
}

// fail answers a service error. Lookups that miss and refused actions both
// become 404; membership changes that break the one-team rule become 409.
func (resp *Responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	log := resp.Log.WithContext(r.Context())
	if user := middleware.CurrentUser(r.Context()); user != nil {
		log = log.WithUser(user.ID)
	}

	switch {
	case teamService.IsDenied(err):
		log.Warn("Action refused", "path", r.URL.Path, "error", err)
		resp.NotFound(w, r)
	case errors.Is(err, teamService.ErrNotFound), errors.Is(err, profileService.ErrUserNotFound):
		log.Debug("Not found", "path", r.URL.Path, "error", err)
		resp.NotFound(w, r)
	case errors.Is(err, teamService.ErrInvalidTransition):
		log.Info("Membership change refused", "path", r.URL.Path, "error", err)
		resp.render(w, r, http.StatusConflict, "error", "Not possible", errorPage{
			Status:  http.StatusConflict,
			Message: "This change is not possible. A player belongs to one team at a time and a captain leaves by deleting the team.",
		})
	default:
		log.Error("Request failed", "path", r.URL.Path, "error", err)
		resp.render(w, r, http.StatusInternalServerError, "error", "Server error", errorPage{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong. Please try again later.",
		})
	}
}

// pathID reads a numeric path variable.
func pathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// formID reads an optional numeric form field; zero means absent.
func formID(r *http.Request, name string) (uint, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}
