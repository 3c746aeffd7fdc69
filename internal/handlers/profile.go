package handlers

import (
	"errors"
	"net/http"

	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/middleware"
	models "github.com/nikhil/rosters/internal/models/users"
	profileService "github.com/nikhil/rosters/internal/service/users"
)

// ProfileHandler lets a user look at and rename their account.
type ProfileHandler struct {
	*Responder
	Service *profileService.ProfileService
}

func NewProfileHandler(service *profileService.ProfileService, resp *Responder) *ProfileHandler {
	return &ProfileHandler{Responder: resp, Service: service}
}

type profilePage struct {
	User     *models.User
	Nickname string
}

// GetUserProfile handles GET /user/profile
func (h *ProfileHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	h.render(w, r, http.StatusOK, "profile", "Profile", profilePage{User: user, Nickname: user.Nickname})
}

// UpdateUserProfile handles POST /user/profile
func (h *ProfileHandler) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	form := &forms.ProfileForm{Nickname: r.PostFormValue("nickname")}

	_, err := h.Service.UpdateNickname(r.Context(), user, form)
	var errs forms.Errors
	if errors.As(err, &errs) {
		h.renderInvalid(w, r, "profile", "Profile", errs, profilePage{User: user, Nickname: form.Nickname})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, "/user/profile")
}
