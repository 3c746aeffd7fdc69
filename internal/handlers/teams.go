package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/middleware"
	teammodels "github.com/nikhil/rosters/internal/models/teams"
	teamService "github.com/nikhil/rosters/internal/service/team"
)

// TeamHandler serves the team pages.
type TeamHandler struct {
	*Responder
	Service *teamService.TeamService
}

func NewTeamHandler(service *teamService.TeamService, resp *Responder) *TeamHandler {
	return &TeamHandler{Responder: resp, Service: service}
}

// editPage feeds team_edit.html for both creating and editing.
type editPage struct {
	Create bool
	Action string
	Title  string
	Edit   *teamService.TeamEdit
}

type teamPage struct {
	Team *teammodels.Team
}

func profileURL(userID uint) string {
	return fmt.Sprintf("/teams/user/%d/", userID)
}

func editURL(userID uint) string {
	return fmt.Sprintf("/teams/user/%d/edit", userID)
}

// ListTeams handles GET /teams/
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Service.ListTeams(r.Context(), q.Get("q"), q.Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "team_list", "Teams", page)
}

// ViewTeam handles GET /teams/{team_id}/
func (h *TeamHandler) ViewTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "team_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}

	viewer := middleware.CurrentUser(r.Context())
	view, redirect, err := h.Service.ViewTeam(r.Context(), teamID, viewer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if redirect {
		http.Redirect(w, r, profileURL(viewer.ID), http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "team_view", view.Team.Title, view)
}

// ViewProfileTeam handles GET /teams/user/{user_id}/
func (h *TeamHandler) ViewProfileTeam(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}

	view, err := h.Service.ViewProfileTeam(r.Context(), userID, middleware.CurrentUser(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "team_view", view.Team.Title, view)
}

// EditTeam handles GET and POST /teams/user/{user_id}/edit
func (h *TeamHandler) EditTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := pathID(r, "user_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}
	actor := middleware.CurrentUser(ctx)

	if r.Method != http.MethodPost {
		edit, err := h.Service.EditTeam(ctx, actor, userID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, "team_edit", edit.Team.Title, editPage{
			Action: r.URL.Path,
			Title:  edit.Team.Title,
			Edit:   edit,
		})
		return
	}

	form, err := forms.TeamFormFromRequest(r, h.Service.Forms.MaxLogoBytes())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	edit, err := h.Service.UpdateTeam(ctx, actor, userID, form)
	var errs forms.Errors
	if errors.As(err, &errs) {
		h.renderInvalid(w, r, "team_edit", edit.Team.Title, errs, editPage{
			Action: r.URL.Path,
			Title:  form.Title,
			Edit:   edit,
		})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, profileURL(userID))
}

// InviteUser handles POST /teams/{team_id}/invite
func (h *TeamHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "team_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}

	actor := middleware.CurrentUser(r.Context())
	if actor == nil {
		next := fmt.Sprintf("/teams/%d/", teamID)
		h.redirect(w, r, middleware.LoginURL+"?next="+url.QueryEscape(next))
		return
	}

	player, err := h.Service.InviteUser(r.Context(), teamID, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "invite_view", "Request sent", teamPage{Team: player.Team})
}

// AcceptInvite handles POST /teams/{team_id}/accept
func (h *TeamHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "team_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}
	target, err := formID(r, "user_id")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	actor := middleware.CurrentUser(r.Context())
	if _, err := h.Service.AcceptInvite(r.Context(), teamID, actor, target); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, editURL(actor.ID))
}

// RejectInvite handles POST /teams/{team_id}/reject
func (h *TeamHandler) RejectInvite(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "team_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}
	target, err := formID(r, "user_id")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	actor := middleware.CurrentUser(r.Context())
	if _, err := h.Service.RejectInvite(r.Context(), teamID, actor, target); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, afterRosterChange(actor.ID, actor.IsCaptain))
}

// RemoveMember handles POST /teams/user/{user_id}/remove
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}

	actor := middleware.CurrentUser(r.Context())
	if _, err := h.Service.RemoveMember(r.Context(), userID, actor); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, afterRosterChange(actor.ID, actor.IsCaptain))
}

// afterRosterChange sends captains back to their edit page and everyone
// else to the listing. wasCaptain is the flag as loaded before the change.
func afterRosterChange(actorID uint, wasCaptain bool) string {
	if wasCaptain {
		return editURL(actorID)
	}
	return "/teams/"
}

// CreateTeam handles GET and POST /teams/create
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := editPage{Create: true, Action: r.URL.Path}

	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, "team_edit", "Create a team", page)
		return
	}

	form, err := forms.TeamFormFromRequest(r, h.Service.Forms.MaxLogoBytes())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	team, err := h.Service.CreateTeam(ctx, middleware.CurrentUser(ctx), form)
	var errs forms.Errors
	if errors.As(err, &errs) {
		page.Title = form.Title
		h.renderInvalid(w, r, "team_edit", "Create a team", errs, page)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "create_success_view", team.Title, teamPage{Team: team})
}

// DeleteTeam handles POST /teams/user/{user_id}/delete
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		h.NotFound(w, r)
		return
	}

	team, err := h.Service.DeleteTeam(r.Context(), middleware.CurrentUser(r.Context()), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "team_delete_view", "Team deleted", teamPage{Team: team})
}
