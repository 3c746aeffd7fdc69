package views

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/logger"
	teammodels "github.com/nikhil/rosters/internal/models/teams"
	usermodels "github.com/nikhil/rosters/internal/models/users"
	"github.com/nikhil/rosters/internal/pagination"
	teamService "github.com/nikhil/rosters/internal/service/team"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(logger.NewNopLogger())
	require.NoError(t, err)
	return r
}

func TestEveryPageIsParsed(t *testing.T) {
	r := newRenderer(t)

	for _, name := range []string{
		"create_success_view", "error", "invite_view", "login", "profile", "signup",
		"team_delete_view", "team_edit", "team_list", "team_view",
	} {
		assert.True(t, r.Has(name), name)
	}
	assert.False(t, r.Has("layout"))
}

func TestRenderTeamList(t *testing.T) {
	r := newRenderer(t)
	captain := &usermodels.User{ID: 1, Nickname: "ann"}

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "team_list", Page{
		Title: "Teams",
		Data: &teamService.TeamPage{
			Teams: []teammodels.Team{
				{ID: 7, Title: "<Rockets>", Logo: "logos/r.png", CaptainUser: captain},
			},
			Page:  pagination.Resolve("2", 12, teamService.PageSize),
			Query: "rock",
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "&lt;Rockets&gt;")
	assert.NotContains(t, body, "<Rockets>")
	assert.Contains(t, body, `src="/media/logos/r.png"`)
	assert.Contains(t, body, "captain ann")
	assert.Contains(t, body, "<strong>2</strong>")
	assert.Contains(t, body, "page=3")
	assert.Contains(t, body, "q=rock")
}

func TestRenderEmptyTeamList(t *testing.T) {
	r := newRenderer(t)

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "team_list", Page{
		Data: &teamService.TeamPage{Page: pagination.Resolve("", 0, teamService.PageSize)},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No teams found.")
	assert.NotContains(t, rec.Body.String(), "pagination")
}

func TestRenderTeamView(t *testing.T) {
	r := newRenderer(t)
	ann := &usermodels.User{ID: 1, Nickname: "ann", IsInTeam: true, IsCaptain: true}
	team := &teammodels.Team{ID: 3, Title: "Rockets", CaptainUserID: 1, CaptainUser: ann}
	player := &teammodels.TeamPlayer{ID: 1, UserID: 1, TeamID: 3, Action: teammodels.ActionInTeam, User: ann}

	tests := []struct {
		name    string
		viewer  *usermodels.User
		view    *teamService.TeamView
		want    string
		notWant string
	}{
		{
			name: "anonymous",
			view: &teamService.TeamView{Team: team, Players: []teammodels.TeamPlayer{*player}},
			want: "to ask to join",
		},
		{
			name:   "free agent",
			viewer: &usermodels.User{ID: 2, Nickname: "bob"},
			view:   &teamService.TeamView{Team: team},
			want:   "Ask to join",
		},
		{
			name:   "pending",
			viewer: &usermodels.User{ID: 2, Nickname: "bob", IsInTeam: true},
			view:   &teamService.TeamView{Team: team, Pending: true},
			want:   "Withdraw request",
		},
		{
			name:    "captain",
			viewer:  ann,
			view:    &teamService.TeamView{Team: team, Player: player, Current: true, Players: []teammodels.TeamPlayer{*player}},
			want:    "Manage team",
			notWant: "Ask to join",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.Render(rec, http.StatusOK, "team_view", Page{Title: team.Title, User: tt.viewer, Data: tt.view})

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			if tt.notWant != "" {
				assert.NotContains(t, rec.Body.String(), tt.notWant)
			}
		})
	}
}

func TestRenderFormErrors(t *testing.T) {
	r := newRenderer(t)

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "signup", Page{
		Title:   "Sign up",
		Warning: forms.Warning,
		Errors: forms.Errors{
			"__all__":  "Something is off.",
			"nickname": "Too short.",
		},
		Data: &forms.SignupForm{Email: "ann@example.com", Nickname: "an"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, forms.Warning)
	assert.Contains(t, body, "Something is off.")
	assert.Contains(t, body, "Too short.")
	assert.Contains(t, body, `value="ann@example.com"`)
}

func TestRenderStatus(t *testing.T) {
	r := newRenderer(t)

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusNotFound, "error", Page{
		Data: struct {
			Status  int
			Message string
		}{http.StatusNotFound, "Gone."},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gone.")
}

func TestRenderFailuresWriteNoPage(t *testing.T) {
	r := newRenderer(t)

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "missing", Page{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// team_view needs a team
	rec = httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "team_view", Page{Data: &teamService.TeamView{}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<html")
}
