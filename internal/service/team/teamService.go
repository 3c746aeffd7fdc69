package teamService

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nikhil/rosters/internal/assets"
	"github.com/nikhil/rosters/internal/cache"
	"github.com/nikhil/rosters/internal/database"
	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/logger"
	teammodels "github.com/nikhil/rosters/internal/models/teams"
	usermodels "github.com/nikhil/rosters/internal/models/users"
	"github.com/nikhil/rosters/internal/pagination"
	"github.com/nikhil/rosters/internal/realtime"
)

// PageSize is the number of teams shown per listing page.
const PageSize = 5

const defaultRosterTTL = 5 * time.Minute

// TeamService handles team-related operations
type TeamService struct {
	DB        *gorm.DB
	Cache     cache.CacheInterface
	Assets    assets.Store
	Events    realtime.Publisher
	Forms     *forms.Validator
	Log       *logger.Logger
	RosterTTL time.Duration
}

// Options carries the optional collaborators of a TeamService.
type Options struct {
	Cache     cache.CacheInterface
	Events    realtime.Publisher
	RosterTTL time.Duration
}

// TeamPage is one page of the team listing.
type TeamPage struct {
	Teams []teammodels.Team
	Page  pagination.Page
	Query string
}

// TeamView is a team with its current roster.
type TeamView struct {
	Team    *teammodels.Team
	Players []teammodels.TeamPlayer

	// Player is the membership the view was reached through, if any.
	Player *teammodels.TeamPlayer

	// Current is set when the viewer is looking at their own membership.
	Current bool

	// Pending is set when the viewer has an open invite to this team.
	Pending bool
}

// TeamEdit is what a captain sees on the edit page.
type TeamEdit struct {
	Team    *teammodels.Team
	Player  *teammodels.TeamPlayer
	InTeam  []teammodels.TeamPlayer
	Invited []teammodels.TeamPlayer
}

type nopPublisher struct{}

func (nopPublisher) Publish(realtime.RosterEvent) {}

// NewTeamService initializes a new team service
func NewTeamService(db *gorm.DB, store assets.Store, v *forms.Validator, log *logger.Logger, opts Options) *TeamService {
	ts := &TeamService{
		DB:        db,
		Cache:     opts.Cache,
		Assets:    store,
		Events:    opts.Events,
		Forms:     v,
		Log:       log.Named("team-service"),
		RosterTTL: opts.RosterTTL,
	}
	if ts.Cache == nil {
		ts.Cache = cache.NopCache{}
	}
	if ts.Events == nil {
		ts.Events = nopPublisher{}
	}
	if ts.RosterTTL <= 0 {
		ts.RosterTTL = defaultRosterTTL
	}
	return ts
}

// ListTeams returns one page of teams whose title or any member nickname
// contains query, case-insensitively. An empty query lists every team.
func (ts *TeamService) ListTeams(ctx context.Context, query, rawPage string) (*TeamPage, error) {
	query = strings.TrimSpace(query)

	base := ts.DB.WithContext(ctx).Model(&teammodels.Team{})
	if query != "" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		base = base.Where(
			"LOWER(teams.title) LIKE ? ESCAPE '!' OR EXISTS ("+
				"SELECT 1 FROM team_players JOIN users ON users.id = team_players.user_id "+
				"WHERE team_players.team_id = teams.id AND LOWER(users.nickname) LIKE ? ESCAPE '!')",
			pattern, pattern,
		)
	}
	base = base.Session(&gorm.Session{})

	var count int64
	if err := base.Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count teams: %w", err)
	}

	page := pagination.Resolve(rawPage, int(count), PageSize)

	var teams []teammodels.Team
	err := base.Preload("CaptainUser").
		Order("teams.id").
		Offset(page.Offset()).
		Limit(PageSize).
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	return &TeamPage{Teams: teams, Page: page, Query: query}, nil
}

// ViewTeam loads a team for display. When the viewer is already in the team
// it returns redirect=true and no view: members see the team through their
// own profile page instead.
func (ts *TeamService) ViewTeam(ctx context.Context, teamID uint, viewer *usermodels.User) (view *TeamView, redirect bool, err error) {
	db := ts.DB.WithContext(ctx)

	var team teammodels.Team
	err = db.Preload("CaptainUser").First(&team, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, notFound("team")
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load team: %w", err)
	}

	view = &TeamView{Team: &team}
	if viewer != nil {
		var mine teammodels.TeamPlayer
		err = db.Where("team_id = ? AND user_id = ?", team.ID, viewer.ID).Limit(1).Find(&mine).Error
		if err != nil {
			return nil, false, fmt.Errorf("failed to load membership: %w", err)
		}
		if mine.IsInTeam() {
			return nil, true, nil
		}
		view.Pending = mine.IsInvited()
	}

	if view.Players, err = ts.roster(ctx, team.ID); err != nil {
		return nil, false, err
	}
	return view, false, nil
}

// ViewProfileTeam shows the team of userID. Only signed-in users may look.
func (ts *TeamService) ViewProfileTeam(ctx context.Context, userID uint, viewer *usermodels.User) (*TeamView, error) {
	if viewer == nil {
		return nil, denied("team profile")
	}

	player, err := playerForUser(ts.DB.WithContext(ctx).Preload("Team.CaptainUser"), userID)
	if err != nil {
		return nil, err
	}

	players, err := ts.roster(ctx, player.TeamID)
	if err != nil {
		return nil, err
	}

	return &TeamView{
		Team:    player.Team,
		Player:  player,
		Players: players,
		Current: viewer.ID == userID,
	}, nil
}

// InviteUser records that actor asked to join teamID. Asking twice is a
// no-op; members of another team cannot ask.
func (ts *TeamService) InviteUser(ctx context.Context, teamID uint, actor *usermodels.User) (*teammodels.TeamPlayer, error) {
	if actor == nil {
		return nil, denied("team")
	}
	log := ts.Log.WithContext(ctx).WithUser(actor.ID)

	var player teammodels.TeamPlayer
	var team *teammodels.Team
	created := false
	err := ts.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if team, err = lockTeam(tx, teamID); err != nil {
			return err
		}

		err = tx.Where("team_id = ? AND user_id = ?", team.ID, actor.ID).Limit(1).Find(&player).Error
		if err != nil {
			return fmt.Errorf("failed to load membership: %w", err)
		}
		if player.ID != 0 {
			return nil
		}

		player = teammodels.TeamPlayer{UserID: actor.ID, TeamID: team.ID}
		created = true
		return applyTransition(tx, &player, transitionInvite)
	})

	// A concurrent request inserted the same invite first
	if database.IsDuplicateKey(err) {
		player = teammodels.TeamPlayer{}
		err = ts.DB.WithContext(ctx).Preload("Team").
			Where("team_id = ? AND user_id = ?", teamID, actor.ID).
			Take(&player).Error
		created = false
	} else if err == nil {
		player.Team = team
	}
	if err != nil {
		return nil, err
	}

	if created {
		log.Audit("Invite requested", "team_id", teamID)
		ts.publish(realtime.EventInvited, player)
	}
	return &player, nil
}

// AcceptInvite turns a pending invite into membership. Only the captain of
// teamID may accept. targetUserID picks whose invite; zero takes the oldest.
// An invitee who has joined another team meanwhile cannot be accepted.
func (ts *TeamService) AcceptInvite(ctx context.Context, teamID uint, actor *usermodels.User, targetUserID uint) (*teammodels.TeamPlayer, error) {
	if actor == nil {
		return nil, denied("team")
	}
	log := ts.Log.WithContext(ctx).WithUser(actor.ID)

	var player *teammodels.TeamPlayer
	err := ts.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team, err := lockTeam(tx, teamID)
		if err != nil {
			return err
		}

		ok, err := isCaptainOf(tx, actor.ID, team)
		if err != nil {
			return err
		}
		if !ok {
			return denied("team")
		}

		if player, err = pendingInvite(tx, team.ID, targetUserID); err != nil {
			return err
		}
		return applyTransition(tx, player, transitionAccept)
	})
	if err != nil {
		if IsDenied(err) {
			log.Warn("Accept refused", "team_id", teamID)
		}
		return nil, err
	}

	ts.invalidateRoster(ctx, teamID)
	log.Audit("Invite accepted", "team_id", teamID, "member_id", player.UserID)
	ts.publish(realtime.EventAccepted, *player)
	return player, nil
}

// RejectInvite drops a pending invite. The captain may reject anyone's; any
// other user may only withdraw their own.
func (ts *TeamService) RejectInvite(ctx context.Context, teamID uint, actor *usermodels.User, targetUserID uint) (*teammodels.TeamPlayer, error) {
	if actor == nil {
		return nil, denied("team")
	}
	log := ts.Log.WithContext(ctx).WithUser(actor.ID)

	var player *teammodels.TeamPlayer
	err := ts.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team, err := lockTeam(tx, teamID)
		if err != nil {
			return err
		}

		captain, err := isCaptainOf(tx, actor.ID, team)
		if err != nil {
			return err
		}
		if !captain {
			if targetUserID != 0 && targetUserID != actor.ID {
				return denied("invite")
			}
			targetUserID = actor.ID
		}

		if player, err = pendingInvite(tx, team.ID, targetUserID); err != nil {
			return err
		}
		return applyTransition(tx, player, transitionReject)
	})
	if err != nil {
		return nil, err
	}

	log.Audit("Invite rejected", "team_id", teamID, "member_id", player.UserID)
	ts.publish(realtime.EventRejected, *player)
	return player, nil
}

// RemoveMember ends the membership of userID. The member may leave on their
// own; otherwise only their team's captain may remove them. The captain
// never leaves: a team goes away only through DeleteTeam.
func (ts *TeamService) RemoveMember(ctx context.Context, userID uint, actor *usermodels.User) (*teammodels.TeamPlayer, error) {
	if actor == nil {
		return nil, denied("member")
	}
	log := ts.Log.WithContext(ctx).WithUser(actor.ID)

	var player teammodels.TeamPlayer
	err := ts.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := forUpdate(tx).
			Where("user_id = ? AND action = ?", userID, teammodels.ActionInTeam).
			Order("id").
			Take(&player).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("member")
		}
		if err != nil {
			return fmt.Errorf("failed to load member: %w", err)
		}

		team, err := lockTeam(tx, player.TeamID)
		if err != nil {
			return err
		}

		if actor.ID != userID {
			ok, err := isCaptainOf(tx, actor.ID, team)
			if err != nil {
				return err
			}
			if !ok {
				return denied("member")
			}
		}

		// The team would be left without anyone able to manage it; the
		// captain deletes the team instead.
		if team.CaptainUserID == player.UserID {
			return fmt.Errorf("%w: the captain of team %d cannot leave it", ErrInvalidTransition, team.ID)
		}

		return applyTransition(tx, &player, transitionRemove)
	})
	if err != nil {
		return nil, err
	}

	ts.invalidateRoster(ctx, player.TeamID)
	log.Audit("Member removed", "team_id", player.TeamID, "member_id", userID)
	ts.publish(realtime.EventRemoved, player)
	return &player, nil
}

// CreateTeam validates form, stores the logo and founds a team captained by
// actor.
func (ts *TeamService) CreateTeam(ctx context.Context, actor *usermodels.User, form *forms.TeamForm) (*teammodels.Team, error) {
	if actor == nil {
		return nil, denied("team")
	}
	if err := ts.Forms.Team(form, true); err != nil {
		return nil, err
	}
	log := ts.Log.WithContext(ctx).WithUser(actor.ID)

	ref, err := ts.Assets.Save(ctx, form.Logo.Filename, bytes.NewReader(form.Logo.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to store logo: %w", err)
	}

	team := teammodels.Team{
		Title:         form.Title,
		Logo:          ref,
		CaptainUserID: actor.ID,
	}
	err = ts.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}

		// Add creator as a member straight away
		player := teammodels.TeamPlayer{UserID: actor.ID, TeamID: team.ID}
		return applyTransition(tx, &player, transitionFound)
	})
	if err != nil {
		ts.dropLogo(ctx, ref)
		return nil, err
	}

	// Audit log
	log.Audit("Team created", "team_id", team.ID, "title", team.Title)
	return &team, nil
}

// EditTeam loads the edit page of the team targetUserID belongs to. The
// actor must captain that team.
func (ts *TeamService) EditTeam(ctx context.Context, actor *usermodels.User, targetUserID uint) (*TeamEdit, error) {
	return ts.loadEdit(ts.DB.WithContext(ctx), actor, targetUserID)
}

// UpdateTeam applies form to the team targetUserID belongs to. On a
// validation error the edit page is returned alongside the error so it can
// be shown again.
func (ts *TeamService) UpdateTeam(ctx context.Context, actor *usermodels.User, targetUserID uint, form *forms.TeamForm) (*TeamEdit, error) {
	edit, err := ts.loadEdit(ts.DB.WithContext(ctx), actor, targetUserID)
	if err != nil {
		return nil, err
	}
	if err := ts.Forms.Team(form, false); err != nil {
		return edit, err
	}
	log := ts.Log.WithContext(ctx).WithUser(actor.ID)

	var newLogo string
	if form.Logo != nil {
		if newLogo, err = ts.Assets.Save(ctx, form.Logo.Filename, bytes.NewReader(form.Logo.Data)); err != nil {
			return nil, fmt.Errorf("failed to store logo: %w", err)
		}
	}

	var oldLogo string
	var team *teammodels.Team
	err = ts.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if team, err = lockTeam(tx, edit.Team.ID); err != nil {
			return err
		}

		// The captain may have changed since the page was loaded
		ok, err := isCaptainOf(tx, actor.ID, team)
		if err != nil {
			return err
		}
		if !ok {
			return denied("team")
		}

		updates := map[string]interface{}{"title": form.Title}
		if newLogo != "" {
			oldLogo = team.Logo
			updates["logo"] = newLogo
		}
		if err := tx.Model(team).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update team: %w", err)
		}
		return nil
	})
	if err != nil {
		ts.dropLogo(ctx, newLogo)
		return nil, err
	}
	ts.dropLogo(ctx, oldLogo)

	edit.Team.Title = form.Title
	if newLogo != "" {
		edit.Team.Logo = newLogo
	}

	log.Audit("Team updated", "team_id", team.ID)
	ts.publish(realtime.EventUpdated, teammodels.TeamPlayer{TeamID: team.ID})
	return edit, nil
}

// DeleteTeam disbands the team targetUserID belongs to. Every membership,
// pending invites included, is removed and the flags of everyone affected
// are recomputed.
func (ts *TeamService) DeleteTeam(ctx context.Context, actor *usermodels.User, targetUserID uint) (*teammodels.Team, error) {
	if actor == nil || !actor.IsCaptain {
		return nil, denied("team")
	}
	log := ts.Log.WithContext(ctx).WithUser(actor.ID)

	var team *teammodels.Team
	err := ts.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		player, err := playerForUser(tx, targetUserID)
		if err != nil {
			return err
		}

		if team, err = lockTeam(tx, player.TeamID); err != nil {
			return err
		}

		ok, err := isCaptainOf(tx, actor.ID, team)
		if err != nil {
			return err
		}
		if !ok {
			return denied("team")
		}

		var players []teammodels.TeamPlayer
		if err := forUpdate(tx).Where("team_id = ?", team.ID).Order("id").Find(&players).Error; err != nil {
			return fmt.Errorf("failed to load players: %w", err)
		}
		for i := range players {
			t := transitionRemove
			if players[i].IsInvited() {
				t = transitionReject
			}
			if err := applyTransition(tx, &players[i], t); err != nil {
				return err
			}
		}

		if err := tx.Delete(&teammodels.Team{}, team.ID).Error; err != nil {
			return fmt.Errorf("failed to delete team: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ts.dropLogo(ctx, team.Logo)
	ts.invalidateRoster(ctx, team.ID)
	log.Audit("Team deleted", "team_id", team.ID, "title", team.Title)
	ts.publish(realtime.EventDeleted, teammodels.TeamPlayer{TeamID: team.ID})
	return team, nil
}

// Exists reports whether teamID names a team.
func (ts *TeamService) Exists(ctx context.Context, teamID uint) (bool, error) {
	var n int64
	if err := ts.DB.WithContext(ctx).Model(&teammodels.Team{}).Where("id = ?", teamID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check team: %w", err)
	}
	return n > 0, nil
}

func (ts *TeamService) loadEdit(db *gorm.DB, actor *usermodels.User, targetUserID uint) (*TeamEdit, error) {
	if actor == nil || !actor.IsCaptain {
		return nil, denied("team")
	}

	player, err := playerForUser(db, targetUserID)
	if err != nil {
		return nil, err
	}

	ok, err := isCaptainOf(db, actor.ID, player.Team)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, denied("team")
	}

	edit := &TeamEdit{Team: player.Team, Player: player}
	if edit.InTeam, err = ts.players(db, player.TeamID, teammodels.ActionInTeam); err != nil {
		return nil, err
	}
	if edit.Invited, err = ts.players(db, player.TeamID, teammodels.ActionInvited); err != nil {
		return nil, err
	}
	return edit, nil
}

func (ts *TeamService) players(db *gorm.DB, teamID uint, action teammodels.PlayerAction) ([]teammodels.TeamPlayer, error) {
	var players []teammodels.TeamPlayer
	err := db.Preload("User").
		Where("team_id = ? AND action = ?", teamID, action).
		Order("id").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s players: %w", strings.ToLower(string(action)), err)
	}
	return players, nil
}

// roster returns the accepted members of a team, cached between changes.
func (ts *TeamService) roster(ctx context.Context, teamID uint) ([]teammodels.TeamPlayer, error) {
	cacheKey := cache.RosterKey(teamID)

	// Try to get from cache first
	cached, err := ts.Cache.Get(ctx, cacheKey)
	if err == nil {
		var players []teammodels.TeamPlayer
		if err := json.Unmarshal([]byte(cached), &players); err == nil {
			return players, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		ts.Log.WithContext(ctx).Warn("Failed to read roster cache", "error", err, "key", cacheKey)
	}

	var players []teammodels.TeamPlayer
	err = ts.DB.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = team_players.user_id").
		Where("team_players.team_id = ? AND team_players.action = ? AND users.is_inteam = ?", teamID, teammodels.ActionInTeam, true).
		Order("team_players.id").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	if data, err := json.Marshal(players); err == nil {
		if err := ts.Cache.Set(ctx, cacheKey, string(data), ts.RosterTTL); err != nil {
			ts.Log.WithContext(ctx).Warn("Failed to cache roster", "error", err, "key", cacheKey)
		}
	}
	return players, nil
}

func (ts *TeamService) invalidateRoster(ctx context.Context, teamID uint) {
	if err := ts.Cache.Delete(ctx, cache.RosterKey(teamID)); err != nil {
		ts.Log.WithContext(ctx).Error("Failed to invalidate cache", "error", err, "team_id", teamID)
	}
}

func (ts *TeamService) publish(eventType string, player teammodels.TeamPlayer) {
	ts.Events.Publish(realtime.RosterEvent{
		Type:   eventType,
		TeamID: player.TeamID,
		UserID: player.UserID,
		Action: string(player.Action),
	})
}

func (ts *TeamService) dropLogo(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := ts.Assets.Delete(ctx, ref); err != nil {
		ts.Log.WithContext(ctx).Warn("Failed to delete logo", "error", err, "logo", ref)
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
