package teamService

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	teammodels "github.com/nikhil/rosters/internal/models/teams"
	usermodels "github.com/nikhil/rosters/internal/models/users"
)

type transition string

const (
	transitionInvite transition = "invite"
	transitionFound  transition = "found"
	transitionAccept transition = "accept"
	transitionReject transition = "reject"
	transitionRemove transition = "remove"
)

// applyTransition is the only code that writes membership records. It moves
// player along
//
//	[none] --invite--> INVITED --accept--> INTEAM --remove--> [none]
//	INVITED --reject--> [none]
//	[none] --found--> INTEAM   (team creation)
//
// A user belongs to at most one team, so invite, found and accept are refused
// while the user holds an INTEAM record. It then rebuilds the user's cached flags from the records, so the flags
// always agree with the table.
func applyTransition(tx *gorm.DB, player *teammodels.TeamPlayer, t transition) error {
	switch t {
	case transitionInvite, transitionFound:
		if err := requireNoTeam(tx, player.UserID); err != nil {
			return err
		}
		player.Action = teammodels.ActionInvited
		if t == transitionFound {
			player.Action = teammodels.ActionInTeam
		}
		if err := tx.Create(player).Error; err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}

	case transitionAccept:
		if !player.IsInvited() {
			return fmt.Errorf("%w: cannot accept %s", ErrInvalidTransition, player.Action)
		}
		if err := requireNoTeam(tx, player.UserID); err != nil {
			return err
		}
		err := tx.Model(&teammodels.TeamPlayer{}).
			Where("id = ?", player.ID).
			Update("action", teammodels.ActionInTeam).Error
		if err != nil {
			return fmt.Errorf("failed to accept membership: %w", err)
		}
		player.Action = teammodels.ActionInTeam

	case transitionReject, transitionRemove:
		want := teammodels.ActionInTeam
		if t == transitionReject {
			want = teammodels.ActionInvited
		}
		if player.Action != want {
			return fmt.Errorf("%w: cannot %s %s", ErrInvalidTransition, t, player.Action)
		}
		if err := tx.Delete(&teammodels.TeamPlayer{}, player.ID).Error; err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}

	default:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, t)
	}

	return syncUserFlags(tx, player.UserID)
}

// requireNoTeam fails with ErrInvalidTransition when userID is already in a
// team. The user row stays locked until the transaction ends, so two joins of
// the same user cannot both pass.
func requireNoTeam(tx *gorm.DB, userID uint) error {
	var user usermodels.User
	if err := forUpdate(tx).Select("id").First(&user, userID).Error; err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}

	var n int64
	err := tx.Model(&teammodels.TeamPlayer{}).
		Where("user_id = ? AND action = ?", userID, teammodels.ActionInTeam).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: user %d is already in a team", ErrInvalidTransition, userID)
	}
	return nil
}

// syncUserFlags recomputes is_inteam (any membership record, pending invites
// included) and is_captain (captain of a team the user is in).
func syncUserFlags(tx *gorm.DB, userID uint) error {
	var memberships int64
	err := tx.Model(&teammodels.TeamPlayer{}).
		Where("user_id = ?", userID).
		Count(&memberships).Error
	if err != nil {
		return fmt.Errorf("failed to count memberships: %w", err)
	}

	var captaincies int64
	err = tx.Model(&teammodels.Team{}).
		Joins("JOIN team_players ON team_players.team_id = teams.id AND team_players.user_id = teams.captain_user_id").
		Where("teams.captain_user_id = ? AND team_players.action = ?", userID, teammodels.ActionInTeam).
		Count(&captaincies).Error
	if err != nil {
		return fmt.Errorf("failed to count captaincies: %w", err)
	}

	err = tx.Model(&usermodels.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_inteam":  memberships > 0,
			"is_captain": captaincies > 0,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update user flags: %w", err)
	}
	return nil
}

// forUpdate locks the selected rows until the transaction ends. SQLite
// ignores the clause and serialises writers instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockTeam(tx *gorm.DB, teamID uint) (*teammodels.Team, error) {
	var team teammodels.Team
	err := forUpdate(tx).First(&team, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("team")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	return &team, nil
}

// isCaptainOf reports whether userID captains team and is still in it.
func isCaptainOf(tx *gorm.DB, userID uint, team *teammodels.Team) (bool, error) {
	if team.CaptainUserID != userID {
		return false, nil
	}
	var n int64
	err := tx.Model(&teammodels.TeamPlayer{}).
		Where("team_id = ? AND user_id = ? AND action = ?", team.ID, userID, teammodels.ActionInTeam).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check captaincy: %w", err)
	}
	return n > 0, nil
}

// pendingInvite picks the invite of userID, or the oldest pending invite of
// the team when userID is zero.
func pendingInvite(tx *gorm.DB, teamID, userID uint) (*teammodels.TeamPlayer, error) {
	q := forUpdate(tx).Where("team_id = ? AND action = ?", teamID, teammodels.ActionInvited)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}

	var player teammodels.TeamPlayer
	err := q.Order("id").Take(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("invite")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invite: %w", err)
	}
	return &player, nil
}

// playerForUser returns the membership record of a user, preferring an
// accepted one, with its team loaded.
func playerForUser(tx *gorm.DB, userID uint) (*teammodels.TeamPlayer, error) {
	var player teammodels.TeamPlayer
	order := fmt.Sprintf("CASE WHEN action = '%s' THEN 0 ELSE 1 END, id", teammodels.ActionInTeam)
	err := tx.Preload("User").Preload("Team").
		Where("user_id = ?", userID).
		Order(order).
		Take(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("membership")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if player.Team == nil {
		return nil, notFound("team")
	}
	return &player, nil
}
