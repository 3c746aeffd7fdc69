package teammodels

import (
	"time"

	usermodels "github.com/nikhil/rosters/internal/models/users"
)

// PlayerAction is the state of a membership record.
type PlayerAction string

const (
	ActionInvited PlayerAction = "INVITED"
	ActionInTeam  PlayerAction = "INTEAM"
)

// Team represents a team entity
type Team struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Title         string           `gorm:"size:100;not null;index" json:"title"`
	Logo          string           `gorm:"size:255;not null;default:''" json:"logo"`
	CaptainUserID uint             `gorm:"not null;index" json:"captain_user_id"`
	CaptainUser   *usermodels.User `gorm:"foreignKey:CaptainUserID;constraint:OnDelete:RESTRICT" json:"captain_user,omitempty"`
	Players       []TeamPlayer     `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"players,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TeamPlayer is the membership record joining a user to a team. There is at
// most one record per (user, team); leaving a team deletes it.
type TeamPlayer struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_team_players_user_team" json:"user_id"`
	User      *usermodels.User `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	TeamID    uint             `gorm:"not null;uniqueIndex:idx_team_players_user_team;index" json:"team_id"`
	Team      *Team            `json:"team,omitempty"`
	Action    PlayerAction     `gorm:"size:16;not null;index" json:"action"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// IsInTeam reports whether the record is an accepted membership.
func (p *TeamPlayer) IsInTeam() bool {
	return p.Action == ActionInTeam
}

// IsInvited reports whether the record is a pending invite.
func (p *TeamPlayer) IsInvited() bool {
	return p.Action == ActionInvited
}
