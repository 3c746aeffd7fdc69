package usermodels

import "time"

// User is the account that logs in and joins teams. IsInTeam and IsCaptain
// are cached flags derived from the membership records; only the team
// service writes them.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"user_id"`
	Email     string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Nickname  string    `gorm:"size:32;not null;uniqueIndex" json:"nickname"`
	IsInTeam  bool      `gorm:"column:is_inteam;not null;default:false" json:"is_inteam"`
	IsCaptain bool      `gorm:"column:is_captain;not null;default:false" json:"is_captain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
