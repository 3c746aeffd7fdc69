package profileService

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nikhil/rosters/internal/cache"
	"github.com/nikhil/rosters/internal/database"
	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/logger"
	teammodels "github.com/nikhil/rosters/internal/models/teams"
	models "github.com/nikhil/rosters/internal/models/users"
)

// ErrUserNotFound is returned when no account has the requested id.
var ErrUserNotFound = errors.New("user not found")

const nicknameTaken = "A user with that nickname already exists."

type ProfileService struct {
	DB    *gorm.DB
	Cache cache.CacheInterface
	Forms *forms.Validator
	Log   *logger.Logger
}

// NewProfileService builds the service. rosters is the cache the team
// service keeps rosters in; nil disables invalidation.
func NewProfileService(db *gorm.DB, v *forms.Validator, rosters cache.CacheInterface, log *logger.Logger) *ProfileService {
	if rosters == nil {
		rosters = cache.NopCache{}
	}
	return &ProfileService{
		DB:    db,
		Cache: rosters,
		Forms: v,
		Log:   log.Named("profile-service"),
	}
}

// GetUser loads an account with its current team flags.
func (profile *ProfileService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := profile.DB.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// UpdateNickname changes the nickname of user. The team flags are not
// writable here.
func (profile *ProfileService) UpdateNickname(ctx context.Context, user *models.User, form *forms.ProfileForm) (*models.User, error) {
	if err := profile.Forms.Profile(form); err != nil {
		return nil, err
	}
	db := profile.DB.WithContext(ctx)

	var taken int64
	err := db.Model(&models.User{}).
		Where("nickname = ? AND id <> ?", form.Nickname, user.ID).
		Count(&taken).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check nickname: %w", err)
	}
	if taken > 0 {
		return nil, forms.Errors{"nickname": nicknameTaken}
	}

	err = db.Model(&models.User{}).Where("id = ?", user.ID).Update("nickname", form.Nickname).Error
	if database.IsDuplicateKey(err) {
		return nil, forms.Errors{"nickname": nicknameTaken}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update nickname: %w", err)
	}

	profile.Log.WithContext(ctx).WithUser(user.ID).Info("Nickname updated", "nickname", form.Nickname)
	profile.invalidateRosters(ctx, user.ID)
	return profile.GetUser(ctx, user.ID)
}

// invalidateRosters drops the cached rosters showing userID, since they carry
// the old nickname.
func (profile *ProfileService) invalidateRosters(ctx context.Context, userID uint) {
	log := profile.Log.WithContext(ctx).WithUser(userID)

	var teamIDs []uint
	err := profile.DB.WithContext(ctx).Model(&teammodels.TeamPlayer{}).
		Where("user_id = ? AND action = ?", userID, teammodels.ActionInTeam).
		Pluck("team_id", &teamIDs).Error
	if err != nil {
		log.Warn("Failed to find teams for roster invalidation", "error", err)
		return
	}
	if len(teamIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		keys = append(keys, cache.RosterKey(id))
	}
	if err := profile.Cache.Delete(ctx, keys...); err != nil {
		log.Error("Failed to invalidate cache", "error", err, "keys", keys)
	}
}
