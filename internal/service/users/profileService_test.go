package profileService

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/rosters/internal/cache"
	"github.com/nikhil/rosters/internal/database/dbtest"
	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/logger"
	teammodels "github.com/nikhil/rosters/internal/models/teams"
	models "github.com/nikhil/rosters/internal/models/users"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestProfileService(t *testing.T) {
	db := dbtest.Open(t)
	p := NewProfileService(db, forms.NewValidator(1024), nil, logger.NewNopLogger())
	ctx := context.Background()

	ann := &models.User{Email: "ann@example.com", Password: "x", Nickname: "ann", IsInTeam: true}
	bob := &models.User{Email: "bob@example.com", Password: "x", Nickname: "bob"}
	require.NoError(t, db.Create(ann).Error)
	require.NoError(t, db.Create(bob).Error)

	got, err := p.GetUser(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Nickname)
	assert.True(t, got.IsInTeam)

	_, err = p.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	updated, err := p.UpdateNickname(ctx, ann, &forms.ProfileForm{Nickname: " annie "})
	require.NoError(t, err)
	assert.Equal(t, "annie", updated.Nickname)
	assert.True(t, updated.IsInTeam)

	_, err = p.UpdateNickname(ctx, ann, &forms.ProfileForm{Nickname: "bob"})
	var errs forms.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, nicknameTaken, errs.Get("nickname"))

	_, err = p.UpdateNickname(ctx, ann, &forms.ProfileForm{Nickname: "a!"})
	require.ErrorAs(t, err, &errs)
	assert.NotEmpty(t, errs.Get("nickname"))
}

func TestUpdateNicknameInvalidatesRoster(t *testing.T) {
	db := dbtest.Open(t)
	rosters := &mapCache{data: map[string]string{}}
	p := NewProfileService(db, forms.NewValidator(1024), rosters, logger.NewNopLogger())
	ctx := context.Background()

	ann := &models.User{Email: "ann@example.com", Password: "x", Nickname: "ann", IsInTeam: true, IsCaptain: true}
	bob := &models.User{Email: "bob@example.com", Password: "x", Nickname: "bob", IsInTeam: true, IsCaptain: true}
	require.NoError(t, db.Create(ann).Error)
	require.NoError(t, db.Create(bob).Error)

	rockets := &teammodels.Team{Title: "Rockets", CaptainUserID: ann.ID}
	comets := &teammodels.Team{Title: "Comets", CaptainUserID: bob.ID}
	require.NoError(t, db.Create(rockets).Error)
	require.NoError(t, db.Create(comets).Error)
	require.NoError(t, db.Create(&teammodels.TeamPlayer{UserID: ann.ID, TeamID: rockets.ID, Action: teammodels.ActionInTeam}).Error)
	require.NoError(t, db.Create(&teammodels.TeamPlayer{UserID: bob.ID, TeamID: comets.ID, Action: teammodels.ActionInTeam}).Error)

	rosters.data[cache.RosterKey(rockets.ID)] = `[{"user":{"nickname":"ann"}}]`
	rosters.data[cache.RosterKey(comets.ID)] = `[{"user":{"nickname":"bob"}}]`

	_, err := p.UpdateNickname(ctx, ann, &forms.ProfileForm{Nickname: "annie"})
	require.NoError(t, err)

	assert.NotContains(t, rosters.data, cache.RosterKey(rockets.ID))
	assert.Contains(t, rosters.data, cache.RosterKey(comets.ID))

	// A rejected rename leaves the cache alone
	rosters.data[cache.RosterKey(rockets.ID)] = `[]`
	_, err = p.UpdateNickname(ctx, ann, &forms.ProfileForm{Nickname: "bob"})
	require.Error(t, err)
	assert.Contains(t, rosters.data, cache.RosterKey(rockets.ID))
}
