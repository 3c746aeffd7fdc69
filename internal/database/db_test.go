package database_test

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nikhil/rosters/internal/database"
	"github.com/nikhil/rosters/internal/database/dbtest"
	usermodels "github.com/nikhil/rosters/internal/models/users"
)

func TestMigrateCreatesTables(t *testing.T) {
	db := dbtest.Open(t)

	for _, table := range []string{"users", "teams", "team_players"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	db := dbtest.Open(t)

	u := usermodels.User{Email: "a@example.com", Nickname: "alpha", Password: "x"}
	require.NoError(t, db.Create(&u).Error)

	dup := usermodels.User{Email: "a@example.com", Nickname: "beta", Password: "x"}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, database.IsDuplicateKey(err))

	assert.True(t, database.IsDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.False(t, database.IsDuplicateKey(&mysql.MySQLError{Number: 1452}))
	assert.False(t, database.IsDuplicateKey(gorm.ErrRecordNotFound))
}
