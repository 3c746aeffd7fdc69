package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/rosters/internal/config"
	"github.com/nikhil/rosters/internal/database/dbtest"
	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/logger"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	cfg := config.SessionConfig{JWTSecret: "test-secret", TTL: time.Hour}
	return NewAuthService(dbtest.Open(t), forms.NewValidator(1024), cfg, logger.NewNopLogger())
}

func TestSignupAndLogin(t *testing.T) {
	s := newAuthService(t)
	ctx := context.Background()

	user, err := s.Signup(ctx, &forms.SignupForm{Email: "Ann@Example.com", Nickname: "ann", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.Password)
	assert.False(t, user.IsInTeam)
	assert.False(t, user.IsCaptain)

	token, loggedIn, err := s.Login(ctx, &forms.LoginForm{Email: "ann@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.Password)

	userID, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestSignupRejectsTakenEmailAndNickname(t *testing.T) {
	s := newAuthService(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, &forms.SignupForm{Email: "ann@example.com", Nickname: "ann", Password: "secret123"})
	require.NoError(t, err)

	_, err = s.Signup(ctx, &forms.SignupForm{Email: "ann@example.com", Nickname: "ann", Password: "secret123"})
	var errs forms.Errors
	require.ErrorAs(t, err, &errs)
	assert.NotEmpty(t, errs.Get("email"))
	assert.NotEmpty(t, errs.Get("nickname"))
}

func TestLoginFailures(t *testing.T) {
	s := newAuthService(t)
	ctx := context.Background()
	_, err := s.Signup(ctx, &forms.SignupForm{Email: "ann@example.com", Nickname: "ann", Password: "secret123"})
	require.NoError(t, err)

	tests := []struct {
		name string
		form forms.LoginForm
	}{
		{name: "wrong password", form: forms.LoginForm{Email: "ann@example.com", Password: "secret124"}},
		{name: "unknown email", form: forms.LoginForm{Email: "bob@example.com", Password: "secret123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Login(ctx, &tt.form)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	s := newAuthService(t)

	other := NewAuthService(s.DB, s.Forms, config.SessionConfig{JWTSecret: "other", TTL: time.Hour}, logger.NewNopLogger())
	foreign, err := other.GenerateJWT("ann@example.com", 1)
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	expiredStr, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	noUserStr, err := noUser.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"other secret": foreign,
		"expired":      expiredStr,
		"no user":      noUserStr,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.ParseToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
