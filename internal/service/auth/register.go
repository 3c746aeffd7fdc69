package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/nikhil/rosters/internal/config"
	"github.com/nikhil/rosters/internal/database"
	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/logger"
	models "github.com/nikhil/rosters/internal/models/users"
	"github.com/nikhil/rosters/pkg/utils"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned by ParseToken for any token that does not
	// identify a user.
	ErrInvalidToken = errors.New("invalid token")
)

type AuthService struct {
	DB     *gorm.DB
	Forms  *forms.Validator
	Log    *logger.Logger
	secret []byte
	ttl    time.Duration
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(db *gorm.DB, v *forms.Validator, cfg config.SessionConfig, log *logger.Logger) *AuthService {
	return &AuthService{
		DB:     db,
		Forms:  v,
		Log:    log.Named("auth-service"),
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TTL,
	}
}

// TTL is how long an issued token stays valid.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// Signup handles user registration
func (s *AuthService) Signup(ctx context.Context, form *forms.SignupForm) (*models.User, error) {
	if err := s.Forms.Signup(form); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var taken []models.User
	err := db.Select("email", "nickname").
		Where("email = ? OR nickname = ?", form.Email, form.Nickname).
		Find(&taken).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if errs := conflicts(taken, form); len(errs) > 0 {
		return nil, errs
	}

	hashedPassword, err := utils.HashPassword(form.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:    form.Email,
		Password: hashedPassword,
		Nickname: form.Nickname,
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, forms.Errors{"__all__": "A user with that email or nickname already exists."}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.Log.WithContext(ctx).WithUser(user.ID).Audit("User registered")
	return &user, nil
}

func conflicts(taken []models.User, form *forms.SignupForm) forms.Errors {
	errs := forms.Errors{}
	for _, u := range taken {
		if u.Email == form.Email {
			errs["email"] = "A user with that email already exists."
		}
		if strings.EqualFold(u.Nickname, form.Nickname) {
			errs["nickname"] = "A user with that nickname already exists."
		}
	}
	return errs
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, form *forms.LoginForm) (string, *models.User, error) {
	if err := s.Forms.Login(form); err != nil {
		return "", nil, err
	}

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", form.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := utils.CheckPassword(user.Password, form.Password); err != nil {
		s.Log.WithContext(ctx).Warn("Failed login attempt", "user_id", user.ID)
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.GenerateJWT(user.Email, user.ID)
	if err != nil {
		return "", nil, err
	}
	user.Password = ""
	return token, &user, nil
}

// GenerateJWT creates a JWT token for authentication
func (s *AuthService) GenerateJWT(email string, userID uint) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   email,
		"user_id": userID,
		"exp":     time.Now().Add(s.ttl).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken returns the user id carried by a token issued by GenerateJWT.
func (s *AuthService) ParseToken(tokenStr string) (uint, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	// Numbers in MapClaims decode as float64
	userID, ok := claims["user_id"].(float64)
	if !ok || userID < 1 {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}
