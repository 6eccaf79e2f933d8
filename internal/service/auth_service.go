package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "eventdesk"

// ErrInvalidPerPage is returned for a page size outside 1..500
var ErrInvalidPerPage = errors.New("per_page_count must be between 1 and 500")

// AuthService issues and validates analyst tokens
type AuthService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Claims represents JWT claims
type Claims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Login authenticates a user and returns a signed token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", nil, models.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !user.CheckPassword(password) {
		return "", nil, models.ErrInvalidCredentials
	}
	if !user.Enabled {
		return "", nil, models.ErrUserDisabled
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GenerateToken generates a JWT token for a user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	lifetime := s.cfg.TokenLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	now := s.now()

	claims := &Claims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != 0 {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GetUser retrieves a user by ID
func (s *AuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// UpdateProfile changes the analyst's display name and page size
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, name string, perPage int) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if perPage != 0 {
		if perPage < 1 || perPage > 500 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPerPage, perPage)
		}
		user.PerPageCount = perPage
	}
	if name != "" {
		user.Name = name
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
