package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenTTL = 30 * time.Minute

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// UserRepository defines the user store operations the auth service relies on.
type UserRepository interface {
	Create(ctx context.Context, username, hashedPassword string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthServiceConfig holds token signing parameters.
type AuthServiceConfig struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
}

type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService registers users and issues HS256 access tokens that identify
// them to the link service.
type AuthService struct {
	repo UserRepository
	cfg  AuthServiceConfig
	now  func() time.Time
}

func NewAuthService(repo UserRepository, cfg AuthServiceConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &AuthService{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

// Register creates a user and returns an access token for it.
func (s *AuthService) Register(ctx context.Context, username, password string) (string, error) {
	const op = "service.AuthService.Register"

	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := s.repo.Create(ctx, username, string(hashed))
	if err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return "", fmt.Errorf("%s: %w", op, ErrUsernameTaken)
		}

		return "", fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Login checks the credentials and returns a fresh access token.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	const op = "service.AuthService.Login"

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := s.now()

	claims := tokenClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// ParseToken validates an access token and returns the identity it carries.
// The returned user has no password hash.
func (s *AuthService) ParseToken(tokenString string) (*models.User, error) {
	const op = "service.AuthService.ParseToken"

	var claims tokenClaims

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: bad subject", op, ErrInvalidToken)
	}

	return &models.User{ID: id, Username: claims.Username}, nil
}
