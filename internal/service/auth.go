package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clubfunds/internal/config"
	"clubfunds/internal/database"
	"clubfunds/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	db     *database.Database
	cfg    config.AuthConfig
	logger *slog.Logger
}

func NewAuthService(db *database.Database, cfg config.AuthConfig, logger *slog.Logger) *AuthService {
	return &AuthService{db: db, cfg: cfg, logger: logger}
}

type SignUpParams struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,password_strength,max=128"`
	Phone    string `validate:"omitempty,e164"`
}

func (s *AuthService) SignUp(ctx context.Context, params SignUpParams) (database.User, error) {
	if _, err := s.db.GetUserByEmail(ctx, params.Email); err == nil {
		return database.User{}, ConflictError{Resource: "user", Name: params.Email}
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return database.User{}, fmt.Errorf("service: failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cfg.BcryptCost)
	if err != nil {
		return database.User{}, fmt.Errorf("service: failed to hash password: %w", err)
	}

	phone := util.None[string]()
	if params.Phone != "" {
		phone = util.Some(params.Phone)
	}

	user, err := s.db.CreateUser(ctx, database.CreateUserParams{
		Name:         params.Name,
		Email:        params.Email,
		Phone:        phone,
		PasswordHash: string(hash),
	})
	if err != nil {
		return database.User{}, fmt.Errorf("service: failed to create user: %w", err)
	}

	s.logger.Info("user signed up", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (database.User, error) {
	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return database.User{}, ErrInvalidCredentials
		}
		return database.User{}, fmt.Errorf("service: failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("failed login attempt", "email", email)
		return database.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken mints a bearer JWT for non-browser clients. The session cookie
// remains the primary web credential.
func (s *AuthService) IssueToken(user database.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   "clubfunds",
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("service: failed to sign token: %w", err)
	}
	return signed, nil
}
