package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/repository"
	"kinship/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AuthService registers accounts and issues and revokes access tokens.
type AuthService struct {
	userRepo  repository.UserRepository
	rdb       *redis.Client
	jwtSecret string
	tokenTTL  time.Duration
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,kemail"`
	Password string `json:"password" validate:"required,password"`
	Username string `json:"username" validate:"required,username"`
	FullName string `json:"full_name" validate:"required,max=100"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// NewAuthService returns a new AuthService. rdb may be nil, which disables
// token revocation.
func NewAuthService(userRepo repository.UserRepository, rdb *redis.Client, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		rdb:       rdb,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Register creates the user and profile in one transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)

	if in.Email == "" || in.Password == "" || in.Username == "" || in.FullName == "" {
		return nil, models.NewValidationError("Email, username, full name, and password are required")
	}
	if len([]rune(in.FullName)) < validation.FullNameMinLen {
		return nil, models.NewValidationError("Full name must be at least 2 characters")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, internal(err)
	}
	if exists {
		return nil, models.NewConflictError("Email already in use")
	}
	taken, err := s.userRepo.UsernameTaken(ctx, in.Username, 0)
	if err != nil {
		return nil, internal(err)
	}
	if taken {
		return nil, models.NewConflictError("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internal(err)
	}

	user := &models.User{Email: in.Email, Password: string(hash)}
	profile := &models.Profile{Username: &in.Username, FullName: &in.FullName}
	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		if isDuplicate(err) {
			// Lost a race with a concurrent registration.
			return nil, models.NewConflictError("Email or username already taken")
		}
		return nil, internal(err)
	}
	return user, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewValidationError("Invalid credentials")
		}
		return nil, internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, models.NewValidationError("Invalid credentials")
		}
		return nil, internal(err)
	}

	token, _, err := middleware.IssueToken(s.jwtSecret, user.ID, s.tokenTTL)
	if err != nil {
		return nil, internal(err)
	}
	return &LoginResult{Token: token, User: &models.User{ID: user.ID, Email: user.Email}}, nil
}

// Me returns the caller with its profile. A token for a user that no longer
// exists is reported as unauthorized.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewUnauthorizedError("User not found")
		}
		return nil, internal(err)
	}
	return user, nil
}

// Logout blacklists the token's jti until it expires.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.Claims) error {
	if err := middleware.RevokeToken(ctx, s.rdb, claims); err != nil {
		return internal(err)
	}
	return nil
}
