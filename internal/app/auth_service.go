package app

import (
	"context"
	"strings"

	"github.com/DevFusionist/dilse/internal/auth"
	"github.com/DevFusionist/dilse/internal/clock"
	"github.com/DevFusionist/dilse/internal/domain"
)

// AuthService owns storefront accounts and session tokens.
type AuthService struct {
	users  UserStore
	tokens *auth.TokenManager
	clock  clock.Clock
}

func NewAuthService(users UserStore, tokens *auth.TokenManager, clk clock.Clock) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		clock:  clk,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates an account and returns the user with a session token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", err
	}

	user := domain.User{
		ID:           newID(),
		Name:         in.Name,
		Email:        email,
		Phone:        in.Phone,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Email, s.clock.Now())
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Login checks the credentials and returns the user with a session token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == domain.ErrUserNotFound {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, s.clock.Now())
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// GetUser loads the account behind an authenticated request.
func (s *AuthService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}
