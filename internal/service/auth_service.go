package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/repository"
	"github.com/iliyamo/invoice-api/internal/utils"
)

// UserStore is the slice of repository.UserRepo the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// AuthService implements register, login, refresh and logout on top of the
// user store and the token service.
type AuthService struct {
	users      UserStore
	tokens     *TokenService
	bcryptCost int
	log        *zap.Logger
	// dummyHash is compared against when the email is unknown so a miss
	// costs the same bcrypt work as a wrong password.
	dummyHash string
}

func NewAuthService(users UserStore, tokens *TokenService, bcryptCost int, log *zap.Logger) (*AuthService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dummy, err := utils.HashPassword("not-a-real-password", bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost, log: log, dummyHash: dummy}, nil
}

// RefreshTTL is the refresh cookie lifetime.
func (s *AuthService) RefreshTTL() time.Duration { return s.tokens.RefreshTTL() }

// Register creates a user with role user and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, TokenPair, error) {
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrEmptyPassword):
			return model.User{}, TokenPair{}, apperr.Validation("Validation failed",
				apperr.FieldError{Field: "password", Message: "password is required"})
		case errors.Is(err, utils.ErrPasswordTooLong):
			return model.User{}, TokenPair{}, apperr.Validation("Validation failed",
				apperr.FieldError{Field: "password", Message: "password must be at most 72 bytes"})
		}
		return model.User{}, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := model.NewUser(in.Email, hash, in.Name, model.RoleUser)
	if err != nil {
		return model.User{}, TokenPair{}, registerFieldError(err)
	}

	id, err := s.users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, TokenPair{}, apperr.New(apperr.Conflict, "Email already registered")
		}
		return model.User{}, TokenPair{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id

	pair, err := s.tokens.Issue(ctx, u.ID, u.Email, u.Role)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID))
	return u, pair, nil
}

// Login checks credentials.  Unknown email and wrong password produce the
// same error and neither touches the token store.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, model.NormalizeEmail(email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		_ = utils.VerifyPassword(s.dummyHash, password)
		return model.User{}, TokenPair{}, apperr.Unauthenticated("Invalid email or password")
	case err != nil:
		return model.User{}, TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, apperr.Unauthenticated("Invalid email or password")
	}

	pair, err := s.tokens.Issue(ctx, u.ID, u.Email, u.Role)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	pair, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenExpired) {
			return TokenPair{}, apperr.Unauthenticated("Invalid refresh token")
		}
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout revokes the refresh token if one was presented.  It succeeds
// without a token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

func registerFieldError(err error) error {
	var field string
	switch {
	case errors.Is(err, model.ErrInvalidEmail):
		field = "email"
	case errors.Is(err, model.ErrEmptyName):
		field = "name"
	default:
		return fmt.Errorf("build user: %w", err)
	}
	return apperr.Validation("Validation failed", apperr.FieldError{Field: field, Message: err.Error()})
}
