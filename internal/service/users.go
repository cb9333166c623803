package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/auth"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/repository"
	"github.com/google/uuid"
)

// UserService creates accounts and exchanges credentials for tokens.
type UserService struct {
	users  repository.UserStore
	tokens *auth.TokenIssuer
	log    *slog.Logger
}

// NewUserService constructs a UserService with its dependencies.
func NewUserService(users repository.UserStore, tokens *auth.TokenIssuer, log *slog.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, log: log}
}

// Create validates the request, hashes the password and stores the user.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.UserView, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := checkStruct(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, model.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  hash,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user created", "user_id", u.ID)
	v := u.View()
	return &v, nil
}

// Get returns a user without the password hash.
func (s *UserService) Get(ctx context.Context, id string) (*model.UserView, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Invalid("user id is required")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := u.View()
	return &v, nil
}

// Login checks credentials and issues a bearer token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := checkStruct(req); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
		}
		return nil, err
	}

	ok, err := auth.ComparePassword(req.Password, u.Password)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}

	token, expiresAt, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", "user_id", u.ID)
	return &model.TokenResponse{Token: token, ExpiresAt: expiresAt.UTC()}, nil
}
