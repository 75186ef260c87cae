package service

import (
	"context"
	"log/slog"
	"strings"

	"space_puzzle/apperr"
	"space_puzzle/auth"
	"space_puzzle/model"
	"space_puzzle/repository"
)

// LoginResult outcome of an explicit login
type LoginResult struct {
	User      *model.User `json:"user"`
	IsNewUser bool        `json:"isNewUser"`
}

// IdentityService maps verified identities to stored users
type IdentityService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewIdentityService(store *repository.Store, logger *slog.Logger) *IdentityService {
	return &IdentityService{store: store, logger: logger}
}

func userFromIdentity(id auth.Identity) *model.User {
	return &model.User{
		ID:       id.Subject,
		Email:    id.Email,
		Nickname: optional(id.Nickname),
		GoogleID: optional(id.GoogleID),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Resolve the stored user of a verified identity, created on first sight
func (s *IdentityService) Resolve(ctx context.Context, id auth.Identity) (*model.User, error) {
	u, created, err := s.store.Users.EnsureUser(ctx, userFromIdentity(id))
	if err != nil {
		s.logger.Error("resolve user", "user_id", id.Subject, "err", err)
		return nil, apperr.Internal("failed to resolve user", err)
	}
	if created {
		s.logger.Info("user created", "user_id", u.ID)
	}
	return u, nil
}

// Login refreshes the provider profile fields. An identity without email is rejected.
func (s *IdentityService) Login(ctx context.Context, id auth.Identity) (*LoginResult, error) {
	if strings.TrimSpace(id.Email) == "" {
		return nil, apperr.InvalidInput("identity has no email")
	}

	fresh := userFromIdentity(id)
	_, created, err := s.store.Users.EnsureUser(ctx, fresh)
	if err != nil {
		s.logger.Error("login ensure user", "user_id", id.Subject, "err", err)
		return nil, apperr.Internal("failed to log in", err)
	}
	if err := s.store.Users.UpdateProfile(ctx, fresh); err != nil {
		s.logger.Error("login update profile", "user_id", id.Subject, "err", err)
		return nil, apperr.Internal("failed to log in", err)
	}
	u, err := s.store.Users.GetUser(ctx, id.Subject)
	if err != nil {
		s.logger.Error("login reload user", "user_id", id.Subject, "err", err)
		return nil, apperr.Internal("failed to log in", err)
	}
	return &LoginResult{User: u, IsNewUser: created}, nil
}
