package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/quickserve-api/internal/email"
	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
	"github.com/jwalitptl/quickserve-api/pkg/auth"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
	"github.com/jwalitptl/quickserve-api/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutWindow    = 15 * time.Minute
)

// Service handles registration, login and account lookups.
type Service struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
	tokens auth.JWTService
	emails email.Service
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, tokens auth.JWTService, emails email.Service) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		emails: emails,
	}
}

// Register creates an active account. The role defaults to CUSTOMER; admins
// are provisioned out of band.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.Conflict("email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	role := req.Role
	if role == "" {
		role = model.RoleCustomer
	}
	if role == model.RoleAdmin {
		return nil, apperrors.Validation("cannot self-register as admin")
	}

	now := time.Now().UTC()
	user := &model.User{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         role,
		Status:       model.UserStatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	if s.emails != nil {
		if err := s.emails.SendWelcome(ctx, user.Email, user.Name); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to send welcome email")
		}
	}

	return user, nil
}

// Login verifies credentials and issues a token pair. Accounts lock after
// repeated failures inside the lockout window.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, apperrors.Internal(err)
	}

	if user.Status == model.UserStatusLocked {
		if time.Since(user.LastLoginAttempt) < lockoutWindow {
			return nil, apperrors.Unauthorized("account temporarily locked")
		}
		user.Status = model.UserStatusActive
		user.LoginAttempts = 0
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordFailedAttempt(ctx, user)
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	now := time.Now().UTC()
	user.LoginAttempts = 0
	user.LastLoginAttempt = now
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record login")
	}

	return s.issueTokens(user)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}
	if user.Status == model.UserStatusLocked {
		return nil, apperrors.Unauthorized("account temporarily locked")
	}

	return s.issueTokens(user)
}

// Get returns a user's own account, or any account for admins.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.User, error) {
	if actor.Role != model.RoleAdmin && actor.ID != id {
		return nil, apperrors.Unauthorized("cannot view another user's account")
	}
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *Service) recordFailedAttempt(ctx context.Context, user *model.User) {
	now := time.Now().UTC()
	if time.Since(user.LastLoginAttempt) > lockoutWindow {
		user.LoginAttempts = 0
	}
	user.LoginAttempts++
	user.LastLoginAttempt = now
	user.UpdatedAt = now
	if user.LoginAttempts >= maxLoginAttempts {
		user.Status = model.UserStatusLocked
	}
	if err := s.users.Update(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record login attempt")
	}
}

func (s *Service) issueTokens(user *model.User) (*model.TokenResponse, error) {
	access, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}
