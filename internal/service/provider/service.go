package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
	"github.com/jwalitptl/quickserve-api/pkg/cache"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
)

const profileCacheTTL = 5 * time.Minute

// Service manages provider profiles and the public provider directory.
type Service struct {
	providers  repository.ProviderRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	cache      cache.Store
}

func NewService(
	providers repository.ProviderRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	store cache.Store,
) *Service {
	return &Service{
		providers:  providers,
		categories: categories,
		users:      users,
		cache:      store,
	}
}

// CreateProfile creates the acting user's provider profile. A user has at
// most one profile.
func (s *Service) CreateProfile(ctx context.Context, actor model.Actor, req *model.CreateProviderRequest) (*model.Provider, error) {
	if actor.Role != model.RoleProvider {
		return nil, apperrors.Unauthorized("only provider accounts can create a profile")
	}
	if req.HourlyRate.IsNegative() {
		return nil, apperrors.Validation("hourly rate cannot be negative")
	}

	if _, err := s.providers.GetByUserID(ctx, actor.ID); err == nil {
		return nil, apperrors.Conflict("provider profile already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	category, err := s.categories.Get(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("category")
		}
		return nil, apperrors.Internal(err)
	}
	if !category.Active {
		return nil, apperrors.Validation("category is not active")
	}

	now := time.Now().UTC()
	provider := &model.Provider{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:          actor.ID,
		CategoryID:      req.CategoryID,
		Bio:             req.Bio,
		HourlyRate:      req.HourlyRate,
		ServiceArea:     req.ServiceArea,
		ExperienceYears: req.ExperienceYears,
		Available:       true,
	}

	if err := s.providers.Create(ctx, provider); err != nil {
		return nil, apperrors.Internal(err)
	}
	return provider, nil
}

// Get returns a provider profile, served from cache when warm.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	key := CacheKey(id)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if provider, ok := cached.(*model.Provider); ok {
				return provider, nil
			}
		}
	}

	provider, err := s.providers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("provider")
		}
		return nil, apperrors.Internal(err)
	}

	if s.cache != nil {
		s.cache.Set(key, provider, profileCacheTTL)
	}
	return provider, nil
}

// GetByUser returns the acting user's own profile.
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Provider, error) {
	provider, err := s.providers.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("provider")
		}
		return nil, apperrors.Internal(err)
	}
	return provider, nil
}

// Update applies a partial update to the actor's own profile; admins may
// update any profile.
func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateProviderRequest) (*model.Provider, error) {
	provider, err := s.providers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("provider")
		}
		return nil, apperrors.Internal(err)
	}
	if actor.Role != model.RoleAdmin && provider.UserID != actor.ID {
		return nil, apperrors.Unauthorized("cannot update another provider's profile")
	}

	if req.Bio != nil {
		provider.Bio = *req.Bio
	}
	if req.HourlyRate != nil {
		if req.HourlyRate.IsNegative() {
			return nil, apperrors.Validation("hourly rate cannot be negative")
		}
		provider.HourlyRate = *req.HourlyRate
	}
	if req.Available != nil {
		provider.Available = *req.Available
	}
	if req.ServiceArea != nil {
		provider.ServiceArea = *req.ServiceArea
	}
	if req.ExperienceYears != nil {
		if *req.ExperienceYears < 0 {
			return nil, apperrors.Validation("experience years cannot be negative")
		}
		provider.ExperienceYears = *req.ExperienceYears
	}
	provider.UpdatedAt = time.Now().UTC()

	if err := s.providers.Update(ctx, provider); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.evict(id)
	return provider, nil
}

// Verify marks a provider as verified. Admin only.
func (s *Service) Verify(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Provider, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Unauthorized("only admins can verify providers")
	}
	provider, err := s.providers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("provider")
		}
		return nil, apperrors.Internal(err)
	}

	provider.Verified = true
	provider.UpdatedAt = time.Now().UTC()
	if err := s.providers.Update(ctx, provider); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.evict(id)
	return provider, nil
}

// List returns the provider directory, filtered and paginated.
func (s *Service) List(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, int, error) {
	if filters == nil {
		filters = &model.ProviderFilters{}
	}
	filters.Normalize()
	providers, total, err := s.providers.List(ctx, filters)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return providers, total, nil
}

func (s *Service) evict(id uuid.UUID) {
	if s.cache != nil {
		s.cache.Delete(CacheKey(id))
	}
}

// CacheKey is the cache entry key for a provider profile. Exported so
// writers outside this package, such as the review aggregate update, can
// evict the entry.
func CacheKey(id uuid.UUID) string {
	return fmt.Sprintf("provider:%s", id)
}
