package category

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
	"github.com/jwalitptl/quickserve-api/pkg/cache"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
)

const (
	listCacheKey = "categories:active"
	listCacheTTL = 10 * time.Minute
)

// Service manages the service category catalogue. Writes are admin only;
// the active list is cached because every directory page reads it.
type Service struct {
	categories repository.CategoryRepository
	cache      cache.Store
}

func NewService(categories repository.CategoryRepository, store cache.Store) *Service {
	return &Service{categories: categories, cache: store}
}

func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateCategoryRequest) (*model.Category, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Unauthorized("only admins can manage categories")
	}

	if _, err := s.categories.GetBySlug(ctx, req.Slug); err == nil {
		return nil, apperrors.Conflict("category slug already in use")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	category := &model.Category{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		Icon:         req.Icon,
		Active:       true,
		DisplayOrder: req.DisplayOrder,
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.evictList()
	return category, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categories.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("category")
		}
		return nil, apperrors.Internal(err)
	}
	return category, nil
}

func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateCategoryRequest) (*model.Category, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Unauthorized("only admins can manage categories")
	}

	category, err := s.categories.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("category")
		}
		return nil, apperrors.Internal(err)
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Icon != nil {
		category.Icon = *req.Icon
	}
	if req.Active != nil {
		category.Active = *req.Active
	}
	if req.DisplayOrder != nil {
		category.DisplayOrder = *req.DisplayOrder
	}
	category.UpdatedAt = time.Now().UTC()

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.evictList()
	return category, nil
}

// ListActive returns active categories in display order, from cache when
// warm.
func (s *Service) ListActive(ctx context.Context) ([]*model.Category, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(listCacheKey); ok {
			if categories, ok := cached.([]*model.Category); ok {
				return categories, nil
			}
		}
	}

	categories, err := s.categories.List(ctx, true)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if s.cache != nil {
		s.cache.Set(listCacheKey, categories, listCacheTTL)
	}
	return categories, nil
}

// ListAll returns every category including inactive ones. Admin only.
func (s *Service) ListAll(ctx context.Context, actor model.Actor) ([]*model.Category, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Unauthorized("only admins can list inactive categories")
	}
	categories, err := s.categories.List(ctx, false)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return categories, nil
}

func (s *Service) evictList() {
	if s.cache != nil {
		s.cache.Delete(listCacheKey)
	}
}
