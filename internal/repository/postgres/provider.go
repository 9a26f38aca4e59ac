package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
)

const providerColumns = `
	id, user_id, category_id, bio, hourly_rate, rating, total_ratings,
	verified, available, service_area, experience_years, created_at, updated_at
`

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider) error {
	query := `
		INSERT INTO providers (
			id, user_id, category_id, bio, hourly_rate, rating, total_ratings,
			verified, available, service_area, experience_years, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		provider.ID,
		provider.UserID,
		provider.CategoryID,
		provider.Bio,
		provider.HourlyRate,
		provider.Rating,
		provider.TotalRatings,
		provider.Verified,
		provider.Available,
		provider.ServiceArea,
		provider.ExperienceYears,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

func (r *providerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	var provider model.Provider
	err := r.db.GetContext(ctx, &provider, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &provider, nil
}

func (r *providerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE user_id = $1`

	var provider model.Provider
	err := r.db.GetContext(ctx, &provider, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider by user: %w", err)
	}
	return &provider, nil
}

func (r *providerRepository) Update(ctx context.Context, provider *model.Provider) error {
	query := `
		UPDATE providers
		SET bio = $1, hourly_rate = $2, rating = $3, total_ratings = $4,
			verified = $5, available = $6, service_area = $7,
			experience_years = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		provider.Bio,
		provider.HourlyRate,
		provider.Rating,
		provider.TotalRatings,
		provider.Verified,
		provider.Available,
		provider.ServiceArea,
		provider.ExperienceYears,
		provider.UpdatedAt,
		provider.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *providerRepository) List(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	if filters.CategoryID != uuid.Nil {
		where += fmt.Sprintf(" AND category_id = $%d", argCount)
		args = append(args, filters.CategoryID)
		argCount++
	}
	if filters.Verified != nil {
		where += fmt.Sprintf(" AND verified = $%d", argCount)
		args = append(args, *filters.Verified)
		argCount++
	}
	if filters.Available != nil {
		where += fmt.Sprintf(" AND available = $%d", argCount)
		args = append(args, *filters.Available)
		argCount++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM providers"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count providers: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT "+providerColumns+" FROM providers"+where+" ORDER BY rating DESC, total_ratings DESC LIMIT $%d OFFSET $%d",
		argCount, argCount+1,
	)
	args = append(args, filters.PageSize, filters.Offset())

	var providers []*model.Provider
	if err := r.db.SelectContext(ctx, &providers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, total, nil
}
