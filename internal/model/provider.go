package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider is a user's professional profile. Providers own a calendar of
// bookings and are the unit scheduling conflicts are checked against.
type Provider struct {
	Base
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	CategoryID      uuid.UUID       `db:"category_id" json:"category_id"`
	Bio             string          `db:"bio" json:"bio,omitempty"`
	HourlyRate      decimal.Decimal `db:"hourly_rate" json:"hourly_rate"`
	Rating          decimal.Decimal `db:"rating" json:"rating"`
	TotalRatings    int             `db:"total_ratings" json:"total_ratings"`
	Verified        bool            `db:"verified" json:"verified"`
	Available       bool            `db:"available" json:"available"`
	ServiceArea     string          `db:"service_area" json:"service_area,omitempty"`
	ExperienceYears int             `db:"experience_years" json:"experience_years,omitempty"`
}

type CreateProviderRequest struct {
	CategoryID      uuid.UUID       `json:"category_id" binding:"required"`
	Bio             string          `json:"bio" binding:"max=2000"`
	HourlyRate      decimal.Decimal `json:"hourly_rate" binding:"required"`
	ServiceArea     string          `json:"service_area"`
	ExperienceYears int             `json:"experience_years" binding:"min=0"`
}

type UpdateProviderRequest struct {
	Bio             *string          `json:"bio"`
	HourlyRate      *decimal.Decimal `json:"hourly_rate"`
	Available       *bool            `json:"available"`
	ServiceArea     *string          `json:"service_area"`
	ExperienceYears *int             `json:"experience_years"`
}

type ProviderFilters struct {
	CategoryID uuid.UUID
	Verified   *bool
	Available  *bool
	Pagination
}
