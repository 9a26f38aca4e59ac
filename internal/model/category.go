package model

// Category groups providers by trade (plumber, electrician, tutor, ...).
// Categories are managed by admins.
type Category struct {
	Base
	Name         string `db:"name" json:"name"`
	Slug         string `db:"slug" json:"slug"`
	Description  string `db:"description" json:"description,omitempty"`
	Icon         string `db:"icon" json:"icon,omitempty"`
	Active       bool   `db:"active" json:"active"`
	DisplayOrder int    `db:"display_order" json:"display_order"`
}

type CreateCategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	Slug         string `json:"slug" binding:"required"`
	Description  string `json:"description" binding:"max=2000"`
	Icon         string `json:"icon"`
	DisplayOrder int    `json:"display_order"`
}

type UpdateCategoryRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Icon         *string `json:"icon"`
	Active       *bool   `json:"active"`
	DisplayOrder *int    `json:"display_order"`
}
