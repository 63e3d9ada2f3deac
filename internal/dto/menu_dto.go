package dto

import "github.com/shopspring/decimal"

// ── Categories ────────────────────────────────────────────────────────────────

type CreateCategoryRequest struct {
	Name      string `json:"name"      validate:"required,min=1,max=100"`
	SortOrder int    `json:"sortOrder" validate:"min=0"`
}

type UpdateCategoryRequest struct {
	Name      *string `json:"name"      validate:"omitempty,min=1,max=100"`
	SortOrder *int    `json:"sortOrder" validate:"omitempty,min=0"`
	Active    *bool   `json:"active"`
}

type CategoryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
	Active    bool   `json:"active"`
}

// ── Menu items ────────────────────────────────────────────────────────────────

type CreateMenuItemRequest struct {
	Name        string          `json:"name"        validate:"required,min=1,max=120"`
	Price       decimal.Decimal `json:"price"       validate:"gte=0"`
	Category    string          `json:"category"    validate:"required"`
	IsAvailable *bool           `json:"isAvailable"`
}

type UpdateMenuItemRequest struct {
	Name        *string          `json:"name"     validate:"omitempty,min=1,max=120"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category" validate:"omitempty,min=1"`
	IsAvailable *bool            `json:"isAvailable"`
}

// MenuFilter is bound from the query string of GET /v1/menu.
type MenuFilter struct {
	Category  string `form:"category"`
	Name      string `form:"name"`
	Available string `form:"available"` // true | false | empty = all
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=200" validate:"min=1,max=500"`
}

type MenuItemResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	IsAvailable bool            `json:"isAvailable"`
}

type MenuListResponse struct {
	Items []MenuItemResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	// Cached is set when the list came from the Redis mirror because the
	// database could not be read.
	Cached bool `json:"cached,omitempty"`
}
