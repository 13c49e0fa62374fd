package models

import (
	"time"

	"github.com/lib/pq"
)

// MealType enumerates the recipe meal categories.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
	MealDessert   MealType = "dessert"
)

// ValidMealType reports whether the given value is a known meal type.
func ValidMealType(v string) bool {
	switch MealType(v) {
	case MealBreakfast, MealLunch, MealDinner, MealSnack, MealDessert:
		return true
	}
	return false
}

// Recipe represents a recipe owned by a user. UserID comes from the
// validated access-token identity, never from the request payload.
type Recipe struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	Ingredients  pq.StringArray `db:"ingredients" json:"ingredients"`
	Instructions pq.StringArray `db:"instructions" json:"instructions"`
	PrepTime     int            `db:"prep_time" json:"prep_time"`
	CookTime     int            `db:"cook_time" json:"cook_time"`
	Servings     int            `db:"servings" json:"servings"`
	MealType     MealType       `db:"meal_type" json:"meal_type"`
	IsPublic     bool           `db:"is_public" json:"is_public"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// RecipeFilter captures filtering criteria for listing recipes.
type RecipeFilter struct {
	UserID   string
	MealType *MealType
	Search   string
	Page     int
	PageSize int
}

// CreateRecipeRequest is the payload for creating a recipe.
type CreateRecipeRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"required"`
	Ingredients  []string `json:"ingredients" validate:"required,min=1,dive,required"`
	Instructions []string `json:"instructions" validate:"required,min=1,dive,required"`
	PrepTime     int      `json:"prep_time" validate:"gte=0"`
	CookTime     int      `json:"cook_time" validate:"gte=0"`
	Servings     int      `json:"servings" validate:"required,gt=0"`
	MealType     string   `json:"meal_type" validate:"required"`
	IsPublic     *bool    `json:"is_public"`
}

// UpdateRecipeRequest is the payload for updating a recipe. Nil fields are
// left untouched.
type UpdateRecipeRequest struct {
	Title        *string  `json:"title" validate:"omitempty,max=200"`
	Description  *string  `json:"description"`
	Ingredients  []string `json:"ingredients" validate:"omitempty,min=1,dive,required"`
	Instructions []string `json:"instructions" validate:"omitempty,min=1,dive,required"`
	PrepTime     *int     `json:"prep_time" validate:"omitempty,gte=0"`
	CookTime     *int     `json:"cook_time" validate:"omitempty,gte=0"`
	Servings     *int     `json:"servings" validate:"omitempty,gt=0"`
	MealType     *string  `json:"meal_type"`
	IsPublic     *bool    `json:"is_public"`
}

// RecipeShareLink is returned when a share link is generated for a recipe.
type RecipeShareLink struct {
	RecipeID  string    `json:"recipe_id"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
