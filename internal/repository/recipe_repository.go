package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tastebook/tastebook-api/internal/models"
)

// RecipeRepository provides database access for recipes.
type RecipeRepository struct {
	db *sqlx.DB
}

// NewRecipeRepository creates a new instance of RecipeRepository.
func NewRecipeRepository(db *sqlx.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create inserts a new recipe.
func (r *RecipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now

	const query = `INSERT INTO recipes (id, user_id, title, description, ingredients, instructions, prep_time, cook_time, servings, meal_type, is_public, created_at, updated_at)
		VALUES (:id, :user_id, :title, :description, :ingredients, :instructions, :prep_time, :cook_time, :servings, :meal_type, :is_public, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, recipe); err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}
	return nil
}

// FindByID returns a recipe by identifier.
func (r *RecipeRepository) FindByID(ctx context.Context, id string) (*models.Recipe, error) {
	const query = `SELECT id, user_id, title, description, ingredients, instructions, prep_time, cook_time, servings, meal_type, is_public, created_at, updated_at
		FROM recipes WHERE id = $1 LIMIT 1`
	var recipe models.Recipe
	if err := r.db.GetContext(ctx, &recipe, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find recipe by id: %w", err)
	}
	return &recipe, nil
}

// List returns recipes matching the filter with a total count. Without an
// owner scope the listing covers public recipes only; private recipes are
// visible solely through their owner's own listing.
func (r *RecipeRepository) List(ctx context.Context, filter models.RecipeFilter) ([]models.Recipe, int, error) {
	baseQuery := `FROM recipes WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	} else {
		conditions = append(conditions, "is_public = TRUE")
	}
	if filter.MealType != nil {
		conditions = append(conditions, fmt.Sprintf("meal_type = $%d", len(args)+1))
		args = append(args, *filter.MealType)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, user_id, title, description, ingredients, instructions, prep_time, cook_time, servings, meal_type, is_public, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var recipes []models.Recipe
	if err := r.db.SelectContext(ctx, &recipes, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}

	return recipes, total, nil
}

// Update rewrites the mutable fields of a recipe.
func (r *RecipeRepository) Update(ctx context.Context, recipe *models.Recipe) error {
	recipe.UpdatedAt = time.Now().UTC()
	const query = `UPDATE recipes SET title = :title, description = :description, ingredients = :ingredients, instructions = :instructions, prep_time = :prep_time, cook_time = :cook_time, servings = :servings, meal_type = :meal_type, is_public = :is_public, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, recipe); err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	return nil
}

// Delete removes a recipe.
func (r *RecipeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM recipes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	return nil
}
