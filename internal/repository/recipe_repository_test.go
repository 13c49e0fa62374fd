package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebook/tastebook-api/internal/models"
)

func recipeRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "title", "description", "ingredients", "instructions", "prep_time", "cook_time", "servings", "meal_type", "is_public", "created_at", "updated_at"}).
		AddRow("r1", "u1", "Pancakes", "Fluffy pancakes", pq.StringArray{"flour", "milk"}, pq.StringArray{"mix", "fry"}, 10, 15, 4, "breakfast", true, now, now)
}

func TestRecipeCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecipeRepository(db)

	mock.ExpectExec("INSERT INTO recipes").WillReturnResult(sqlmock.NewResult(1, 1))

	recipe := &models.Recipe{
		UserID:       "u1",
		Title:        "Pancakes",
		Description:  "Fluffy pancakes",
		Ingredients:  pq.StringArray{"flour", "milk"},
		Instructions: pq.StringArray{"mix", "fry"},
		Servings:     4,
		MealType:     models.MealBreakfast,
	}
	require.NoError(t, repo.Create(context.Background(), recipe))
	assert.NotEmpty(t, recipe.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecipeRepository(db)

	mock.ExpectQuery("SELECT .+ FROM recipes WHERE id =").
		WithArgs("r1").
		WillReturnRows(recipeRows(time.Now()))

	recipe, err := repo.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", recipe.Title)
	assert.Equal(t, []string{"flour", "milk"}, []string(recipe.Ingredients))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecipeRepository(db)

	mealType := models.MealBreakfast
	mock.ExpectQuery("SELECT .+ FROM recipes WHERE 1=1 AND user_id = .+ AND meal_type = .+ ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("u1", mealType).
		WillReturnRows(recipeRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM recipes WHERE 1=1")).
		WithArgs("u1", mealType).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	recipes, total, err := repo.List(context.Background(), models.RecipeFilter{UserID: "u1", MealType: &mealType})
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeListWithoutOwnerScopeIsPublicOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecipeRepository(db)

	mock.ExpectQuery("SELECT .+ FROM recipes WHERE 1=1 AND is_public = TRUE ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WillReturnRows(recipeRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM recipes WHERE 1=1 AND is_public = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	recipes, total, err := repo.List(context.Background(), models.RecipeFilter{})
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeSearchWithoutOwnerScopeIsPublicOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecipeRepository(db)

	mock.ExpectQuery("SELECT .+ FROM recipes WHERE 1=1 AND is_public = TRUE AND \\(LOWER\\(title\\) LIKE .+ OR LOWER\\(description\\) LIKE .+\\) ORDER BY created_at DESC").
		WithArgs("%pancake%").
		WillReturnRows(recipeRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM recipes WHERE 1=1 AND is_public = TRUE")).
		WithArgs("%pancake%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.RecipeFilter{Search: "Pancake"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeListOwnerScopeIncludesPrivate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecipeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "description", "ingredients", "instructions", "prep_time", "cook_time", "servings", "meal_type", "is_public", "created_at", "updated_at"}).
		AddRow("r2", "u1", "Secret Sauce", "Family recipe", pq.StringArray{"tomato"}, pq.StringArray{"simmer"}, 5, 60, 2, "dinner", false, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .+ FROM recipes WHERE 1=1 AND user_id = .+ ORDER BY created_at DESC").
		WithArgs("u1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM recipes WHERE 1=1 AND user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	recipes, _, err := repo.List(context.Background(), models.RecipeFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.False(t, recipes[0].IsPublic)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecipeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM recipes WHERE id = $1")).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
