package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tastebook/tastebook-api/internal/models"
	appErrors "github.com/tastebook/tastebook-api/pkg/errors"
	"github.com/tastebook/tastebook-api/pkg/export"
	"github.com/tastebook/tastebook-api/pkg/storage"
)

type mockRecipeRepo struct {
	recipes  map[string]*models.Recipe
	listed   int
	lastList models.RecipeFilter
}

func newMockRecipeRepo(recipes ...*models.Recipe) *mockRecipeRepo {
	m := &mockRecipeRepo{recipes: map[string]*models.Recipe{}}
	for _, r := range recipes {
		m.recipes[r.ID] = r
	}
	return m
}

func (m *mockRecipeRepo) Create(ctx context.Context, recipe *models.Recipe) error {
	m.recipes[recipe.ID] = recipe
	return nil
}

func (m *mockRecipeRepo) FindByID(ctx context.Context, id string) (*models.Recipe, error) {
	if r, ok := m.recipes[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRecipeRepo) List(ctx context.Context, filter models.RecipeFilter) ([]models.Recipe, int, error) {
	m.listed++
	m.lastList = filter
	var out []models.Recipe
	for _, r := range m.recipes {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockRecipeRepo) Update(ctx context.Context, recipe *models.Recipe) error {
	m.recipes[recipe.ID] = recipe
	return nil
}

func (m *mockRecipeRepo) Delete(ctx context.Context, id string) error {
	delete(m.recipes, id)
	return nil
}

type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *mapCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.entries = map[string][]byte{}
	return nil
}

func newRecipeService(t *testing.T, repo *mockRecipeRepo, cache *mapCache) *RecipeService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("share_secret", time.Hour)
	users := newMockUserRepo(&models.User{ID: "u1", Username: "testuser", Email: "test@example.com", Active: true})
	var c recipeCache
	if cache != nil {
		c = cache
	}
	return NewRecipeService(repo, users, c, export.NewPDFExporter(), store, signer, time.Minute, NewValidator(), zap.NewNop())
}

func sampleRecipe(ownerID string, public bool) *models.Recipe {
	return &models.Recipe{
		ID:           "r1",
		UserID:       ownerID,
		Title:        "Caldo Verde",
		Description:  "Portuguese kale soup",
		Ingredients:  []string{"kale", "potatoes", "chorizo"},
		Instructions: []string{"Simmer potatoes", "Add kale", "Serve"},
		PrepTime:     15,
		CookTime:     40,
		Servings:     4,
		MealType:     models.MealDinner,
		IsPublic:     public,
	}
}

func TestRecipeCreateAssignsOwner(t *testing.T) {
	repo := newMockRecipeRepo()
	svc := newRecipeService(t, repo, nil)

	recipe, err := svc.Create(context.Background(), "u1", models.CreateRecipeRequest{
		Title:        "Caldo Verde",
		Description:  "Portuguese kale soup",
		Ingredients:  []string{"kale", "potatoes"},
		Instructions: []string{"Simmer", "Serve"},
		Servings:     4,
		MealType:     "dinner",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", recipe.UserID)
	assert.NotEmpty(t, recipe.ID)
	assert.True(t, recipe.IsPublic)
	assert.Contains(t, repo.recipes, recipe.ID)
}

func TestRecipeCreateRejectsBadMealType(t *testing.T) {
	svc := newRecipeService(t, newMockRecipeRepo(), nil)

	_, err := svc.Create(context.Background(), "u1", models.CreateRecipeRequest{
		Title:        "Mystery",
		Description:  "???",
		Ingredients:  []string{"stuff"},
		Instructions: []string{"cook"},
		Servings:     1,
		MealType:     "midnight-feast",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "meal_type")
}

func TestRecipeGetHidesPrivateFromOthers(t *testing.T) {
	repo := newMockRecipeRepo(sampleRecipe("u1", false))
	svc := newRecipeService(t, repo, nil)

	_, err := svc.Get(context.Background(), "u2", "r1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	got, err := svc.Get(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "Caldo Verde", got.Title)
}

func TestRecipeUpdateEnforcesOwnership(t *testing.T) {
	repo := newMockRecipeRepo(sampleRecipe("u1", true))
	svc := newRecipeService(t, repo, nil)

	title := "Stolen Soup"
	_, err := svc.Update(context.Background(), "u2", "r1", models.UpdateRecipeRequest{Title: &title})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "Caldo Verde", repo.recipes["r1"].Title)

	updated, err := svc.Update(context.Background(), "u1", "r1", models.UpdateRecipeRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Stolen Soup", updated.Title)
	assert.Equal(t, 4, updated.Servings)
}

func TestRecipeDeleteEnforcesOwnership(t *testing.T) {
	repo := newMockRecipeRepo(sampleRecipe("u1", true))
	svc := newRecipeService(t, repo, nil)

	err := svc.Delete(context.Background(), "u2", "r1")
	require.Error(t, err)
	assert.Contains(t, repo.recipes, "r1")

	require.NoError(t, svc.Delete(context.Background(), "u1", "r1"))
	assert.NotContains(t, repo.recipes, "r1")
}

func TestRecipeListUsesCache(t *testing.T) {
	repo := newMockRecipeRepo(sampleRecipe("u1", true))
	cache := newMapCache()
	svc := newRecipeService(t, repo, cache)

	filter := models.RecipeFilter{Page: 1, PageSize: 10}
	first, pg, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, pg.TotalCount)
	assert.Equal(t, 1, repo.listed)

	second, _, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, repo.listed, "second identical listing should come from cache")
}

func TestRecipeMutationInvalidatesCache(t *testing.T) {
	repo := newMockRecipeRepo(sampleRecipe("u1", true))
	cache := newMapCache()
	svc := newRecipeService(t, repo, cache)

	filter := models.RecipeFilter{Page: 1, PageSize: 10}
	_, _, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	require.NoError(t, svc.Delete(context.Background(), "u1", "r1"))
	assert.Empty(t, cache.entries)
}

func TestRecipeListClampsPagination(t *testing.T) {
	repo := newMockRecipeRepo()
	svc := newRecipeService(t, repo, nil)

	_, pg, err := svc.List(context.Background(), models.RecipeFilter{Page: -3, PageSize: 9999})
	require.NoError(t, err)
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, maxPageSize, pg.PageSize)
	assert.Equal(t, repo.lastList.Page, pg.Page)
}

func TestRecipeExportCardAndResolveShare(t *testing.T) {
	repo := newMockRecipeRepo(sampleRecipe("u1", true))
	svc := newRecipeService(t, repo, nil)

	link, err := svc.ExportCard(context.Background(), "u2", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", link.RecipeID)
	assert.NotEmpty(t, link.Token)
	assert.True(t, link.ExpiresAt.After(time.Now()))

	data, filename, err := svc.ResolveShare(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, "r1.pdf", filename)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRecipeResolveShareRejectsTampered(t *testing.T) {
	repo := newMockRecipeRepo(sampleRecipe("u1", true))
	svc := newRecipeService(t, repo, nil)

	link, err := svc.ExportCard(context.Background(), "u1", "r1")
	require.NoError(t, err)

	_, _, err = svc.ResolveShare(context.Background(), link.Token+"x")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRecipeExportPrivateForbiddenToOthers(t *testing.T) {
	repo := newMockRecipeRepo(sampleRecipe("u1", false))
	svc := newRecipeService(t, repo, nil)

	_, err := svc.ExportCard(context.Background(), "u2", "r1")
	require.Error(t, err)
}
