package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tastebook/tastebook-api/internal/models"
	appErrors "github.com/tastebook/tastebook-api/pkg/errors"
	"github.com/tastebook/tastebook-api/pkg/export"
	"github.com/tastebook/tastebook-api/pkg/storage"
)

const (
	recipeCachePrefix  = "recipes:"
	defaultPageSize    = 20
	maxPageSize        = 100
	recipeCardTemplate = "cards/%s.pdf"
)

type recipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe) error
	FindByID(ctx context.Context, id string) (*models.Recipe, error)
	List(ctx context.Context, filter models.RecipeFilter) ([]models.Recipe, int, error)
	Update(ctx context.Context, recipe *models.Recipe) error
	Delete(ctx context.Context, id string) error
}

type recipeCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type recipeAuthorLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RecipeService owns recipe CRUD, listing, and printable card exports.
// Every mutating operation takes the acting user's id from a validated
// access token and enforces ownership before touching storage.
type RecipeService struct {
	recipes   recipeRepository
	users     recipeAuthorLookup
	cache     recipeCache
	exporter  *export.PDFExporter
	storage   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

func NewRecipeService(
	recipes recipeRepository,
	users recipeAuthorLookup,
	cache recipeCache,
	exporter *export.PDFExporter,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &RecipeService{
		recipes:   recipes,
		users:     users,
		cache:     cache,
		exporter:  exporter,
		storage:   store,
		signer:    signer,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// Create stores a new recipe owned by ownerID.
func (s *RecipeService) Create(ctx context.Context, ownerID string, req models.CreateRecipeRequest) (*models.Recipe, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if !models.ValidMealType(req.MealType) {
		return nil, appErrors.WithField(appErrors.ErrValidation, "meal_type", "Select a valid choice.")
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	recipe := &models.Recipe{
		ID:           uuid.NewString(),
		UserID:       ownerID,
		Title:        req.Title,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
		MealType:     models.MealType(req.MealType),
		IsPublic:     isPublic,
	}

	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create recipe")
	}

	s.invalidateListCache(ctx)
	return recipe, nil
}

// Get returns a recipe if it is public or owned by viewerID.
func (s *RecipeService) Get(ctx context.Context, viewerID, id string) (*models.Recipe, error) {
	recipe, err := s.findRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if !recipe.IsPublic && recipe.UserID != viewerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "recipe not found")
	}
	return recipe, nil
}

// List returns recipes matching the filter. Results for public listings are
// served from the read cache when possible.
func (s *RecipeService) List(ctx context.Context, filter models.RecipeFilter) ([]models.Recipe, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	if filter.MealType != nil && !models.ValidMealType(string(*filter.MealType)) {
		return nil, nil, appErrors.WithField(appErrors.ErrValidation, "meal_type", "Select a valid choice.")
	}

	type cachedList struct {
		Recipes    []models.Recipe   `json:"recipes"`
		Pagination models.Pagination `json:"pagination"`
	}

	key := s.listCacheKey(filter)
	if s.cache != nil {
		var cached cachedList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Recipes, &cached.Pagination, nil
		}
	}

	recipes, total, err := s.recipes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recipes")
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedList{Recipes: recipes, Pagination: *pagination}, s.cacheTTL); err != nil {
			s.logger.Debug("recipe list cache write failed", zap.Error(err))
		}
	}
	return recipes, pagination, nil
}

// Update applies the non-nil fields of req to a recipe owned by ownerID.
func (s *RecipeService) Update(ctx context.Context, ownerID, id string, req models.UpdateRecipeRequest) (*models.Recipe, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	recipe, err := s.findRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.UserID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "You do not have permission to perform this action.")
	}

	if req.Title != nil {
		recipe.Title = *req.Title
	}
	if req.Description != nil {
		recipe.Description = *req.Description
	}
	if req.Ingredients != nil {
		recipe.Ingredients = req.Ingredients
	}
	if req.Instructions != nil {
		recipe.Instructions = req.Instructions
	}
	if req.PrepTime != nil {
		recipe.PrepTime = *req.PrepTime
	}
	if req.CookTime != nil {
		recipe.CookTime = *req.CookTime
	}
	if req.Servings != nil {
		recipe.Servings = *req.Servings
	}
	if req.MealType != nil {
		if !models.ValidMealType(*req.MealType) {
			return nil, appErrors.WithField(appErrors.ErrValidation, "meal_type", "Select a valid choice.")
		}
		recipe.MealType = models.MealType(*req.MealType)
	}
	if req.IsPublic != nil {
		recipe.IsPublic = *req.IsPublic
	}

	if err := s.recipes.Update(ctx, recipe); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update recipe")
	}

	s.invalidateListCache(ctx)
	return recipe, nil
}

// Delete removes a recipe owned by ownerID.
func (s *RecipeService) Delete(ctx context.Context, ownerID, id string) error {
	recipe, err := s.findRecipe(ctx, id)
	if err != nil {
		return err
	}
	if recipe.UserID != ownerID {
		return appErrors.Clone(appErrors.ErrForbidden, "You do not have permission to perform this action.")
	}

	if err := s.recipes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete recipe")
	}

	s.invalidateListCache(ctx)
	return nil
}

// ExportCard renders the recipe as a printable PDF card, stores it, and
// returns a signed share link pointing at the stored file.
func (s *RecipeService) ExportCard(ctx context.Context, viewerID, id string) (*models.RecipeShareLink, error) {
	recipe, err := s.Get(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}

	author := ""
	if user, uerr := s.users.FindByID(ctx, recipe.UserID); uerr == nil {
		author = user.Username
	}

	data, err := s.exporter.Render(export.RecipeCard{
		Title:        recipe.Title,
		Author:       author,
		Description:  recipe.Description,
		Ingredients:  recipe.Ingredients,
		Instructions: recipe.Instructions,
		PrepTime:     recipe.PrepTime,
		CookTime:     recipe.CookTime,
		Servings:     recipe.Servings,
		MealType:     string(recipe.MealType),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render recipe card")
	}

	relPath := fmt.Sprintf(recipeCardTemplate, recipe.ID)
	if _, err := s.storage.Save(relPath, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store recipe card")
	}

	token, expiresAt, err := s.signer.Generate(recipe.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign share link")
	}

	return &models.RecipeShareLink{
		RecipeID:  recipe.ID,
		Token:     token,
		URL:       "/recipes/shared/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveShare validates a share token and returns the stored card bytes.
// Share links work without authentication; the signature and embedded expiry
// are the whole access control.
func (s *RecipeService) ResolveShare(ctx context.Context, token string) ([]byte, string, error) {
	recipeID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "share link is invalid or expired")
	}

	data, err := s.storage.Read(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "shared file no longer exists")
	}
	return data, recipeID + ".pdf", nil
}

func (s *RecipeService) findRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	recipe, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipe not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch recipe")
	}
	return recipe, nil
}

func (s *RecipeService) listCacheKey(filter models.RecipeFilter) string {
	mealType := ""
	if filter.MealType != nil {
		mealType = string(*filter.MealType)
	}
	return fmt.Sprintf("%slist:%s:%s:%s:%d:%d", recipeCachePrefix, filter.UserID, mealType, filter.Search, filter.Page, filter.PageSize)
}

func (s *RecipeService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, recipeCachePrefix+"*"); err != nil {
		s.logger.Debug("recipe cache invalidation failed", zap.Error(err))
	}
}
