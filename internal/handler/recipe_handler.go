package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tastebook/tastebook-api/internal/models"
	"github.com/tastebook/tastebook-api/internal/service"
	appErrors "github.com/tastebook/tastebook-api/pkg/errors"
	"github.com/tastebook/tastebook-api/pkg/response"
)

// RecipeHandler exposes recipe CRUD, listing and card sharing endpoints.
type RecipeHandler struct {
	service *service.RecipeService
}

// NewRecipeHandler creates a new handler.
func NewRecipeHandler(svc *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{service: svc}
}

// Create godoc
// @Summary Create a recipe
// @Tags Recipes
// @Accept json
// @Produce json
// @Param payload body models.CreateRecipeRequest true "Recipe payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /recipes [post]
func (h *RecipeHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recipe payload"))
		return
	}

	recipe, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, recipe)
}

// List godoc
// @Summary List recipes
// @Description List public recipes with optional filters; pass mine=true for own recipes
// @Tags Recipes
// @Produce json
// @Param meal_type query string false "Meal type filter"
// @Param search query string false "Title search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param mine query bool false "Only own recipes"
// @Success 200 {object} response.Envelope
// @Router /recipes [get]
func (h *RecipeHandler) List(c *gin.Context) {
	filter := models.RecipeFilter{
		Search: c.Query("search"),
	}
	if v := c.Query("meal_type"); v != "" {
		mt := models.MealType(v)
		filter.MealType = &mt
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		filter.PageSize = size
	}
	if c.Query("mine") == "true" {
		claims := claimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		filter.UserID = claims.UserID
	}

	recipes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, recipes, pagination)
}

// Get godoc
// @Summary Get a recipe
// @Tags Recipes
// @Produce json
// @Param id path string true "Recipe ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recipes/{id} [get]
func (h *RecipeHandler) Get(c *gin.Context) {
	viewerID := ""
	if claims := claimsFromContext(c); claims != nil {
		viewerID = claims.UserID
	}

	recipe, err := h.service.Get(c.Request.Context(), viewerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, recipe, nil)
}

// Update godoc
// @Summary Update a recipe
// @Tags Recipes
// @Accept json
// @Produce json
// @Param id path string true "Recipe ID"
// @Param payload body models.UpdateRecipeRequest true "Recipe fields"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recipes/{id} [patch]
func (h *RecipeHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recipe payload"))
		return
	}

	recipe, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, recipe, nil)
}

// Delete godoc
// @Summary Delete a recipe
// @Tags Recipes
// @Param id path string true "Recipe ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recipes/{id} [delete]
func (h *RecipeHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Export godoc
// @Summary Export a recipe card
// @Description Render a printable PDF card and return a signed share link
// @Tags Recipes
// @Produce json
// @Param id path string true "Recipe ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recipes/{id}/export [post]
func (h *RecipeHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	link, err := h.service.ExportCard(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// Shared godoc
// @Summary Download a shared recipe card
// @Description Serves the PDF referenced by a signed share token; no authentication needed
// @Tags Recipes
// @Produce application/pdf
// @Param token path string true "Share token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /recipes/shared/{token} [get]
func (h *RecipeHandler) Shared(c *gin.Context) {
	data, filename, err := h.service.ResolveShare(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
