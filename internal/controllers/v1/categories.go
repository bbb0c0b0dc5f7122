package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pocketledger/backend/internal/httputil"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
)

type CategoryQueryFilter struct {
	Type   models.TransactionType `form:"type" example:"EXPENSE"` // Filter by type
	Active *bool                  `form:"active"`                 // Filter by the active flag
}

func (co Controller) RegisterCategoryRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetCategories)
		r.POST("", co.CreateCategory)
	}

	{
		r.OPTIONS("/:id", httputil.OptionsGetPatchDelete)
		r.GET("/:id", co.GetCategory)
		r.PATCH("/:id", co.UpdateCategory)
		r.DELETE("/:id", co.DeleteCategory)
		r.OPTIONS("/:id/reconcile", httputil.OptionsPost)
		r.POST("/:id/reconcile", co.ReconcileCategory)
	}
}

// @Summary		List categories
// @Description	Returns the categories of the user ordered by name
// @Tags			Categories
// @Produce		json
// @Success		200		{object}	ListResponse[models.Category]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Param			type	query		string	false	"Filter by type"
// @Param			active	query		bool	false	"Filter by the active flag"
// @Router			/v1/users/{userId}/categories [get]
func (co Controller) GetCategories(c *gin.Context) {
	var filter CategoryQueryFilter
	if err := httputil.BindQuery(c, &filter); err != nil {
		writeError(c, err)
		return
	}

	categories, err := co.categories.List(c.Request.Context(), userID(c), store.CategoryFilter{
		Type:   filter.Type,
		Active: filter.Active,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if categories == nil {
		categories = make([]models.Category, 0)
	}
	c.JSON(http.StatusOK, ListResponse[models.Category]{Data: categories})
}

// @Summary		Create category
// @Description	Creates a category
// @Tags			Categories
// @Produce		json
// @Success		201			{object}	Response[models.Category]
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Param			userId		path		string					true	"ID of the user"
// @Param			category	body		store.CategoryCreate	true	"Category"
// @Router			/v1/users/{userId}/categories [post]
func (co Controller) CreateCategory(c *gin.Context) {
	var in store.CategoryCreate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	category, err := co.categories.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusCreated, category, nil)
}

// @Summary		Get category
// @Description	Returns a specific category with its monthly spending
// @Tags			Categories
// @Produce		json
// @Success		200		{object}	Response[models.Category]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Param			id		path		string	true	"ID of the category"
// @Router			/v1/users/{userId}/categories/{id} [get]
func (co Controller) GetCategory(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	category, err := co.categories.Get(c.Request.Context(), userID(c), uri.ID.UUID)
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusOK, category, nil)
}

// @Summary		Update category
// @Description	Updates a category. Only values to be updated need to be specified.
// @Tags			Categories
// @Produce		json
// @Success		200			{object}	Response[models.Category]
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Param			userId		path		string					true	"ID of the user"
// @Param			id			path		string					true	"ID of the category"
// @Param			category	body		store.CategoryUpdate	true	"Category"
// @Router			/v1/users/{userId}/categories/{id} [patch]
func (co Controller) UpdateCategory(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	var in store.CategoryUpdate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	before, err := co.categories.Get(ctx, userID(c), uri.ID.UUID)
	if err != nil {
		writeError(c, err)
		return
	}

	category, err := co.categories.Update(ctx, userID(c), uri.ID.UUID, in)
	if err != nil {
		writeError(c, err)
		return
	}

	if category.Name != before.Name {
		co.refreshNames(c)
	}

	respond(c, http.StatusOK, category, nil)
}

// @Summary		Delete category
// @Description	Deletes a category. Its transactions are kept.
// @Tags			Categories
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Param			id		path		string	true	"ID of the category"
// @Router			/v1/users/{userId}/categories/{id} [delete]
func (co Controller) DeleteCategory(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	if err := co.categories.Delete(c.Request.Context(), userID(c), uri.ID.UUID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
