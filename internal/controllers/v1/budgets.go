package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pocketledger/backend/internal/httputil"
	"github.com/pocketledger/backend/internal/ledger"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
	"github.com/pocketledger/backend/internal/uuid"
)

type BudgetQueryFilter struct {
	Active   *bool               `form:"active"`                                                  // Filter by the active flag
	Period   models.BudgetPeriod `form:"period" example:"MONTHLY"`                                // Filter by period
	Category string              `form:"category" example:"b1c6d4b4-1a07-4e41-9d89-38e2a1b3c0a7"` // Only budgets with an allocation for this category
	From     time.Time           `form:"from" time_format:"2006-01-02" time_utc:"1"`              // Only budgets active on or after this day
	Until    time.Time           `form:"until" time_format:"2006-01-02" time_utc:"1"`             // Only budgets active on or before this day
}

func (f BudgetQueryFilter) model() (store.BudgetFilter, error) {
	category, err := uuid.Parse(f.Category)
	if err != nil {
		return store.BudgetFilter{}, err
	}

	return store.BudgetFilter{
		Active:     f.Active,
		Period:     f.Period,
		CategoryID: category.UUID,
		From:       f.From,
		Until:      f.Until,
	}, nil
}

func (co Controller) RegisterBudgetRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetBudgets)
		r.POST("", co.CreateBudget)
	}

	{
		r.OPTIONS("/:id", httputil.OptionsGetPatchDelete)
		r.GET("/:id", co.GetBudget)
		r.PATCH("/:id", co.UpdateBudget)
		r.DELETE("/:id", co.DeleteBudget)
	}
}

// @Summary		List budgets
// @Description	Returns the budgets of the user with their allocations
// @Tags			Budgets
// @Produce		json
// @Success		200			{object}	ListResponse[models.Budget]
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Param			userId		path		string	true	"ID of the user"
// @Param			active		query		bool	false	"Filter by the active flag"
// @Param			period		query		string	false	"Filter by period"
// @Param			category	query		string	false	"Only budgets with an allocation for this category"
// @Param			from		query		string	false	"Only budgets active on or after this day"
// @Param			until		query		string	false	"Only budgets active on or before this day"
// @Router			/v1/users/{userId}/budgets [get]
func (co Controller) GetBudgets(c *gin.Context) {
	var query BudgetQueryFilter
	if err := httputil.BindQuery(c, &query); err != nil {
		writeError(c, err)
		return
	}

	filter, err := query.model()
	if err != nil {
		writeError(c, err)
		return
	}

	budgets, err := co.budgets.List(c.Request.Context(), userID(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	if budgets == nil {
		budgets = make([]models.Budget, 0)
	}
	c.JSON(http.StatusOK, ListResponse[models.Budget]{Data: budgets})
}

// @Summary		Create budget
// @Description	Creates a budget. The spending of the allocations is calculated from the existing transactions.
// @Tags			Budgets
// @Produce		json
// @Success		201		{object}	Response[models.Budget]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string				true	"ID of the user"
// @Param			budget	body		store.BudgetCreate	true	"Budget"
// @Router			/v1/users/{userId}/budgets [post]
func (co Controller) CreateBudget(c *gin.Context) {
	var in store.BudgetCreate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	created, err := co.budgets.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}

	budget, err := co.reconcileBudget(c, created)
	respond(c, http.StatusCreated, budget, err)
}

// @Summary		Get budget
// @Description	Returns a specific budget with its allocations
// @Tags			Budgets
// @Produce		json
// @Success		200		{object}	Response[models.Budget]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Param			id		path		string	true	"ID of the budget"
// @Router			/v1/users/{userId}/budgets/{id} [get]
func (co Controller) GetBudget(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	budget, err := co.budgets.Get(c.Request.Context(), userID(c), uri.ID.UUID)
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusOK, budget, nil)
}

// @Summary		Update budget
// @Description	Updates a budget. Only values to be updated need to be specified.
// @Description	An allocation set to null is removed.
// @Tags			Budgets
// @Produce		json
// @Success		200		{object}	Response[models.Budget]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string				true	"ID of the user"
// @Param			id		path		string				true	"ID of the budget"
// @Param			budget	body		store.BudgetUpdate	true	"Budget"
// @Router			/v1/users/{userId}/budgets/{id} [patch]
func (co Controller) UpdateBudget(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	var in store.BudgetUpdate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	updated, err := co.budgets.Update(c.Request.Context(), userID(c), uri.ID.UUID, in)
	if err != nil {
		writeError(c, err)
		return
	}

	budget, err := co.reconcileBudget(c, updated)
	respond(c, http.StatusOK, budget, err)
}

// @Summary		Delete budget
// @Description	Deletes a budget and its allocations
// @Tags			Budgets
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Param			id		path		string	true	"ID of the budget"
// @Router			/v1/users/{userId}/budgets/{id} [delete]
func (co Controller) DeleteBudget(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	if err := co.budgets.Delete(c.Request.Context(), userID(c), uri.ID.UUID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// reconcileBudget derives the spending of the budget's allocations. When that
// fails, the budget is returned as stored with an ErrConsistencyFailure.
func (co Controller) reconcileBudget(c *gin.Context, b models.Budget) (models.Budget, error) {
	reconciled, err := co.Engine.ReconcileBudget(c.Request.Context(), userID(c), b.ID)
	if err != nil {
		return b, errors.Join(ledger.ErrConsistencyFailure, err)
	}
	return reconciled, nil
}
