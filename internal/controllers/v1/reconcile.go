package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pocketledger/backend/internal/httputil"
)

type DenormalizeResponse struct {
	Data DenormalizeResult `json:"data"`
}

type DenormalizeResult struct {
	Transactions int64 `json:"transactions" example:"12"` // Number of transactions whose names were updated
}

func (co Controller) RegisterReconcileRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/reconcile", httputil.OptionsPost)
	r.POST("/reconcile", co.ReconcileUser)
	r.OPTIONS("/denormalize", httputil.OptionsPost)
	r.POST("/denormalize", co.Denormalize)
}

// @Summary		Reconcile all budgets
// @Description	Recalculates the spending of all allocations in the user's active budgets from the transactions
// @Tags			Reconciliation
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Router			/v1/users/{userId}/reconcile [post]
func (co Controller) ReconcileUser(c *gin.Context) {
	if err := co.Engine.ReconcileUser(c.Request.Context(), userID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary		Reconcile budgets of a category
// @Description	Recalculates the spending of the category's allocations in the user's active budgets from the transactions.
// @Description	This is idempotent and can be repeated at any time.
// @Tags			Reconciliation
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Param			id		path		string	true	"ID of the category"
// @Router			/v1/users/{userId}/categories/{id}/reconcile [post]
func (co Controller) ReconcileCategory(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := co.categories.Get(ctx, userID(c), uri.ID.UUID); err != nil {
		writeError(c, err)
		return
	}

	if err := co.Engine.ReconcileBudgetsForCategory(ctx, userID(c), uri.ID.UUID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary		Refresh transaction names
// @Description	Updates the account and category names stored on the user's transactions
// @Tags			Reconciliation
// @Produce		json
// @Success		200		{object}	DenormalizeResponse
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Router			/v1/users/{userId}/denormalize [post]
func (co Controller) Denormalize(c *gin.Context) {
	n, err := co.Engine.RefreshNames(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, DenormalizeResponse{Data: DenormalizeResult{Transactions: n}})
}
