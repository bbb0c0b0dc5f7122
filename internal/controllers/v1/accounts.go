package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pocketledger/backend/internal/httputil"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
	"github.com/rs/zerolog/log"
)

type AccountQueryFilter struct {
	Type            models.AccountType `form:"accountType" example:"CHECKING"` // Filter by account type
	IncludeInactive bool               `form:"includeInactive"`                // Include deleted accounts
}

func (co Controller) RegisterAccountRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetAccounts)
		r.POST("", co.CreateAccount)
	}

	{
		r.OPTIONS("/:accountId", httputil.OptionsGetPatchDelete)
		r.GET("/:accountId", co.GetAccount)
		r.PATCH("/:accountId", co.UpdateAccount)
		r.DELETE("/:accountId", co.DeleteAccount)
		r.DELETE("/:accountId/transactions/:id", co.DeleteTransaction)
	}
}

// @Summary		List accounts
// @Description	Returns the accounts of the user ordered by name
// @Tags			Accounts
// @Produce		json
// @Success		200				{object}	ListResponse[models.Account]
// @Failure		400				{object}	httpError
// @Failure		404				{object}	httpError
// @Param			userId			path		string	true	"ID of the user"
// @Param			accountType		query		string	false	"Filter by account type"
// @Param			includeInactive	query		bool	false	"Include deleted accounts"
// @Router			/v1/users/{userId}/accounts [get]
func (co Controller) GetAccounts(c *gin.Context) {
	var filter AccountQueryFilter
	if err := httputil.BindQuery(c, &filter); err != nil {
		writeError(c, err)
		return
	}

	accounts, err := co.accounts.List(c.Request.Context(), userID(c), store.AccountFilter{
		Type:            filter.Type,
		IncludeInactive: filter.IncludeInactive,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if accounts == nil {
		accounts = make([]models.Account, 0)
	}
	c.JSON(http.StatusOK, ListResponse[models.Account]{Data: accounts})
}

// @Summary		Create account
// @Description	Creates an account with its opening balance
// @Tags			Accounts
// @Produce		json
// @Success		201		{object}	Response[models.Account]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string				true	"ID of the user"
// @Param			account	body		store.AccountCreate	true	"Account"
// @Router			/v1/users/{userId}/accounts [post]
func (co Controller) CreateAccount(c *gin.Context) {
	var in store.AccountCreate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	account, err := co.accounts.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusCreated, account, nil)
}

// @Summary		Get account
// @Description	Returns a specific account
// @Tags			Accounts
// @Produce		json
// @Success		200			{object}	Response[models.Account]
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Param			userId		path		string	true	"ID of the user"
// @Param			accountId	path		string	true	"ID of the account"
// @Router			/v1/users/{userId}/accounts/{accountId} [get]
func (co Controller) GetAccount(c *gin.Context) {
	var uri URIAccount
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	account, err := co.accounts.Get(c.Request.Context(), userID(c), uri.AccountID.UUID)
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusOK, account, nil)
}

// @Summary		Update account
// @Description	Updates an account. Only values to be updated need to be specified.
// @Description	Setting the balance overrides the balance derived from the transactions.
// @Tags			Accounts
// @Produce		json
// @Success		200			{object}	Response[models.Account]
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Param			userId		path		string				true	"ID of the user"
// @Param			accountId	path		string				true	"ID of the account"
// @Param			account		body		store.AccountUpdate	true	"Account"
// @Router			/v1/users/{userId}/accounts/{accountId} [patch]
func (co Controller) UpdateAccount(c *gin.Context) {
	var uri URIAccount
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	var in store.AccountUpdate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	before, err := co.accounts.Get(ctx, userID(c), uri.AccountID.UUID)
	if err != nil {
		writeError(c, err)
		return
	}

	account, err := co.accounts.Update(ctx, userID(c), uri.AccountID.UUID, in)
	if err != nil {
		writeError(c, err)
		return
	}

	if account.Name != before.Name {
		co.refreshNames(c)
	}

	respond(c, http.StatusOK, account, nil)
}

// @Summary		Delete account
// @Description	Deletes an account and all of its transactions
// @Tags			Accounts
// @Success		204
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Failure		500			{object}	httpError
// @Param			userId		path		string	true	"ID of the user"
// @Param			accountId	path		string	true	"ID of the account"
// @Router			/v1/users/{userId}/accounts/{accountId} [delete]
func (co Controller) DeleteAccount(c *gin.Context) {
	var uri URIAccount
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	err := co.Engine.DeleteAccount(c.Request.Context(), userID(c), uri.AccountID.UUID)
	if err != nil && !consistencyFailure(err) {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// refreshNames updates the names stored on the transactions of the user
// after an account or category has been renamed.
func (co Controller) refreshNames(c *gin.Context) {
	if _, err := co.Engine.RefreshNames(c.Request.Context(), userID(c)); err != nil {
		log.Warn().Err(err).Str("userId", userID(c).String()).Msg("could not refresh transaction names")
	}
}
