package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	google_uuid "github.com/google/uuid"
	"github.com/pocketledger/backend/internal/httputil"
	"github.com/pocketledger/backend/internal/ledger"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
	"github.com/pocketledger/backend/internal/types"
	"github.com/pocketledger/backend/internal/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

const defaultLimit = 50

type TransactionQueryFilter struct {
	Month             string                 `form:"month" example:"2024-01"`                         // Only transactions in this month. Takes precedence over fromDate and untilDate
	FromDate          time.Time              `form:"fromDate" time_format:"2006-01-02" time_utc:"1"`  // Only transactions on or after this day
	UntilDate         time.Time              `form:"untilDate" time_format:"2006-01-02" time_utc:"1"` // Only transactions on or before this day
	Category          []string               `form:"category"`                                        // Filter by category IDs
	Account           []string               `form:"account"`                                         // Filter by account IDs
	Type              models.TransactionType `form:"type" example:"EXPENSE"`                          // Filter by type
	AmountMoreOrEqual string                 `form:"amountMoreOrEqual" example:"10.5"`                // Amount more than or equal to
	AmountLessOrEqual string                 `form:"amountLessOrEqual" example:"100"`                 // Amount less than or equal to
	Recurring         *bool                  `form:"recurring"`                                       // Filter by the recurring flag
	Description       string                 `form:"description" example:"*rent*"`                    // Case insensitive glob on the description
	IncludeInactive   bool                   `form:"includeInactive"`                                 // Include deleted transactions
	Offset            uint                   `form:"offset"`                                          // The offset of the first transaction returned
	Limit             *int                   `form:"limit"`                                           // Maximum number of transactions to return. Defaults to 50, negative values return all
}

func (f TransactionQueryFilter) model() (store.TransactionFilter, int, error) {
	filter := store.TransactionFilter{
		FromDate:        f.FromDate,
		UntilDate:       f.UntilDate,
		Type:            f.Type,
		IsRecurring:     f.Recurring,
		Description:     f.Description,
		IncludeInactive: f.IncludeInactive,
		Offset:          int(f.Offset),
		Limit:           defaultLimit,
	}

	if f.Limit != nil {
		filter.Limit = max(*f.Limit, 0)
	}

	if f.Month != "" {
		month, err := types.ParseMonth(f.Month)
		if err != nil {
			return store.TransactionFilter{}, 0, models.ValidationError{Field: "month", Reason: "must be in YYYY-MM format"}
		}
		filter.FromDate = time.Time(month)
		filter.UntilDate = time.Time(month.AddDate(0, 1)).AddDate(0, 0, -1)
	}

	var err error
	if filter.CategoryIDs, err = parseIDs(f.Category); err != nil {
		return store.TransactionFilter{}, 0, err
	}
	if filter.AccountIDs, err = parseIDs(f.Account); err != nil {
		return store.TransactionFilter{}, 0, err
	}

	for _, bound := range []struct {
		value  string
		field  string
		target *decimal.NullDecimal
	}{
		{f.AmountMoreOrEqual, "amountMoreOrEqual", &filter.AmountMoreOrEqual},
		{f.AmountLessOrEqual, "amountLessOrEqual", &filter.AmountLessOrEqual},
	} {
		if bound.value == "" {
			continue
		}

		d, err := decimal.NewFromString(bound.value)
		if err != nil {
			return store.TransactionFilter{}, 0, models.ValidationError{Field: bound.field, Reason: "must be a number"}
		}
		*bound.target = decimal.NewNullDecimal(d)
	}

	return filter, filter.Limit, nil
}

// parseIDs parses and deduplicates a list of IDs.
func parseIDs(values []string) ([]google_uuid.UUID, error) {
	var ids []google_uuid.UUID
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}

		if id != uuid.Nil && !slices.Contains(ids, id.UUID) {
			ids = append(ids, id.UUID)
		}
	}
	return ids, nil
}

func (co Controller) RegisterTransactionRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetTransactions)
		r.POST("", co.CreateTransaction)
	}

	{
		r.OPTIONS("/:id", httputil.OptionsGetPatch)
		r.GET("/:id", co.GetTransaction)
		r.PATCH("/:id", co.UpdateTransaction)
	}
}

// @Summary		List transactions
// @Description	Returns the transactions of the user, newest first
// @Tags			Transactions
// @Produce		json
// @Success		200					{object}	ListResponse[models.Transaction]
// @Failure		400					{object}	httpError
// @Failure		404					{object}	httpError
// @Param			userId				path		string		true	"ID of the user"
// @Param			month				query		string		false	"Only transactions in this month"
// @Param			fromDate			query		string		false	"Only transactions on or after this day"
// @Param			untilDate			query		string		false	"Only transactions on or before this day"
// @Param			category			query		[]string	false	"Filter by category IDs"
// @Param			account				query		[]string	false	"Filter by account IDs"
// @Param			type				query		string		false	"Filter by type"
// @Param			amountMoreOrEqual	query		string		false	"Amount more than or equal to"
// @Param			amountLessOrEqual	query		string		false	"Amount less than or equal to"
// @Param			recurring			query		bool		false	"Filter by the recurring flag"
// @Param			description			query		string		false	"Case insensitive glob on the description"
// @Param			includeInactive		query		bool		false	"Include deleted transactions"
// @Param			offset				query		uint		false	"The offset of the first transaction returned. Defaults to 0."
// @Param			limit				query		int			false	"Maximum number of transactions to return. Defaults to 50."
// @Router			/v1/users/{userId}/transactions [get]
func (co Controller) GetTransactions(c *gin.Context) {
	var query TransactionQueryFilter
	if err := httputil.BindQuery(c, &query); err != nil {
		writeError(c, err)
		return
	}

	filter, limit, err := query.model()
	if err != nil {
		writeError(c, err)
		return
	}

	transactions, total, err := co.transactions.List(c.Request.Context(), userID(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	if transactions == nil {
		transactions = make([]models.Transaction, 0)
	}

	c.JSON(http.StatusOK, ListResponse[models.Transaction]{
		Data: transactions,
		Pagination: &Pagination{
			Count:  len(transactions),
			Offset: filter.Offset,
			Limit:  limit,
			Total:  total,
		},
	})
}

// @Summary		Create transaction
// @Description	Records a transaction and updates the balance of its account, the spending of its category and the affected budgets
// @Tags			Transactions
// @Produce		json
// @Success		201			{object}	Response[models.Transaction]
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Failure		422			{object}	httpError
// @Failure		500			{object}	httpError
// @Param			userId		path		string					true	"ID of the user"
// @Param			transaction	body		ledger.TransactionInput	true	"Transaction"
// @Router			/v1/users/{userId}/transactions [post]
func (co Controller) CreateTransaction(c *gin.Context) {
	var in ledger.TransactionInput
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	t, err := co.Engine.CreateTransaction(c.Request.Context(), userID(c), in)
	if err != nil && !consistencyFailure(err) {
		writeError(c, err)
		return
	}

	respond(c, http.StatusCreated, t, err)
}

// @Summary		Get transaction
// @Description	Returns a specific transaction
// @Tags			Transactions
// @Produce		json
// @Success		200		{object}	Response[models.Transaction]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Param			id		path		string	true	"ID of the transaction"
// @Router			/v1/users/{userId}/transactions/{id} [get]
func (co Controller) GetTransaction(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	t, err := co.transactions.Get(c.Request.Context(), userID(c), uri.ID.UUID)
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusOK, t, nil)
}

// @Summary		Update transaction
// @Description	Updates a transaction. Only values to be updated need to be specified.
// @Tags			Transactions
// @Produce		json
// @Success		200			{object}	Response[models.Transaction]
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Failure		409			{object}	httpError
// @Failure		422			{object}	httpError
// @Failure		500			{object}	httpError
// @Param			userId		path		string						true	"ID of the user"
// @Param			id			path		string						true	"ID of the transaction"
// @Param			transaction	body		ledger.TransactionUpdate	true	"Transaction"
// @Router			/v1/users/{userId}/transactions/{id} [patch]
func (co Controller) UpdateTransaction(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	var in ledger.TransactionUpdate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	t, err := co.Engine.UpdateTransaction(c.Request.Context(), userID(c), uri.ID.UUID, in)
	if err != nil && !consistencyFailure(err) {
		writeError(c, err)
		return
	}

	respond(c, http.StatusOK, t, err)
}

// @Summary		Delete transaction
// @Description	Deletes a transaction of an account and reverses all of its effects
// @Tags			Transactions
// @Success		204
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Failure		409			{object}	httpError
// @Failure		500			{object}	httpError
// @Param			userId		path		string	true	"ID of the user"
// @Param			accountId	path		string	true	"ID of the account"
// @Param			id			path		string	true	"ID of the transaction"
// @Router			/v1/users/{userId}/accounts/{accountId}/transactions/{id} [delete]
func (co Controller) DeleteTransaction(c *gin.Context) {
	var uri URIAccountTransaction
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		return
	}

	err := co.Engine.DeleteTransaction(c.Request.Context(), userID(c), uri.AccountID.UUID, uri.ID.UUID)
	if err != nil && !consistencyFailure(err) {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
