// Package v1 implements the JSON API that clients use to work with the ledger.
package v1

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	google_uuid "github.com/google/uuid"
	"github.com/pocketledger/backend/internal/httputil"
	"github.com/pocketledger/backend/internal/ledger"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const contextUserID = "userID"

type Controller struct {
	DB     *gorm.DB
	Engine *ledger.Engine

	users        store.Users
	accounts     store.Accounts
	categories   store.Categories
	budgets      store.Budgets
	transactions store.Transactions
}

func New(db *gorm.DB, engine *ledger.Engine) Controller {
	return Controller{
		DB:           db,
		Engine:       engine,
		users:        store.NewUsers(db),
		accounts:     store.NewAccounts(db),
		categories:   store.NewCategories(db),
		budgets:      store.NewBudgets(db),
		transactions: store.NewTransactions(db),
	}
}

// RegisterRoutes registers all v1 routes with the group.
func (co Controller) RegisterRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsGet)
	r.GET("", GetV1)

	co.RegisterUserRoutes(r.Group("/users"))

	user := r.Group("/users/:userId", co.requireUser)
	co.RegisterAccountRoutes(user.Group("/accounts"))
	co.RegisterCategoryRoutes(user.Group("/categories"))
	co.RegisterBudgetRoutes(user.Group("/budgets"))
	co.RegisterTransactionRoutes(user.Group("/transactions"))
	co.RegisterReconcileRoutes(user)
}

type V1Response struct {
	Links V1Links `json:"links"`
}

type V1Links struct {
	Users string `json:"users" example:"https://example.com/api/v1/users"`
}

// @Summary		v1 API
// @Description	Returns general information about the v1 API
// @Tags			General
// @Success		200	{object}	V1Response
// @Router			/v1 [get]
func GetV1(c *gin.Context) {
	c.JSON(http.StatusOK, V1Response{
		Links: V1Links{
			Users: c.GetString(httputil.ContextURL) + "/v1/users",
		},
	})
}

// requireUser aborts with 404 when the user in the path does not exist.
func (co Controller) requireUser(c *gin.Context) {
	var uri URIUser
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, err)
		c.Abort()
		return
	}

	if _, err := co.users.Get(c.Request.Context(), uri.UserID.UUID); err != nil {
		writeError(c, err)
		c.Abort()
		return
	}

	c.Set(contextUserID, uri.UserID.UUID)
	c.Next()
}

func userID(c *gin.Context) google_uuid.UUID {
	return c.MustGet(contextUserID).(google_uuid.UUID)
}

type httpError struct {
	Error string `json:"error" example:"the specified resource ID is not a valid UUID"`
}

// Response is the envelope for single resources.
type Response[T any] struct {
	Data    *T      `json:"data"`
	Error   *string `json:"error,omitempty"`
	Warning *string `json:"warning,omitempty"` // Set when the request succeeded, but dependent data could not be updated yet
}

// ListResponse is the envelope for lists of resources.
type ListResponse[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *string     `json:"error,omitempty"`
}

type Pagination struct {
	Count  int   `json:"count" example:"25"`  // The amount of records returned in this response
	Offset int   `json:"offset" example:"50"` // The offset for the first record returned
	Limit  int   `json:"limit" example:"25"`  // The maximum amount of resources to return for this request
	Total  int64 `json:"total" example:"827"` // The total number of resources matching the query
}

// respond writes data with the given status. A consistency failure is
// reported as a warning next to the data.
func respond[T any](c *gin.Context, code int, data T, err error) {
	r := Response[T]{Data: &data}
	if errors.Is(err, ledger.ErrConsistencyFailure) {
		w := ledger.ErrConsistencyFailure.Error()
		r.Warning = &w
	}
	c.JSON(code, r)
}

func writeError(c *gin.Context, err error) {
	code := status(err)
	if code == http.StatusInternalServerError {
		log.Error().Str("request-id", requestid.Get(c)).Msgf("%T: %v", err, err.Error())
	}

	c.JSON(code, httpError{Error: err.Error()})
}

// status returns the HTTP status for an error.
func status(err error) int {
	switch {
	case errors.Is(err, models.ErrGeneral):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	}

	return http.StatusBadRequest
}

// consistencyFailure reports if err only means that budgets lag behind a
// committed ledger write.
func consistencyFailure(err error) bool {
	return errors.Is(err, ledger.ErrConsistencyFailure)
}
