package v1_test

import (
	"net/http"
	"time"

	"github.com/pocketledger/backend/internal/budget"
	v1 "github.com/pocketledger/backend/internal/controllers/v1"
	"github.com/pocketledger/backend/internal/ledger"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestCreateBudgetDerivesSpent() {
	account := suite.createAccount("Checking", models.AccountTypeChecking, "2000")
	housing := suite.createCategory("Housing")

	suite.createExpense(account, housing, "100", "2023-12-31T00:00:00Z", "before")
	suite.createExpense(account, housing, "150", "2024-01-01T00:00:00Z", "first day")
	suite.createExpense(account, housing, "100", "2024-01-31T23:00:00Z", "last day")
	suite.createExpense(account, housing, "100", "2024-02-01T00:00:00Z", "after")

	b := suite.createBudget(housing, "300")

	suite.Assert().Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), b.EndDate, "The end date defaults to the end of the first period")
	suite.Assert().True(b.IsActive)

	allocation := b.Categories["main"]
	suite.Assert().True(decimal.NewFromInt(250).Equal(allocation.Spent), allocation.Spent.String())
	suite.Assert().True(decimal.NewFromInt(50).Equal(allocation.Remaining))
	suite.Assert().Equal(models.AllocationStatusWarning, allocation.Status)

	suite.Assert().True(decimal.NewFromInt(300).Equal(b.Stats.TotalAllocated))
	suite.Assert().True(decimal.NewFromInt(250).Equal(b.Stats.TotalSpent))
	suite.Assert().True(decimal.NewFromInt(1).Equal(b.Stats.ComplianceRate))
}

func (suite *TestSuiteStandard) TestBudgetStatusFollowsTransactions() {
	account := suite.createAccount("Checking", models.AccountTypeChecking, "2000")
	housing := suite.createCategory("Housing")
	food := suite.createCategory("Food")

	var r v1.Response[models.Budget]
	suite.must(http.MethodPost, suite.url("/budgets"), map[string]any{
		"name":      "January",
		"amount":    "500",
		"period":    models.BudgetPeriodMonthly,
		"startDate": "2024-01-01T00:00:00Z",
		"categories": map[string]any{
			"housing": map[string]any{"categoryId": housing.ID, "amount": "300"},
			"food":    map[string]any{"categoryId": food.ID, "amount": "200"},
		},
	}, http.StatusCreated, &r)
	id := r.Data.ID

	suite.createExpense(account, housing, "350", "2024-01-10T00:00:00Z", "rent")
	suite.createExpense(account, food, "20", "2024-01-11T00:00:00Z", "bakery")

	b := suite.getBudget(id)
	suite.Assert().Equal(models.AllocationStatusExceeded, b.Categories["housing"].Status)
	suite.Assert().True(decimal.NewFromInt(-50).Equal(b.Categories["housing"].Remaining))
	suite.Assert().Equal(models.AllocationStatusOnTrack, b.Categories["food"].Status)
	suite.Assert().True(decimal.NewFromInt(370).Equal(b.Stats.TotalSpent))
	suite.Assert().True(decimal.RequireFromString("0.5").Equal(b.Stats.ComplianceRate))
}

func (suite *TestSuiteStandard) TestCreateBudgetErrors() {
	housing := suite.createCategory("Housing")
	allocation := map[string]any{"main": map[string]any{"categoryId": housing.ID, "amount": "100"}}

	tests := []struct {
		name  string
		body  map[string]any
		error string
	}{
		{"No name", map[string]any{"period": "MONTHLY", "startDate": "2024-01-01T00:00:00Z", "categories": allocation}, "invalid name: must not be empty"},
		{"Unknown period", map[string]any{"name": "January", "period": "HOURLY", "startDate": "2024-01-01T00:00:00Z", "categories": allocation}, "invalid period"},
		{"End before start", map[string]any{"name": "January", "period": "MONTHLY", "startDate": "2024-01-01T00:00:00Z", "endDate": "2023-12-01T00:00:00Z"}, "invalid endDate: must not be before the start date"},
		{"Negative amount", map[string]any{"name": "January", "period": "MONTHLY", "amount": "-5", "startDate": "2024-01-01T00:00:00Z"}, "invalid amount: must not be negative"},
		{"Negative allocation", map[string]any{"name": "January", "period": "MONTHLY", "startDate": "2024-01-01T00:00:00Z", "categories": map[string]any{
			"main": map[string]any{"categoryId": housing.ID, "amount": "-1"},
		}}, "invalid amount: an allocation must not be negative"},
		{"Unknown category", map[string]any{"name": "January", "period": "MONTHLY", "startDate": "2024-01-01T00:00:00Z", "categories": map[string]any{
			"main": map[string]any{"categoryId": suite.user.ID, "amount": "1"},
		}}, "invalid categories.main: the category does not exist"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			msg := suite.errorMessage(http.MethodPost, suite.url("/budgets"), tt.body, http.StatusBadRequest)
			suite.Assert().Contains(msg, tt.error)
		})
	}

	var r v1.ListResponse[models.Budget]
	suite.must(http.MethodGet, suite.url("/budgets"), nil, http.StatusOK, &r)
	suite.Assert().Len(r.Data, 0)
}

func (suite *TestSuiteStandard) TestCreateBudgetConsistencyFailure() {
	account := suite.createAccount("Checking", models.AccountTypeChecking, "2000")
	housing := suite.createCategory("Housing")
	suite.createExpense(account, housing, "100", "2024-01-05T00:00:00Z", "rent")

	suite.setupRouter(ledger.WithReconciler(failingReconciler{budget.NewReconciler(models.DB, 1)}))

	var r v1.Response[models.Budget]
	suite.must(http.MethodPost, suite.url("/budgets"), map[string]any{
		"name":      "January",
		"period":    models.BudgetPeriodMonthly,
		"startDate": "2024-01-01T00:00:00Z",
		"categories": map[string]any{
			"main": map[string]any{"categoryId": housing.ID, "amount": "300"},
		},
	}, http.StatusCreated, &r)

	suite.Require().NotNil(r.Warning)
	suite.Assert().True(r.Data.Categories["main"].Spent.IsZero())
}

func (suite *TestSuiteStandard) TestUpdateBudget() {
	account := suite.createAccount("Checking", models.AccountTypeChecking, "2000")
	housing := suite.createCategory("Housing")
	food := suite.createCategory("Food")
	suite.createExpense(account, food, "40", "2024-01-05T00:00:00Z", "market")
	suite.createExpense(account, food, "60", "2024-02-05T00:00:00Z", "market")

	b := suite.createBudget(housing, "300")

	var r v1.Response[models.Budget]
	suite.must(http.MethodPatch, suite.url("/budgets/%s", b.ID), map[string]any{
		"name": "Q1",
		"categories": map[string]any{
			"main": nil,
			"food": map[string]any{"categoryId": food.ID, "amount": "150"},
		},
	}, http.StatusOK, &r)

	suite.Assert().Equal("Q1", r.Data.Name)
	suite.Require().Len(r.Data.Categories, 1)
	suite.Assert().True(decimal.NewFromInt(40).Equal(r.Data.Categories["food"].Spent))

	// Extending the window takes the February expense into account
	suite.must(http.MethodPatch, suite.url("/budgets/%s", b.ID), map[string]any{
		"endDate": "2024-03-31T00:00:00Z",
	}, http.StatusOK, &r)
	suite.Assert().True(decimal.NewFromInt(100).Equal(r.Data.Categories["food"].Spent))
	suite.Assert().Equal(models.AllocationStatusOnTrack, r.Data.Categories["food"].Status)

	msg := suite.errorMessage(http.MethodPatch, suite.url("/budgets/%s", b.ID), map[string]any{
		"categories": map[string]any{"other": map[string]any{"categoryId": account.ID, "amount": "1"}},
	}, http.StatusBadRequest)
	suite.Assert().Equal("invalid categories.other: the category does not exist", msg)
}

func (suite *TestSuiteStandard) TestListBudgets() {
	housing := suite.createCategory("Housing")
	food := suite.createCategory("Food")

	suite.createBudget(housing, "300")

	for _, body := range []map[string]any{
		{"name": "Week 6", "period": "WEEKLY", "startDate": "2024-02-05T00:00:00Z", "categories": map[string]any{
			"food": map[string]any{"categoryId": food.ID, "amount": "80"},
		}},
		{"name": "2023", "period": "YEARLY", "startDate": "2023-01-01T00:00:00Z", "isActive": false},
	} {
		suite.must(http.MethodPost, suite.url("/budgets"), body, http.StatusCreated, nil)
	}

	tests := []struct {
		name  string
		query string
		names []string
	}{
		{"All", "", []string{"2023", "January", "Week 6"}},
		{"Active", "?active=true", []string{"January", "Week 6"}},
		{"Period", "?period=WEEKLY", []string{"Week 6"}},
		{"Category", "?category=" + housing.ID.String(), []string{"January"}},
		{"From", "?from=2024-01-31", []string{"January", "Week 6"}},
		{"Until", "?until=2024-01-01", []string{"2023", "January"}},
		{"Window", "?from=2024-02-01&until=2024-02-29", []string{"Week 6"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			var r v1.ListResponse[models.Budget]
			suite.must(http.MethodGet, suite.url("/budgets%s", tt.query), nil, http.StatusOK, &r)

			names := make([]string, 0, len(r.Data))
			for _, b := range r.Data {
				names = append(names, b.Name)
			}
			suite.Assert().Equal(tt.names, names)
		})
	}

	suite.errorMessage(http.MethodGet, suite.url("/budgets?category=housing"), nil, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestDeleteBudget() {
	housing := suite.createCategory("Housing")
	b := suite.createBudget(housing, "300")

	suite.must(http.MethodDelete, suite.url("/budgets/%s", b.ID), nil, http.StatusNoContent, nil)

	msg := suite.errorMessage(http.MethodGet, suite.url("/budgets/%s", b.ID), nil, http.StatusNotFound)
	suite.Assert().Equal("there is no budget matching your query", msg)
	suite.errorMessage(http.MethodDelete, suite.url("/budgets/%s", b.ID), nil, http.StatusNotFound)
}
