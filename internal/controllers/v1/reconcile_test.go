package v1_test

import (
	"net/http"

	v1 "github.com/pocketledger/backend/internal/controllers/v1"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestReconcileUserRepairsDrift() {
	account := suite.createAccount("Checking", models.AccountTypeChecking, "1000")
	housing := suite.createCategory("Housing")
	food := suite.createCategory("Food")
	b := suite.createBudget(housing, "300")
	suite.createExpense(account, housing, "200", "2024-01-15T00:00:00Z", "rent")
	suite.createExpense(account, food, "20", "2024-01-16T00:00:00Z", "bakery")

	err := models.DB.Model(&models.BudgetAllocation{}).Where("budget_id = ?", b.ID).UpdateColumn("spent", decimal.NewFromInt(999)).Error
	suite.Require().Nil(err)
	suite.Require().True(decimal.NewFromInt(999).Equal(suite.getBudget(b.ID).Categories["main"].Spent))

	suite.must(http.MethodPost, suite.url("/reconcile"), nil, http.StatusNoContent, nil)

	repaired := suite.getBudget(b.ID)
	suite.Assert().True(decimal.NewFromInt(200).Equal(repaired.Categories["main"].Spent))
	suite.Assert().Equal(models.AllocationStatusOnTrack, repaired.Categories["main"].Status)

	// Reconciliation is idempotent
	suite.must(http.MethodPost, suite.url("/reconcile"), nil, http.StatusNoContent, nil)
	suite.Assert().Equal(repaired.Categories["main"].Spent.String(), suite.getBudget(b.ID).Categories["main"].Spent.String())
}

func (suite *TestSuiteStandard) TestReconcileCategory() {
	account := suite.createAccount("Checking", models.AccountTypeChecking, "1000")
	housing := suite.createCategory("Housing")
	b := suite.createBudget(housing, "300")
	suite.createExpense(account, housing, "200", "2024-01-15T00:00:00Z", "rent")

	err := models.DB.Model(&models.BudgetAllocation{}).Where("budget_id = ?", b.ID).UpdateColumn("spent", decimal.Zero).Error
	suite.Require().Nil(err)

	suite.must(http.MethodPost, suite.url("/categories/%s/reconcile", housing.ID), nil, http.StatusNoContent, nil)
	suite.Assert().True(decimal.NewFromInt(200).Equal(suite.getBudget(b.ID).Categories["main"].Spent))

	msg := suite.errorMessage(http.MethodPost, suite.url("/categories/%s/reconcile", account.ID), nil, http.StatusNotFound)
	suite.Assert().Equal("there is no category matching your query", msg)

	suite.errorMessage(http.MethodPost, suite.url("/categories/not-a-category/reconcile"), nil, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestDenormalize() {
	account := suite.createAccount("Checking", models.AccountTypeChecking, "1000")
	housing := suite.createCategory("Housing")
	t := suite.createExpense(account, housing, "200", "2024-01-15T00:00:00Z", "rent")
	suite.createExpense(account, housing, "20", "2024-01-16T00:00:00Z", "plants")

	err := models.DB.Model(&models.Account{}).Where("id = ?", account.ID).UpdateColumn("name", "Main").Error
	suite.Require().Nil(err)

	var transaction v1.Response[models.Transaction]
	suite.must(http.MethodGet, suite.url("/transactions/%s", t.ID), nil, http.StatusOK, &transaction)
	suite.Require().Equal("Checking", transaction.Data.AccountName)

	var r v1.DenormalizeResponse
	suite.must(http.MethodPost, suite.url("/denormalize"), nil, http.StatusOK, &r)
	suite.Assert().Equal(int64(2), r.Data.Transactions)

	suite.must(http.MethodGet, suite.url("/transactions/%s", t.ID), nil, http.StatusOK, &transaction)
	suite.Assert().Equal("Main", transaction.Data.AccountName)

	suite.must(http.MethodPost, suite.url("/denormalize"), nil, http.StatusOK, &r)
	suite.Assert().Equal(int64(0), r.Data.Transactions, "Nothing is left to refresh")
}

func (suite *TestSuiteStandard) TestReconcileUnknownUser() {
	msg := suite.errorMessage(http.MethodPost, "http://example.com/v1/users/7b0f6d6e-0b1f-4f4e-9d6c-2d8c3f0a9e11/reconcile", nil, http.StatusNotFound)
	suite.Assert().Equal("there is no user matching your query", msg)
}
