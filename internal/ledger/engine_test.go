package ledger_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/budget"
	"github.com/pocketledger/backend/internal/ledger"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func (suite *TestSuiteStandard) TestCreateRent() {
	in := suite.expense(suite.checking, suite.housing, "200")
	in.Description = "rent"

	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, in)
	suite.Require().Nil(err)

	suite.Assert().NotEqual(uuid.Nil, transaction.ID)
	suite.Assert().Equal("Checking", transaction.AccountName)
	suite.Assert().Equal("Housing", transaction.CategoryName)
	suite.Assert().True(transaction.IsActive)

	suite.assertBalance(suite.checking.ID, "300")
	suite.assertSpent("200")
	suite.Assert().Equal(int64(1), suite.transactionCount())
	suite.Assert().True(decimal.NewFromInt(200).Equal(suite.monthlySpending(suite.housing.ID, "2024-01")))

	account, err := store.NewAccounts(models.DB).Get(suite.ctx, suite.user.ID, suite.checking.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(int64(1), account.Stats.PendingTransactions)
	suite.Assert().Equal(map[string]int64{"2024-01": 1}, account.Stats.MonthlyTransactionCount)
	suite.Assert().NotNil(account.Stats.LastSync)

	found, err := store.NewTransactions(models.DB).Get(suite.ctx, suite.user.ID, transaction.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal("rent", found.Description)
}

func (suite *TestSuiteStandard) TestCreateInsufficientFunds() {
	_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "500.01"))
	suite.Assert().ErrorIs(err, ledger.ErrInsufficientFunds)

	suite.assertBalance(suite.checking.ID, "500")
	suite.assertSpent("0")
	suite.Assert().Zero(suite.transactionCount())

	transactions, total, err := store.NewTransactions(models.DB).List(suite.ctx, suite.user.ID, store.TransactionFilter{IncludeInactive: true})
	suite.Require().Nil(err)
	suite.Assert().Zero(total)
	suite.Assert().Empty(transactions)

	// The whole balance can be spent
	_, err = suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "500"))
	suite.Assert().Nil(err)
	suite.assertBalance(suite.checking.ID, "0")
}

func (suite *TestSuiteStandard) TestCreateCreditCard() {
	card := suite.createAccount("Card", models.AccountTypeCreditCard, "-100")

	_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(card, suite.housing, "5000"))
	suite.Require().Nil(err)
	suite.assertBalance(card.ID, "-5100")
}

func (suite *TestSuiteStandard) TestIncomeIsNotChecked() {
	in := suite.expense(suite.checking, suite.housing, "10000")
	in.Type = models.TransactionTypeIncome

	_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, in)
	suite.Require().Nil(err)
	suite.assertBalance(suite.checking.ID, "10500")

	// Income does not count as spending for budgets
	suite.assertSpent("0")
}

func (suite *TestSuiteStandard) TestAllocationThresholds() {
	suite.checking = suite.createAccount("Big", models.AccountTypeChecking, "1000")

	for i := 0; i < 3; i++ {
		_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "100"))
		suite.Require().Nil(err)
	}

	allocation := suite.allocation()
	suite.Assert().True(decimal.NewFromInt(300).Equal(allocation.Spent))
	suite.Assert().True(allocation.Remaining.IsZero())
	suite.Assert().Equal(models.AllocationStatusWarning, allocation.Status)

	_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "1"))
	suite.Require().Nil(err)

	allocation = suite.allocation()
	suite.Assert().Equal(models.AllocationStatusExceeded, allocation.Status)
	suite.Assert().True(decimal.NewFromInt(-1).Equal(allocation.Remaining))

	b, err := store.NewBudgets(models.DB).Get(suite.ctx, suite.user.ID, suite.budget.ID)
	suite.Require().Nil(err)
	suite.Assert().True(decimal.NewFromInt(301).Equal(b.Stats.TotalSpent))
	suite.Assert().True(b.Stats.ComplianceRate.IsZero())
}

func (suite *TestSuiteStandard) TestTransactionOutsideBudgetWindow() {
	in := suite.expense(suite.checking, suite.housing, "50")
	in.TransactionDate = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, in)
	suite.Require().Nil(err)
	suite.assertSpent("0")
}

func (suite *TestSuiteStandard) TestCreateThenDeleteIsInverse() {
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "123.45"))
	suite.Require().Nil(err)
	suite.assertBalance(suite.checking.ID, "376.55")
	suite.assertSpent("123.45")

	suite.Require().Nil(suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, suite.checking.ID, transaction.ID))

	suite.assertBalance(suite.checking.ID, "500")
	suite.assertSpent("0")
	suite.Assert().Zero(suite.transactionCount())
	suite.Assert().True(suite.monthlySpending(suite.housing.ID, "2024-01").IsZero())

	account, err := store.NewAccounts(models.DB).Get(suite.ctx, suite.user.ID, suite.checking.ID)
	suite.Require().Nil(err)
	suite.Assert().Zero(account.Stats.PendingTransactions)
	suite.Assert().Empty(account.Stats.MonthlyTransactionCount)

	// The transaction is soft-deleted and cannot be deleted again
	var deleted models.Transaction
	suite.Require().Nil(models.DB.Unscoped().First(&deleted, "id = ?", transaction.ID).Error)
	suite.Assert().False(deleted.IsActive)

	err = suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, suite.checking.ID, transaction.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{})
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestDeleteWrongAccount() {
	other := suite.createAccount("Cash", models.AccountTypeCash, "0")
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "10"))
	suite.Require().Nil(err)

	err = suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, other.ID, transaction.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
	suite.assertBalance(suite.checking.ID, "490")
}

func (suite *TestSuiteStandard) TestUpdateMovesAccount() {
	savings := suite.createAccount("Savings", models.AccountTypeSavings, "1000")

	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "200"))
	suite.Require().Nil(err)

	updated, err := suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{AccountID: &savings.ID})
	suite.Require().Nil(err)
	suite.Assert().Equal("Savings", updated.AccountName)

	suite.assertBalance(suite.checking.ID, "500")
	suite.assertBalance(savings.ID, "800")
	suite.assertSpent("200")

	checking, err := store.NewAccounts(models.DB).Get(suite.ctx, suite.user.ID, suite.checking.ID)
	suite.Require().Nil(err)
	suite.Assert().Zero(checking.Stats.PendingTransactions)

	moved, err := store.NewAccounts(models.DB).Get(suite.ctx, suite.user.ID, savings.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(int64(1), moved.Stats.PendingTransactions)
	suite.Assert().Equal(map[string]int64{"2024-01": 1}, moved.Stats.MonthlyTransactionCount)

	// The transaction now belongs to the new account
	suite.Require().Nil(suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, savings.ID, transaction.ID))
	suite.assertBalance(savings.ID, "1000")
}

func (suite *TestSuiteStandard) TestUpdateTypeAndAmount() {
	in := suite.expense(suite.checking, suite.housing, "100")
	in.Type = models.TransactionTypeIncome

	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, in)
	suite.Require().Nil(err)
	suite.assertBalance(suite.checking.ID, "600")
	suite.assertSpent("0")

	expense := models.TransactionTypeExpense
	amount := decimal.NewFromInt(150)
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Type: &expense, Amount: &amount})
	suite.Require().Nil(err)

	suite.assertBalance(suite.checking.ID, "350")
	suite.assertSpent("150")
	suite.Assert().Equal(int64(1), suite.transactionCount())
}

func (suite *TestSuiteStandard) TestUpdateCategory() {
	insurance := suite.createCategory("Insurance")
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "80"))
	suite.Require().Nil(err)
	suite.assertSpent("80")

	updated, err := suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{CategoryID: &insurance.ID})
	suite.Require().Nil(err)
	suite.Assert().Equal("Insurance", updated.CategoryName)

	suite.assertSpent("0")
	suite.assertBalance(suite.checking.ID, "420")
	suite.Assert().True(suite.monthlySpending(suite.housing.ID, "2024-01").IsZero())
	suite.Assert().True(decimal.NewFromInt(80).Equal(suite.monthlySpending(insurance.ID, "2024-01")))
}

func (suite *TestSuiteStandard) TestUpdateDateOutOfWindow() {
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "80"))
	suite.Require().Nil(err)

	march := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{TransactionDate: &march})
	suite.Require().Nil(err)

	suite.assertSpent("0")
	suite.assertBalance(suite.checking.ID, "420")
	suite.Assert().True(decimal.NewFromInt(80).Equal(suite.monthlySpending(suite.housing.ID, "2024-03")))
	suite.Assert().True(suite.monthlySpending(suite.housing.ID, "2024-01").IsZero())
}

func (suite *TestSuiteStandard) TestUpdateInsufficientFunds() {
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "200"))
	suite.Require().Nil(err)

	// 500 is available once the original 200 is reversed
	amount := decimal.NewFromInt(500)
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Amount: &amount})
	suite.Require().Nil(err)
	suite.assertBalance(suite.checking.ID, "0")

	amount = decimal.NewFromInt(501)
	description := "too much"
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Amount: &amount, Description: &description})
	suite.Assert().ErrorIs(err, ledger.ErrInsufficientFunds)

	suite.assertBalance(suite.checking.ID, "0")
	suite.assertSpent("500")
	found, err := store.NewTransactions(models.DB).Get(suite.ctx, suite.user.ID, transaction.ID)
	suite.Require().Nil(err)
	suite.Assert().True(decimal.NewFromInt(500).Equal(found.Amount))
	suite.Assert().Empty(found.Description)
}

func (suite *TestSuiteStandard) TestUpdateOnNegativeBalance() {
	income := suite.expense(suite.checking, suite.housing, "100")
	income.Type = models.TransactionTypeIncome
	paycheck, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, income)
	suite.Require().Nil(err)

	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "550"))
	suite.Require().Nil(err)

	suite.Require().Nil(suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, suite.checking.ID, paycheck.ID))
	suite.assertBalance(suite.checking.ID, "-50")

	// Category and date changes leave the balance alone and are not checked
	food := suite.createCategory("Food")
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{CategoryID: &food.ID})
	suite.Require().Nil(err)

	date := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{TransactionDate: &date})
	suite.Require().Nil(err)

	suite.assertBalance(suite.checking.ID, "-50")
	suite.Assert().True(decimal.NewFromInt(550).Equal(suite.monthlySpending(food.ID, "2024-01")))

	amount := decimal.NewFromInt(551)
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Amount: &amount})
	suite.Assert().ErrorIs(err, ledger.ErrInsufficientFunds)
	suite.assertBalance(suite.checking.ID, "-50")
}

// interleave runs fn once, right after the next query on the transactions table.
func (suite *TestSuiteStandard) interleave(fn func()) {
	armed := true
	err := models.DB.Callback().Query().After("gorm:query").Register("test:interleave", func(db *gorm.DB) {
		if !armed || db.Statement.Table != "transactions" {
			return
		}
		armed = false
		fn()
	})
	suite.Require().Nil(err)
}

func (suite *TestSuiteStandard) TestUpdateDeletedInBetween() {
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "100"))
	suite.Require().Nil(err)

	suite.interleave(func() {
		suite.Require().Nil(suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, suite.checking.ID, transaction.ID))
	})

	amount := decimal.NewFromInt(50)
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Amount: &amount})
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	// The delete wins
	suite.assertBalance(suite.checking.ID, "500")
	suite.assertSpent("0")
	suite.Assert().Zero(suite.transactionCount())

	_, err = store.NewTransactions(models.DB).Get(suite.ctx, suite.user.ID, transaction.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestUpdateUpdatedInBetween() {
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "100"))
	suite.Require().Nil(err)

	suite.interleave(func() {
		amount := decimal.NewFromInt(70)
		_, err := suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Amount: &amount})
		suite.Require().Nil(err)
	})

	amount := decimal.NewFromInt(50)
	_, err = suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Amount: &amount})
	suite.Assert().ErrorIs(err, ledger.ErrConflict)

	suite.assertBalance(suite.checking.ID, "430")
	suite.assertSpent("70")

	found, err := store.NewTransactions(models.DB).Get(suite.ctx, suite.user.ID, transaction.ID)
	suite.Require().Nil(err)
	suite.Assert().True(decimal.NewFromInt(70).Equal(found.Amount))
}

func (suite *TestSuiteStandard) TestDeleteUpdatedInBetween() {
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "100"))
	suite.Require().Nil(err)

	suite.interleave(func() {
		amount := decimal.NewFromInt(70)
		_, err := suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Amount: &amount})
		suite.Require().Nil(err)
	})

	err = suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, suite.checking.ID, transaction.ID)
	suite.Assert().ErrorIs(err, ledger.ErrConflict)
	suite.assertBalance(suite.checking.ID, "430")

	// A fresh attempt reverses the current amount
	suite.Require().Nil(suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, suite.checking.ID, transaction.ID))
	suite.assertBalance(suite.checking.ID, "500")
}

func (suite *TestSuiteStandard) TestUpdateDescriptionKeepsNames() {
	transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "10"))
	suite.Require().Nil(err)

	name := "Main account"
	_, err = store.NewAccounts(models.DB).Update(suite.ctx, suite.user.ID, suite.checking.ID, store.AccountUpdate{Name: &name})
	suite.Require().Nil(err)

	description := "coffee"
	updated, err := suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, transaction.ID, ledger.TransactionUpdate{Description: &description})
	suite.Require().Nil(err)
	suite.Assert().Equal("coffee", updated.Description)
	suite.Assert().Equal("Checking", updated.AccountName)
	suite.assertBalance(suite.checking.ID, "490")

	changed, err := suite.engine.RefreshNames(suite.ctx, suite.user.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(int64(1), changed)

	found, err := store.NewTransactions(models.DB).Get(suite.ctx, suite.user.ID, transaction.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal("Main account", found.AccountName)
}

func (suite *TestSuiteStandard) TestValidation() {
	inactive := false
	archived, err := store.NewCategories(models.DB).Create(suite.ctx, suite.user.ID, store.CategoryCreate{Name: "Archived", Type: models.TransactionTypeExpense, IsActive: &inactive})
	suite.Require().Nil(err)

	negative := suite.expense(suite.checking, suite.housing, "-1")
	noDate := suite.expense(suite.checking, suite.housing, "1")
	noDate.TransactionDate = time.Time{}
	badType := suite.expense(suite.checking, suite.housing, "1")
	badType.Type = "TRANSFER"
	pattern := suite.expense(suite.checking, suite.housing, "1")
	pattern.RecurringPattern = "monthly"

	tests := []struct {
		name string
		in   ledger.TransactionInput
		err  error
	}{
		{"Negative amount", negative, models.ErrValidation},
		{"No date", noDate, models.ErrValidation},
		{"Invalid type", badType, models.ErrValidation},
		{"Pattern without recurrence", pattern, models.ErrValidation},
		{"Inactive category", suite.expense(suite.checking, archived, "1"), models.ErrResourceNotFound},
		{"Unknown account", suite.expense(models.Account{DefaultModel: models.DefaultModel{ID: uuid.New()}}, suite.housing, "1"), models.ErrResourceNotFound},
		{"Unknown category", suite.expense(suite.checking, models.Category{DefaultModel: models.DefaultModel{ID: uuid.New()}}, "1"), models.ErrResourceNotFound},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, tt.in)
			suite.Assert().ErrorIs(err, tt.err)
		})
	}

	// Another user's account is not found
	other, err := store.NewUsers(models.DB).Create(suite.ctx, "Sam", "sam@example.com")
	suite.Require().Nil(err)
	_, err = suite.engine.CreateTransaction(suite.ctx, other.ID, suite.expense(suite.checking, suite.housing, "1"))
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	suite.assertBalance(suite.checking.ID, "500")
	suite.Assert().Zero(suite.transactionCount())
}

func (suite *TestSuiteStandard) TestBalanceMatchesActiveTransactions() {
	savings := suite.createAccount("Savings", models.AccountTypeSavings, "250")
	food := suite.createCategory("Food")

	income := suite.expense(suite.checking, food, "1000")
	income.Type = models.TransactionTypeIncome

	inputs := []ledger.TransactionInput{
		income,
		suite.expense(suite.checking, suite.housing, "120.10"),
		suite.expense(suite.checking, food, "33.33"),
		suite.expense(savings, food, "50"),
		suite.expense(suite.checking, suite.housing, "7.77"),
	}

	var created []models.Transaction
	for _, in := range inputs {
		transaction, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, in)
		suite.Require().Nil(err)
		created = append(created, transaction)
	}

	amount := decimal.RequireFromString("20.02")
	_, err := suite.engine.UpdateTransaction(suite.ctx, suite.user.ID, created[2].ID, ledger.TransactionUpdate{Amount: &amount, AccountID: &savings.ID})
	suite.Require().Nil(err)
	suite.Require().Nil(suite.engine.DeleteTransaction(suite.ctx, suite.user.ID, suite.checking.ID, created[4].ID))

	for _, account := range []models.Account{suite.checking, savings} {
		transactions, _, err := store.NewTransactions(models.DB).List(suite.ctx, suite.user.ID, store.TransactionFilter{AccountIDs: []uuid.UUID{account.ID}})
		suite.Require().Nil(err)

		want := account.Balance
		for _, t := range transactions {
			want = want.Add(t.Signed())
		}
		suite.assertBalance(account.ID, want.String())
	}

	suite.assertBalance(suite.checking.ID, "1379.9")
	suite.assertBalance(savings.ID, "179.98")
	suite.assertSpent("120.1")
	suite.Assert().Equal(int64(4), suite.transactionCount())
}

func (suite *TestSuiteStandard) TestReconcileRepairsDrift() {
	_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "100"))
	suite.Require().Nil(err)

	// Simulate drift from a lost reconciliation
	suite.Require().Nil(models.DB.Model(&models.BudgetAllocation{}).Where("budget_id = ?", suite.budget.ID).Update("spent", decimal.NewFromInt(999)).Error)
	suite.assertSpent("999")

	suite.Require().Nil(suite.engine.ReconcileBudgetsForCategory(suite.ctx, suite.user.ID, suite.housing.ID))
	first := suite.allocation()
	suite.Assert().True(decimal.NewFromInt(100).Equal(first.Spent))
	suite.Assert().Equal(models.AllocationStatusOnTrack, first.Status)

	suite.Require().Nil(suite.engine.ReconcileBudgetsForCategory(suite.ctx, suite.user.ID, suite.housing.ID))
	second := suite.allocation()
	suite.Assert().True(first.Spent.Equal(second.Spent))
	suite.Assert().True(first.Remaining.Equal(second.Remaining))
	suite.Assert().Equal(first.Status, second.Status)

	suite.Require().Nil(models.DB.Model(&models.BudgetAllocation{}).Where("budget_id = ?", suite.budget.ID).Update("spent", decimal.Zero).Error)
	suite.Require().Nil(suite.engine.ReconcileUser(suite.ctx, suite.user.ID))
	suite.assertSpent("100")

	b, err := suite.engine.ReconcileBudget(suite.ctx, suite.user.ID, suite.budget.ID)
	suite.Require().Nil(err)
	suite.Assert().True(decimal.NewFromInt(100).Equal(b.Stats.TotalSpent))
}

func (suite *TestSuiteStandard) TestConsistencyFailure() {
	engine := ledger.New(models.DB,
		ledger.WithStrategy(suite.strategy),
		ledger.WithNotifier(suite.notifier),
		ledger.WithReconciler(failingReconciler{budget.NewReconciler(models.DB, 1)}),
	)

	transaction, err := engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "100"))
	suite.Assert().ErrorIs(err, ledger.ErrConsistencyFailure)
	suite.Assert().ErrorIs(err, errReconcile)

	// The ledger write stands
	suite.Assert().NotEqual(uuid.Nil, transaction.ID)
	suite.assertBalance(suite.checking.ID, "400")
	suite.Assert().Equal(int64(1), suite.transactionCount())
	suite.assertSpent("0")
	suite.Assert().Equal([]uuid.UUID{suite.housing.ID}, suite.notifier.categories)

	// A later reconciliation catches up
	suite.Require().Nil(suite.engine.ReconcileBudgetsForCategory(suite.ctx, suite.user.ID, suite.housing.ID))
	suite.assertSpent("100")

	err = engine.DeleteTransaction(suite.ctx, suite.user.ID, suite.checking.ID, transaction.ID)
	suite.Assert().ErrorIs(err, ledger.ErrConsistencyFailure)
	suite.assertBalance(suite.checking.ID, "500")
}

func (suite *TestSuiteStandard) TestDeleteAccount() {
	food := suite.createCategory("Food")
	savings := suite.createAccount("Savings", models.AccountTypeSavings, "100")

	_, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, suite.housing, "100"))
	suite.Require().Nil(err)
	_, err = suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(suite.checking, food, "50"))
	suite.Require().Nil(err)
	kept, err := suite.engine.CreateTransaction(suite.ctx, suite.user.ID, suite.expense(savings, suite.housing, "25"))
	suite.Require().Nil(err)
	suite.assertSpent("125")

	suite.Require().Nil(suite.engine.DeleteAccount(suite.ctx, suite.user.ID, suite.checking.ID))

	_, err = store.NewAccounts(models.DB).Get(suite.ctx, suite.user.ID, suite.checking.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	transactions, _, err := store.NewTransactions(models.DB).List(suite.ctx, suite.user.ID, store.TransactionFilter{})
	suite.Require().Nil(err)
	suite.Require().Len(transactions, 1)
	suite.Assert().Equal(kept.ID, transactions[0].ID)

	suite.assertSpent("25")
	suite.Assert().Equal(int64(1), suite.transactionCount())
	suite.Assert().True(suite.monthlySpending(food.ID, "2024-01").IsZero())
	suite.Assert().True(decimal.NewFromInt(25).Equal(suite.monthlySpending(suite.housing.ID, "2024-01")))

	suite.Assert().ErrorIs(suite.engine.DeleteAccount(suite.ctx, suite.user.ID, suite.checking.ID), models.ErrResourceNotFound)
}
