// Package ledger records transactions and keeps the balances and
// aggregates that derive from them consistent.
//
// Every write to the ledger is committed as one batch together with all
// account, category and user aggregates it affects. Budgets are reconciled
// afterwards in separate batches. A failed reconciliation does not undo the
// ledger write, it is reported with ErrConsistencyFailure and can be
// repaired with ReconcileBudgetsForCategory or ReconcileUser.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/budget"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Reconciler updates budget allocations after ledger writes.
type Reconciler interface {
	ApplyDelta(ctx context.Context, userID uuid.UUID, changes ...budget.Change) error
	Recompute(ctx context.Context, userID, categoryID uuid.UUID) error
	RecomputeBudget(ctx context.Context, userID, budgetID uuid.UUID) (models.Budget, error)
	RecomputeUser(ctx context.Context, userID uuid.UUID) error
}

type Engine struct {
	db           *gorm.DB
	accounts     store.Accounts
	categories   store.Categories
	transactions store.Transactions
	reconciler   Reconciler
	strategy     budget.Strategy
	notifier     Notifier
	now          func() time.Time
}

type Option func(*Engine)

// WithStrategy sets how budgets are reconciled after a ledger write.
func WithStrategy(s budget.Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithNotifier sets who is told about failed reconciliations.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithReconciler(r Reconciler) Option {
	return func(e *Engine) { e.reconciler = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:           db,
		accounts:     store.NewAccounts(db),
		categories:   store.NewCategories(db),
		transactions: store.NewTransactions(db),
		reconciler:   budget.NewReconciler(db, 1),
		strategy:     budget.StrategyRecompute,
		notifier:     logNotifier{},
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// CreateTransaction records a new transaction.
//
// If the transaction was saved but budgets could not be reconciled, the
// transaction is returned together with an error wrapping ErrConsistencyFailure.
func (e *Engine) CreateTransaction(ctx context.Context, userID uuid.UUID, in TransactionInput) (t models.Transaction, err error) {
	defer func() { observe("create", err) }()

	t = in.transaction(userID)
	if err := validate(t); err != nil {
		return models.Transaction{}, err
	}

	account, err := e.accounts.Get(ctx, userID, t.AccountID)
	if err != nil {
		return models.Transaction{}, err
	}

	category, err := e.usableCategory(ctx, userID, t.CategoryID)
	if err != nil {
		return models.Transaction{}, err
	}

	t.AccountName = account.Name
	t.CategoryName = category.Name

	var b store.Batch
	guardFunds(&b, account, t)
	b.Create(&t)
	e.effect(&b, t, 1)
	b.Increment(&models.User{}, userID, "stats_transaction_count", 1)

	if err := b.Commit(ctx, e.db); err != nil {
		return models.Transaction{}, classify(err)
	}

	return t, e.reconcile(ctx, userID, changeOf(t, 1))
}

// UpdateTransaction changes a transaction.
//
// When any field that the aggregates derive from changes, the full effect of
// the original transaction is reversed and the effect of the updated one is
// applied, both in the same batch as the field update. Funds are only
// checked if the account, type or amount change.
//
// If the transaction is deleted before the batch commits, nothing is written
// and a not found error is returned. If it was updated in the meantime, the
// update fails with ErrConflict.
func (e *Engine) UpdateTransaction(ctx context.Context, userID, id uuid.UUID, u TransactionUpdate) (t models.Transaction, err error) {
	defer func() { observe("update", err) }()

	original, err := e.transactions.Get(ctx, userID, id)
	if err != nil {
		return models.Transaction{}, err
	}

	t = u.apply(original)
	if err := validate(t); err != nil {
		return models.Transaction{}, err
	}

	account, err := e.accounts.Get(ctx, userID, t.AccountID)
	if err != nil {
		return models.Transaction{}, err
	}

	// Names are only resolved again for changed references
	if t.AccountID != original.AccountID {
		t.AccountName = account.Name
	}

	if t.CategoryID != original.CategoryID {
		category, err := e.usableCategory(ctx, userID, t.CategoryID)
		if err != nil {
			return models.Transaction{}, err
		}
		t.CategoryName = category.Name
	}

	rebalanced := t.AccountID != original.AccountID ||
		t.Type != original.Type ||
		!t.Amount.Equal(original.Amount)

	moved := rebalanced ||
		t.CategoryID != original.CategoryID ||
		!models.Day(t.TransactionDate).Equal(models.Day(original.TransactionDate))

	var b store.Batch
	unchanged(&b, original)
	if moved {
		e.effect(&b, original, -1)
		if rebalanced {
			guardFunds(&b, account, t)
		}
		e.effect(&b, t, 1)
	}
	b.UpdateFields(&t, transactionFields...)

	if err := b.Commit(ctx, e.db); err != nil {
		return models.Transaction{}, classify(err)
	}

	if !moved {
		return t, nil
	}
	return t, e.reconcile(ctx, userID, append(changeOf(original, -1), changeOf(t, 1)...))
}

// DeleteTransaction soft-deletes a transaction recorded on the account and
// reverses all of its effects.
func (e *Engine) DeleteTransaction(ctx context.Context, userID, accountID, id uuid.UUID) (err error) {
	defer func() { observe("delete", err) }()

	t, err := e.transactions.GetForAccount(ctx, userID, accountID, id)
	if err != nil {
		return err
	}

	var b store.Batch
	unchanged(&b, t)
	e.effect(&b, t, -1)
	b.Increment(&models.User{}, userID, "stats_transaction_count", -1)
	b.Delete(&models.Transaction{}, t.ID)

	if err := b.Commit(ctx, e.db); err != nil {
		return classify(err)
	}

	return e.reconcile(ctx, userID, changeOf(t, -1))
}

// DeleteAccount soft-deletes an account together with all of its active
// transactions. The category and user aggregates of the transactions are
// reversed, the account keeps its last balance and stats.
func (e *Engine) DeleteAccount(ctx context.Context, userID, accountID uuid.UUID) (err error) {
	defer func() { observe("delete_account", err) }()

	if _, err := e.accounts.Get(ctx, userID, accountID); err != nil {
		return err
	}

	transactions, err := e.transactions.ListForAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}

	var (
		b       store.Batch
		changes []budget.Change
	)

	now := e.now()
	for _, t := range transactions {
		b.IncrementCategoryMonth(t.CategoryID, t.Month(), t.Amount.Neg())
		b.Touch(&models.Category{}, t.CategoryID, "stats_last_calculated", now)
		changes = append(changes, changeOf(t, -1)...)
	}

	if len(transactions) > 0 {
		b.Increment(&models.User{}, userID, "stats_transaction_count", -int64(len(transactions)))
		b.Do("delete transactions of account", func(tx *gorm.DB) error {
			return tx.Where("account_id = ?", accountID).Delete(&models.Transaction{}).Error
		})
	}
	b.Delete(&models.Account{}, accountID)

	if err := b.Commit(ctx, e.db); err != nil {
		return classify(err)
	}

	return e.reconcile(ctx, userID, changes)
}

// ReconcileBudgetsForCategory re-derives the spent amount of every allocation
// for the category in the user's active budgets from the transactions.
// It is idempotent and can be re-run at any time.
func (e *Engine) ReconcileBudgetsForCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	if err := e.reconciler.Recompute(ctx, userID, categoryID); err != nil {
		return classify(err)
	}
	return nil
}

// ReconcileUser re-derives every allocation of the user's active budgets.
func (e *Engine) ReconcileUser(ctx context.Context, userID uuid.UUID) error {
	if err := e.reconciler.RecomputeUser(ctx, userID); err != nil {
		return classify(err)
	}
	return nil
}

// ReconcileBudget re-derives all allocations of a single budget and returns it.
func (e *Engine) ReconcileBudget(ctx context.Context, userID, budgetID uuid.UUID) (models.Budget, error) {
	b, err := e.reconciler.RecomputeBudget(ctx, userID, budgetID)
	if err != nil {
		return models.Budget{}, classify(err)
	}
	return b, nil
}

// RefreshNames updates the account and category names stored on the user's
// transactions after renames. It returns the number of changed transactions.
func (e *Engine) RefreshNames(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := e.transactions.RefreshNames(ctx, userID)
	if err != nil {
		return 0, classify(err)
	}

	log.Info().Str("userId", userID.String()).Int64("transactions", n).Msg("refreshed transaction names")
	return n, nil
}

func (e *Engine) usableCategory(ctx context.Context, userID, id uuid.UUID) (models.Category, error) {
	category, err := e.categories.Get(ctx, userID, id)
	if err != nil {
		return models.Category{}, err
	}

	if !category.Usable() {
		return models.Category{}, fmt.Errorf("%w active category matching your query", models.ErrResourceNotFound)
	}
	return category, nil
}

// effect adds the writes that apply (sign 1) or reverse (sign -1) the
// effect of t on its account and category.
func (e *Engine) effect(b *store.Batch, t models.Transaction, sign int64) {
	s := decimal.NewFromInt(sign)
	now := e.now()

	b.IncrementDecimal(&models.Account{}, t.AccountID, "balance", t.Signed().Mul(s))
	b.Increment(&models.Account{}, t.AccountID, "stats_pending_transactions", sign)
	b.IncrementAccountMonth(t.AccountID, t.Month(), sign)
	b.Touch(&models.Account{}, t.AccountID, "stats_last_sync", now)

	b.IncrementCategoryMonth(t.CategoryID, t.Month(), t.Amount.Mul(s))
	b.Touch(&models.Category{}, t.CategoryID, "stats_last_calculated", now)
}

// transactionFields are the columns an update of a transaction writes.
var transactionFields = []string{
	"AccountID", "AccountName", "CategoryID", "CategoryName", "Amount", "Type", "Description",
	"TransactionDate", "IsRecurring", "RecurringPattern", "Metadata", "UpdatedAt",
}

// unchanged fails the batch unless t is still active and has not been
// written since it was read. Effects are reversed from the read copy, they
// must not be reversed twice.
func unchanged(b *store.Batch, t models.Transaction) {
	b.Do("check transaction", func(tx *gorm.DB) error {
		var current models.Transaction
		if err := tx.First(&current, "id = ?", t.ID).Error; err != nil {
			return err
		}

		if !current.UpdatedAt.Equal(t.UpdatedAt) {
			return ErrConflict
		}
		return nil
	})
}

// guardFunds fails the batch if t is an expense that exceeds the balance of a
// non-credit account. The balance is read inside the batch, after all writes
// added before the guard.
func guardFunds(b *store.Batch, account models.Account, t models.Transaction) {
	if t.Type != models.TransactionTypeExpense || account.IsCredit() {
		return
	}

	b.Do("check funds", func(tx *gorm.DB) error {
		balance, err := store.ReadDecimal(tx, &models.Account{}, account.ID, "balance")
		if err != nil {
			return err
		}

		if t.Amount.GreaterThan(balance) {
			return ErrInsufficientFunds
		}
		return nil
	})
}

// changeOf returns the effect of applying (sign 1) or reversing (sign -1) t on budget spending.
func changeOf(t models.Transaction, sign int64) []budget.Change {
	amount := decimal.Zero
	if t.Type == models.TransactionTypeExpense {
		amount = t.Amount.Mul(decimal.NewFromInt(sign))
	}

	return []budget.Change{{CategoryID: t.CategoryID, Date: t.TransactionDate, Amount: amount}}
}

// reconcile updates the budgets after a committed ledger write.
func (e *Engine) reconcile(ctx context.Context, userID uuid.UUID, changes []budget.Change) error {
	if len(changes) == 0 {
		return nil
	}

	// The ledger write has been committed, the caller going away must not
	// leave the budgets behind.
	ctx = context.WithoutCancel(ctx)

	var categories []uuid.UUID
	for _, c := range changes {
		if !slices.Contains(categories, c.CategoryID) {
			categories = append(categories, c.CategoryID)
		}
	}

	var err error
	switch e.strategy {
	case budget.StrategyDelta:
		err = e.reconciler.ApplyDelta(ctx, userID, changes...)
	default:
		var errs []error
		for _, id := range categories {
			errs = append(errs, e.reconciler.Recompute(ctx, userID, id))
		}
		err = errors.Join(errs...)
	}

	if err == nil {
		return nil
	}

	reconciliationFailuresTotal.Inc()
	for _, id := range categories {
		log.Warn().
			Err(err).
			Str("userId", userID.String()).
			Str("categoryId", id.String()).
			Msg("budget reconciliation failed")

		if nerr := e.notifier.RequestReconciliation(ctx, userID, id); nerr != nil {
			log.Error().
				Err(nerr).
				Str("userId", userID.String()).
				Str("categoryId", id.String()).
				Msg("could not request budget reconciliation")
		}
	}

	return errors.Join(ErrConsistencyFailure, err)
}

// classify maps errors of a failed write to the ledger's error taxonomy.
// Errors that are not part of it are logged and replaced with models.ErrGeneral.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, ErrConflict):
		return ErrConflict
	case errors.Is(err, models.ErrResourceNotFound),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrGeneral):
		return err
	}

	log.Error().Err(err).Msg("ledger write failed")
	return models.ErrGeneral
}
