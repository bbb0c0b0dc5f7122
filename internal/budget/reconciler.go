// Package budget keeps the spent, remaining and status fields of budget
// allocations consistent with the transactions they cover.
//
// An allocation covers the active EXPENSE transactions of the budget's user
// in the allocation's category that are dated on a day within the budget's
// window. Only active budgets are reconciled after ledger writes.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Strategy selects how allocations are updated after a ledger write.
type Strategy string

const (
	// StrategyRecompute re-derives spent from a query over the transactions.
	// It is idempotent and does not lose concurrent updates.
	StrategyRecompute Strategy = "recompute"

	// StrategyDelta adds the change of a single write to spent.
	StrategyDelta Strategy = "delta"
)

// ParseStrategy parses a strategy name. An empty name selects StrategyRecompute.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyRecompute:
		return StrategyRecompute, nil
	case StrategyDelta:
		return StrategyDelta, nil
	}
	return "", fmt.Errorf("unknown reconciliation strategy %q, must be one of %s, %s", s, StrategyRecompute, StrategyDelta)
}

// Change is the effect of a ledger write on the spending of a category.
type Change struct {
	CategoryID uuid.UUID
	Date       time.Time
	Amount     decimal.Decimal // Signed change of spent. Zero for income.
}

// Reconciler updates budget allocations.
//
// Every budget is written in its own batch. A failure for one budget does
// not stop the others, all failures are returned joined.
type Reconciler struct {
	db           *gorm.DB
	budgets      store.Budgets
	transactions store.Transactions
	concurrency  int
}

func NewReconciler(db *gorm.DB, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Reconciler{
		db:           db,
		budgets:      store.NewBudgets(db),
		transactions: store.NewTransactions(db),
		concurrency:  concurrency,
	}
}

// ApplyDelta adds the changes to the matching allocations of the user's active budgets.
func (r *Reconciler) ApplyDelta(ctx context.Context, userID uuid.UUID, changes ...Change) error {
	budgets, err := r.activeBudgets(ctx, userID, uuid.Nil)
	if err != nil {
		return err
	}

	var errs []error
	for _, b := range budgets {
		changed := false
		for i := range b.Allocations {
			a := &b.Allocations[i]
			for _, c := range changes {
				if c.Amount.IsZero() || a.CategoryID != c.CategoryID || !b.Contains(c.Date) {
					continue
				}
				a.Spent = a.Spent.Add(c.Amount)
				changed = true
			}
		}

		if !changed {
			continue
		}

		if err := r.save(ctx, b); err != nil {
			errs = append(errs, fmt.Errorf("budget %s: %w", b.ID, err))
		}
	}

	return errors.Join(errs...)
}

// Recompute re-derives spent for all allocations of the category in the
// user's active budgets. Running it repeatedly without intervening
// transaction changes yields the same state.
func (r *Reconciler) Recompute(ctx context.Context, userID, categoryID uuid.UUID) error {
	budgets, err := r.activeBudgets(ctx, userID, categoryID)
	if err != nil {
		return err
	}

	var errs []error
	for _, b := range budgets {
		if err := r.recompute(ctx, b, func(a models.BudgetAllocation) bool { return a.CategoryID == categoryID }); err != nil {
			errs = append(errs, fmt.Errorf("budget %s: %w", b.ID, err))
		}
	}

	return errors.Join(errs...)
}

// RecomputeBudget re-derives spent for all allocations of one budget,
// regardless of whether it is active.
func (r *Reconciler) RecomputeBudget(ctx context.Context, userID, budgetID uuid.UUID) (models.Budget, error) {
	b, err := r.budgets.Get(ctx, userID, budgetID)
	if err != nil {
		return models.Budget{}, err
	}

	if err := r.recompute(ctx, b, func(models.BudgetAllocation) bool { return true }); err != nil {
		return models.Budget{}, err
	}

	return r.budgets.Get(ctx, userID, budgetID)
}

// RecomputeUser re-derives every allocation of every active budget of the
// user. Budgets are processed concurrently.
func (r *Reconciler) RecomputeUser(ctx context.Context, userID uuid.UUID) error {
	budgets, err := r.activeBudgets(ctx, userID, uuid.Nil)
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, b := range budgets {
		b := b
		g.Go(func() error {
			err := r.recompute(ctx, b, func(models.BudgetAllocation) bool { return true })
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("budget %s: %w", b.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

// Categories returns the IDs of all categories allocated in the user's active budgets.
func (r *Reconciler) Categories(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	budgets, err := r.activeBudgets(ctx, userID, uuid.Nil)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for _, b := range budgets {
		for _, a := range b.Allocations {
			if !slices.Contains(ids, a.CategoryID) {
				ids = append(ids, a.CategoryID)
			}
		}
	}
	return ids, nil
}

func (r *Reconciler) recompute(ctx context.Context, b models.Budget, match func(models.BudgetAllocation) bool) error {
	changed := false
	for i := range b.Allocations {
		a := &b.Allocations[i]
		if !match(*a) {
			continue
		}

		spent, err := r.transactions.Spent(ctx, b.UserID, a.CategoryID, b.StartDate, b.EndDate)
		if err != nil {
			return err
		}
		a.Spent = spent
		changed = true
	}

	if !changed {
		return nil
	}
	return r.save(ctx, b)
}

// save writes the allocations and the derived budget stats in one batch.
func (r *Reconciler) save(ctx context.Context, b models.Budget) error {
	var batch store.Batch
	for i := range b.Allocations {
		batch.Save(&b.Allocations[i])
	}

	b.RefreshStats()
	batch.Update(&models.Budget{}, b.ID, map[string]any{
		"stats_total_allocated": b.Stats.TotalAllocated,
		"stats_total_spent":     b.Stats.TotalSpent,
		"stats_total_remaining": b.Stats.TotalRemaining,
		"stats_compliance_rate": b.Stats.ComplianceRate,
	})

	return batch.Commit(ctx, r.db)
}

func (r *Reconciler) activeBudgets(ctx context.Context, userID, categoryID uuid.UUID) ([]models.Budget, error) {
	active := true
	return r.budgets.List(ctx, userID, store.BudgetFilter{Active: &active, CategoryID: categoryID})
}
