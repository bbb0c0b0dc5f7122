package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/models"
	"github.com/ryanuber/go-glob"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transactions reads transactions. All transaction writes go through the ledger.
type Transactions struct {
	db *gorm.DB
}

func NewTransactions(db *gorm.DB) Transactions {
	return Transactions{db: db}
}

type TransactionFilter struct {
	FromDate          time.Time // Inclusive
	UntilDate         time.Time // Inclusive
	CategoryIDs       []uuid.UUID
	AccountIDs        []uuid.UUID
	Type              models.TransactionType
	AmountMoreOrEqual decimal.NullDecimal
	AmountLessOrEqual decimal.NullDecimal
	IsRecurring       *bool
	Description       string // Glob pattern with "*" wildcards, case insensitive
	IncludeInactive   bool
	Offset            int
	Limit             int // 0 means no limit
}

// Get returns the active transaction of the user with the given ID.
func (s Transactions) Get(ctx context.Context, userID, id uuid.UUID) (models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.WithContext(ctx).First(&transaction, "id = ? AND user_id = ?", id, userID).Error
	return transaction, err
}

// GetForAccount returns the active transaction with the given ID if it is recorded on the account.
func (s Transactions) GetForAccount(ctx context.Context, userID, accountID, id uuid.UUID) (models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.WithContext(ctx).First(&transaction, "id = ? AND user_id = ? AND account_id = ?", id, userID, accountID).Error
	return transaction, err
}

// List returns the matching transactions, newest first, and the total
// number of matches before pagination.
func (s Transactions) List(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]models.Transaction, int64, error) {
	query := func() *gorm.DB {
		return s.filter(s.db.WithContext(ctx), userID, filter)
	}

	var transactions []models.Transaction

	// SQLite has no case insensitive glob, so description patterns are
	// matched after loading and pagination is applied on the result.
	if filter.Description != "" {
		if err := query().Order("transaction_date DESC, created_at DESC").Find(&transactions).Error; err != nil {
			return nil, 0, err
		}

		pattern := strings.ToLower(filter.Description)
		if !strings.Contains(pattern, "*") {
			pattern = "*" + pattern + "*"
		}

		matched := transactions[:0]
		for _, t := range transactions {
			if glob.Glob(pattern, strings.ToLower(t.Description)) {
				matched = append(matched, t)
			}
		}

		return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
	}

	var count int64
	if err := query().Model(&models.Transaction{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	page := query().Order("transaction_date DESC, created_at DESC")
	if filter.Offset > 0 {
		page = page.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}

	if err := page.Find(&transactions).Error; err != nil {
		return nil, 0, err
	}
	return transactions, count, nil
}

// Spent sums the amounts of the active expenses of the user in the category
// dated on a day in [from, until].
func (s Transactions) Spent(ctx context.Context, userID, categoryID uuid.UUID, from, until time.Time) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := s.filter(s.db.WithContext(ctx), userID, TransactionFilter{
		FromDate:    from,
		UntilDate:   until,
		CategoryIDs: []uuid.UUID{categoryID},
		Type:        models.TransactionTypeExpense,
	}).Model(&models.Transaction{}).Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.Sum(decimal.Zero, amounts...), nil
}

// ListForAccount returns all active transactions recorded on the account.
func (s Transactions) ListForAccount(ctx context.Context, userID, accountID uuid.UUID) ([]models.Transaction, error) {
	transactions, _, err := s.List(ctx, userID, TransactionFilter{AccountIDs: []uuid.UUID{accountID}})
	return transactions, err
}

// RefreshNames rewrites the account and category names stored on the active
// transactions of the user to the current names. It returns the number of
// transactions that changed.
func (s Transactions) RefreshNames(ctx context.Context, userID uuid.UUID) (int64, error) {
	accountName := "(SELECT accounts.name FROM accounts WHERE accounts.id = transactions.account_id)"
	categoryName := "(SELECT categories.name FROM categories WHERE categories.id = transactions.category_id)"

	res := s.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Transaction{}).
		Where("user_id = ?", userID).
		Where("(account_name IS NOT "+accountName+" OR category_name IS NOT "+categoryName+")").
		Updates(map[string]any{
			"account_name":  gorm.Expr("COALESCE(" + accountName + ", account_name)"),
			"category_name": gorm.Expr("COALESCE(" + categoryName + ", category_name)"),
		})

	return res.RowsAffected, res.Error
}

func (s Transactions) filter(query *gorm.DB, userID uuid.UUID, f TransactionFilter) *gorm.DB {
	query = query.Where("transactions.user_id = ?", userID)

	if f.IncludeInactive {
		query = query.Unscoped()
	}
	if !f.FromDate.IsZero() {
		query = query.Where("transactions.transaction_date >= ?", dateString(f.FromDate))
	}
	if !f.UntilDate.IsZero() {
		query = query.Where("transactions.transaction_date < ?", dateString(f.UntilDate.AddDate(0, 0, 1)))
	}
	if len(f.CategoryIDs) > 0 {
		query = query.Where("transactions.category_id IN ?", f.CategoryIDs)
	}
	if len(f.AccountIDs) > 0 {
		query = query.Where("transactions.account_id IN ?", f.AccountIDs)
	}
	if f.Type != "" {
		query = query.Where("transactions.type = ?", f.Type)
	}
	if f.AmountMoreOrEqual.Valid {
		query = query.Where("transactions.amount >= ?", f.AmountMoreOrEqual.Decimal)
	}
	if f.AmountLessOrEqual.Valid {
		query = query.Where("transactions.amount <= ?", f.AmountLessOrEqual.Decimal)
	}
	if f.IsRecurring != nil {
		query = query.Where("transactions.is_recurring = ?", *f.IsRecurring)
	}

	return query
}

func paginate[T any](s []T, offset, limit int) []T {
	if offset >= len(s) {
		return []T{}
	}
	s = s[offset:]
	if limit > 0 && limit < len(s) {
		s = s[:limit]
	}
	return s
}

// dateString formats the day of t so that it compares correctly against
// timestamps stored by the SQLite driver.
func dateString(t time.Time) string {
	return models.Day(t).Format(time.DateOnly)
}
