package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a single income or expense on an account.
//
// AccountName and CategoryName are copies of the names at the time the
// transaction was written. They are not updated when the account or
// category is renamed.
type Transaction struct {
	DefaultModel
	UserID           uuid.UUID         `json:"userId" gorm:"type:uuid;index" example:"4e743e94-6a4b-44d6-aba5-d77c87103ff7"`
	AccountID        uuid.UUID         `json:"accountId" gorm:"type:uuid;index" example:"d0df7a2b-3b2c-4e5a-a1ac-6c0ab5e1d2c1"`
	AccountName      string            `json:"accountName" example:"Checking"`
	CategoryID       uuid.UUID         `json:"categoryId" gorm:"type:uuid;index" example:"b1c6d4b4-1a07-4e41-9d89-38e2a1b3c0a7"`
	CategoryName     string            `json:"categoryName" example:"Groceries"`
	Amount           decimal.Decimal   `json:"amount" gorm:"type:DECIMAL(20,8)" example:"42.50"` // Always positive, the direction is given by the type
	Type             TransactionType   `json:"type" example:"EXPENSE"`
	Description      string            `json:"description" example:"Weekly shopping"`
	TransactionDate  time.Time         `json:"transactionDate" gorm:"index" example:"2024-01-15T00:00:00Z"`
	IsRecurring      bool              `json:"isRecurring" example:"false"`
	RecurringPattern string            `json:"recurringPattern,omitempty" example:"monthly"`
	Metadata         map[string]string `json:"metadata,omitempty" gorm:"serializer:json"`
	IsActive         bool              `json:"isActive" gorm:"-"`
}

func (t *Transaction) AfterFind(tx *gorm.DB) (err error) {
	t.IsActive = t.Active()
	t.TransactionDate = t.TransactionDate.In(time.UTC)
	return t.DefaultModel.AfterFind(tx)
}

func (t *Transaction) BeforeSave(_ *gorm.DB) error {
	t.TransactionDate = t.TransactionDate.In(time.UTC)
	return nil
}

// Signed returns the effect of the transaction on its account balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Month returns the month key of the transaction date.
func (t Transaction) Month() string {
	return types.MonthOf(t.TransactionDate).String()
}
