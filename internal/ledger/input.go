package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

// TransactionInput is the data needed to create a transaction.
type TransactionInput struct {
	AccountID        uuid.UUID              `json:"accountId" example:"d0df7a2b-3b2c-4e5a-a1ac-6c0ab5e1d2c1"`
	CategoryID       uuid.UUID              `json:"categoryId" example:"b1c6d4b4-1a07-4e41-9d89-38e2a1b3c0a7"`
	Amount           decimal.Decimal        `json:"amount" example:"42.50"`
	Type             models.TransactionType `json:"type" example:"EXPENSE"`
	Description      string                 `json:"description" example:"Weekly shopping"`
	TransactionDate  time.Time              `json:"transactionDate" example:"2024-01-15T00:00:00Z"`
	IsRecurring      bool                   `json:"isRecurring" example:"false"`
	RecurringPattern string                 `json:"recurringPattern" example:"monthly"`
	Metadata         map[string]string      `json:"metadata"`
}

// TransactionUpdate holds the fields of a transaction to change. Nil fields are kept.
type TransactionUpdate struct {
	AccountID        *uuid.UUID              `json:"accountId" example:"d0df7a2b-3b2c-4e5a-a1ac-6c0ab5e1d2c1"`
	CategoryID       *uuid.UUID              `json:"categoryId" example:"b1c6d4b4-1a07-4e41-9d89-38e2a1b3c0a7"`
	Amount           *decimal.Decimal        `json:"amount" example:"42.50"`
	Type             *models.TransactionType `json:"type" example:"EXPENSE"`
	Description      *string                 `json:"description" example:"Weekly shopping"`
	TransactionDate  *time.Time              `json:"transactionDate" example:"2024-01-15T00:00:00Z"`
	IsRecurring      *bool                   `json:"isRecurring" example:"false"`
	RecurringPattern *string                 `json:"recurringPattern" example:"monthly"`
	Metadata         map[string]string       `json:"metadata"`
}

// validate checks the fields of a transaction that are not references.
func validate(t models.Transaction) error {
	if t.AccountID == uuid.Nil {
		return models.ValidationError{Field: "accountId", Reason: "is required"}
	}

	if t.CategoryID == uuid.Nil {
		return models.ValidationError{Field: "categoryId", Reason: "is required"}
	}

	if t.Amount.IsNegative() {
		return models.ValidationError{Field: "amount", Reason: "must not be negative"}
	}

	if !t.Type.Valid() {
		return models.ValidationError{Field: "type", Reason: "must be INCOME or EXPENSE"}
	}

	if t.TransactionDate.IsZero() {
		return models.ValidationError{Field: "transactionDate", Reason: "is required"}
	}

	if !t.IsRecurring && strings.TrimSpace(t.RecurringPattern) != "" {
		return models.ValidationError{Field: "recurringPattern", Reason: "is only allowed for recurring transactions"}
	}

	return nil
}

func (in TransactionInput) transaction(userID uuid.UUID) models.Transaction {
	return models.Transaction{
		DefaultModel:     models.DefaultModel{ID: uuid.New()},
		UserID:           userID,
		AccountID:        in.AccountID,
		CategoryID:       in.CategoryID,
		Amount:           in.Amount,
		Type:             in.Type,
		Description:      strings.TrimSpace(in.Description),
		TransactionDate:  in.TransactionDate.In(time.UTC),
		IsRecurring:      in.IsRecurring,
		RecurringPattern: strings.TrimSpace(in.RecurringPattern),
		Metadata:         in.Metadata,
		IsActive:         true,
	}
}

// apply returns a copy of t with the update merged in.
func (u TransactionUpdate) apply(t models.Transaction) models.Transaction {
	if u.AccountID != nil {
		t.AccountID = *u.AccountID
	}
	if u.CategoryID != nil {
		t.CategoryID = *u.CategoryID
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Description != nil {
		t.Description = strings.TrimSpace(*u.Description)
	}
	if u.TransactionDate != nil {
		t.TransactionDate = u.TransactionDate.In(time.UTC)
	}
	if u.IsRecurring != nil {
		t.IsRecurring = *u.IsRecurring
	}
	if u.RecurringPattern != nil {
		t.RecurringPattern = strings.TrimSpace(*u.RecurringPattern)
	}
	if u.Metadata != nil {
		t.Metadata = u.Metadata
	}
	return t
}
