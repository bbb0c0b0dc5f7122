package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

// AccountType is the kind of a financial account.
type AccountType string

const (
	AccountTypeChecking   AccountType = "CHECKING"
	AccountTypeSavings    AccountType = "SAVINGS"
	AccountTypeCreditCard AccountType = "CREDIT_CARD"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeInvestment AccountType = "INVESTMENT"
)

// DefaultCurrency is used for accounts created without a currency.
const DefaultCurrency = "USD"

// Valid reports whether the account type is one of the known types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard, AccountTypeCash, AccountTypeInvestment:
		return true
	}
	return false
}

// Account is a financial account belonging to a user.
type Account struct {
	DefaultModel
	UserID   uuid.UUID       `json:"userId" gorm:"type:uuid;index" example:"4e743e94-6a4b-44d6-aba5-d77c87103ff7"`
	Name     string          `json:"name" example:"Checking"`
	Type     AccountType     `json:"accountType" example:"CHECKING"`
	Balance  decimal.Decimal `json:"balance" gorm:"type:DECIMAL(20,8)" example:"1250.75"`
	Currency string          `json:"currency" example:"USD"`
	Stats    AccountStats    `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`
	IsActive bool            `json:"isActive" gorm:"-"`
}

// AccountStats are maintained by the ledger on every write affecting the account.
type AccountStats struct {
	PendingTransactions     int64            `json:"pendingTransactions" example:"3"`
	LastSync                *time.Time       `json:"lastSync" example:"2024-01-15T10:30:00Z"`
	MonthlyTransactionCount map[string]int64 `json:"monthlyTransactionCount" gorm:"-"`
}

// AccountMonthStat is one entry of an account's monthly transaction count.
type AccountMonthStat struct {
	AccountID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Month            string    `gorm:"primaryKey;size:7"`
	TransactionCount int64
}

func (a *Account) AfterFind(tx *gorm.DB) (err error) {
	a.IsActive = a.Active()
	if a.Stats.LastSync != nil {
		t := a.Stats.LastSync.In(time.UTC)
		a.Stats.LastSync = &t
	}
	return a.DefaultModel.AfterFind(tx)
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.Type == AccountTypeCreditCard && a.Balance.IsPositive() {
		return ValidationError{Field: "balance", Reason: "a credit card account must start with a balance of zero or less"}
	}

	return a.DefaultModel.BeforeCreate(tx)
}

func (a *Account) BeforeSave(_ *gorm.DB) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if !a.Type.Valid() {
		return ValidationError{Field: "accountType", Reason: "must be one of CHECKING, SAVINGS, CREDIT_CARD, CASH, INVESTMENT"}
	}

	c, err := NormalizeCurrency(a.Currency)
	if err != nil {
		return err
	}
	a.Currency = c

	return nil
}

// NormalizeCurrency returns the upper case ISO 4217 code for c.
// An empty code yields DefaultCurrency.
func NormalizeCurrency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency, nil
	}

	unit, err := currency.ParseISO(c)
	if err != nil {
		return "", ValidationError{Field: "currency", Reason: "must be an ISO 4217 currency code"}
	}

	return unit.String(), nil
}

// IsCredit reports whether the account may carry a negative balance.
func (a Account) IsCredit() bool {
	return a.Type == AccountTypeCreditCard
}
