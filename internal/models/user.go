package models

import (
	"strings"

	"gorm.io/gorm"
)

// User owns accounts, categories, budgets and transactions.
type User struct {
	DefaultModel
	Name  string    `json:"name" example:"Alex"`
	Email string    `json:"email" gorm:"uniqueIndex" example:"alex@example.com"`
	Stats UserStats `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`
}

// UserStats holds the counters the ledger maintains for a user.
type UserStats struct {
	TransactionCount int64 `json:"transactionCount" example:"42"` // Number of active transactions
}

func (u *User) BeforeSave(_ *gorm.DB) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if u.Name == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if !strings.Contains(u.Email, "@") {
		return ValidationError{Field: "email", Reason: "must be an email address"}
	}

	return nil
}
