package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category classifies transactions. A category can be used by budgets.
type Category struct {
	DefaultModel
	UserID    uuid.UUID       `json:"userId" gorm:"type:uuid;uniqueIndex:category_user_name" example:"4e743e94-6a4b-44d6-aba5-d77c87103ff7"`
	Name      string          `json:"name" gorm:"uniqueIndex:category_user_name" example:"Groceries"`
	Type      TransactionType `json:"type" example:"EXPENSE"`
	Icon      string          `json:"icon" example:"cart"`
	Color     string          `json:"color" example:"#ff9800"`
	IsDefault bool            `json:"isDefault" example:"false"` // Created as one of the starter categories
	IsActive  bool            `json:"isActive" example:"true"`
	Stats     CategoryStats   `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`
}

// CategoryStats holds the aggregates the ledger maintains for a category.
type CategoryStats struct {
	LastCalculated  *time.Time                 `json:"lastCalculated" example:"2024-01-15T10:30:00Z"`
	MonthlySpending map[string]decimal.Decimal `json:"monthlySpending" gorm:"-"`
}

// CategoryMonthSpending is the sum of transaction amounts of a category in one month.
type CategoryMonthSpending struct {
	CategoryID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Month      string          `gorm:"primaryKey;size:7"`
	Amount     decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
}

func (c *Category) AfterFind(tx *gorm.DB) (err error) {
	if c.Stats.LastCalculated != nil {
		t := c.Stats.LastCalculated.In(time.UTC)
		c.Stats.LastCalculated = &t
	}
	return c.DefaultModel.AfterFind(tx)
}

func (c *Category) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if !c.Type.Valid() {
		return ValidationError{Field: "type", Reason: "must be INCOME or EXPENSE"}
	}

	return nil
}

// Usable reports whether new transactions may be recorded against the category.
func (c Category) Usable() bool {
	return c.IsActive && c.Active()
}
