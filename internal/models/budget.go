package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetPeriod is the length of a budget's cycle.
type BudgetPeriod string

const (
	BudgetPeriodDaily   BudgetPeriod = "DAILY"
	BudgetPeriodWeekly  BudgetPeriod = "WEEKLY"
	BudgetPeriodMonthly BudgetPeriod = "MONTHLY"
	BudgetPeriodYearly  BudgetPeriod = "YEARLY"
)

func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodDaily, BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
		return true
	}
	return false
}

// End returns the last day of a period starting at start.
func (p BudgetPeriod) End(start time.Time) time.Time {
	switch p {
	case BudgetPeriodDaily:
		return start
	case BudgetPeriodWeekly:
		return start.AddDate(0, 0, 6)
	case BudgetPeriodYearly:
		return start.AddDate(1, 0, -1)
	default:
		return start.AddDate(0, 1, -1)
	}
}

// AllocationStatus describes how much of an allocation has been spent.
type AllocationStatus string

const (
	AllocationStatusOnTrack  AllocationStatus = "ON_TRACK"
	AllocationStatusWarning  AllocationStatus = "WARNING"
	AllocationStatusExceeded AllocationStatus = "EXCEEDED"
)

var warningThreshold = decimal.NewFromFloat(0.8)

// StatusFor derives the status of an allocation from its amount and spent value.
func StatusFor(amount, spent decimal.Decimal) AllocationStatus {
	switch {
	case spent.GreaterThan(amount):
		return AllocationStatusExceeded
	case spent.GreaterThan(amount.Mul(warningThreshold)):
		return AllocationStatusWarning
	default:
		return AllocationStatusOnTrack
	}
}

// Budget caps spending for a set of categories over a time window.
type Budget struct {
	DefaultModel
	UserID     uuid.UUID                   `json:"userId" gorm:"type:uuid;index" example:"4e743e94-6a4b-44d6-aba5-d77c87103ff7"`
	Name       string                      `json:"name" example:"January"`
	Amount     decimal.Decimal             `json:"amount" gorm:"type:DECIMAL(20,8)" example:"1500"`
	Period     BudgetPeriod                `json:"period" example:"MONTHLY"`
	StartDate  time.Time                   `json:"startDate" example:"2024-01-01T00:00:00Z"`
	EndDate    time.Time                   `json:"endDate" example:"2024-01-31T00:00:00Z"` // Inclusive
	IsActive   bool                        `json:"isActive" example:"true"`
	Stats      BudgetStats                 `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`
	Categories map[string]BudgetAllocation `json:"categories" gorm:"-"`
	// Allocations is the stored form of Categories
	Allocations []BudgetAllocation `json:"-"`
}

// BudgetStats are derived from the budget's allocations.
type BudgetStats struct {
	TotalAllocated decimal.Decimal `json:"totalAllocated" gorm:"type:DECIMAL(20,8)" example:"1500"`
	TotalSpent     decimal.Decimal `json:"totalSpent" gorm:"type:DECIMAL(20,8)" example:"620.40"`
	TotalRemaining decimal.Decimal `json:"totalRemaining" gorm:"type:DECIMAL(20,8)" example:"879.60"`
	ComplianceRate decimal.Decimal `json:"complianceRate" gorm:"type:DECIMAL(20,8)" example:"0.75"` // Share of allocations that are not exceeded
}

// BudgetAllocation is the amount of a budget assigned to one category.
type BudgetAllocation struct {
	DefaultModel
	BudgetID   uuid.UUID        `json:"-" gorm:"type:uuid;uniqueIndex:allocation_budget_key"`
	Key        string           `json:"-" gorm:"column:category_key;uniqueIndex:allocation_budget_key"`
	CategoryID uuid.UUID        `json:"categoryId" gorm:"type:uuid;index" example:"b1c6d4b4-1a07-4e41-9d89-38e2a1b3c0a7"`
	Amount     decimal.Decimal  `json:"amount" gorm:"type:DECIMAL(20,8)" example:"400"`
	Spent      decimal.Decimal  `json:"spent" gorm:"type:DECIMAL(20,8)" example:"350"`
	Remaining  decimal.Decimal  `json:"remaining" gorm:"type:DECIMAL(20,8)" example:"50"`
	Status     AllocationStatus `json:"status" example:"WARNING"`
}

// BeforeSave keeps remaining and status consistent with amount and spent.
func (a *BudgetAllocation) BeforeSave(_ *gorm.DB) error {
	if a.Amount.IsNegative() {
		return ValidationError{Field: "amount", Reason: "an allocation must not be negative"}
	}

	a.Remaining = a.Amount.Sub(a.Spent)
	a.Status = StatusFor(a.Amount, a.Spent)
	return nil
}

func (b *Budget) AfterFind(tx *gorm.DB) (err error) {
	b.StartDate = b.StartDate.In(time.UTC)
	b.EndDate = b.EndDate.In(time.UTC)

	b.Categories = make(map[string]BudgetAllocation, len(b.Allocations))
	for _, a := range b.Allocations {
		b.Categories[a.Key] = a
	}

	return b.DefaultModel.AfterFind(tx)
}

func (b *Budget) BeforeSave(_ *gorm.DB) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if !b.Period.Valid() {
		return ValidationError{Field: "period", Reason: "must be one of DAILY, WEEKLY, MONTHLY, YEARLY"}
	}

	if b.Amount.IsNegative() {
		return ValidationError{Field: "amount", Reason: "must not be negative"}
	}

	b.StartDate = Day(b.StartDate)
	if b.EndDate.IsZero() {
		b.EndDate = b.Period.End(b.StartDate)
	}
	b.EndDate = Day(b.EndDate)

	if b.EndDate.Before(b.StartDate) {
		return ValidationError{Field: "endDate", Reason: "must not be before the start date"}
	}

	return nil
}

// RefreshStats recomputes the stats from the allocations.
//
// The compliance rate is the share of allocations that are not exceeded,
// a budget without allocations is fully compliant.
func (b *Budget) RefreshStats() {
	stats := BudgetStats{
		TotalAllocated: decimal.Zero,
		TotalSpent:     decimal.Zero,
		TotalRemaining: decimal.Zero,
		ComplianceRate: decimal.NewFromInt(1),
	}

	compliant := 0
	for _, a := range b.Allocations {
		stats.TotalAllocated = stats.TotalAllocated.Add(a.Amount)
		stats.TotalSpent = stats.TotalSpent.Add(a.Spent)
		stats.TotalRemaining = stats.TotalRemaining.Add(a.Amount.Sub(a.Spent))

		if StatusFor(a.Amount, a.Spent) != AllocationStatusExceeded {
			compliant++
		}
	}

	if len(b.Allocations) > 0 {
		stats.ComplianceRate = decimal.NewFromInt(int64(compliant)).DivRound(decimal.NewFromInt(int64(len(b.Allocations))), 4)
	}

	b.Stats = stats
}

// Contains reports whether t falls on a day within the budget window.
func (b Budget) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(b.StartDate)) && !d.After(Day(b.EndDate))
}

// Allocation returns the allocation for categoryID, if the budget has one.
func (b Budget) Allocation(categoryID uuid.UUID) (BudgetAllocation, bool) {
	for _, a := range b.Allocations {
		if a.CategoryID == categoryID {
			return a, true
		}
	}
	return BudgetAllocation{}, false
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.In(time.UTC)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
