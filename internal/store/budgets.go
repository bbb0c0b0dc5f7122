package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Budgets reads and writes budgets and their allocations.
//
// Spent, remaining and status of allocations are maintained by the budget
// reconciler. The store only creates allocations with nothing spent.
type Budgets struct {
	db *gorm.DB
}

func NewBudgets(db *gorm.DB) Budgets {
	return Budgets{db: db}
}

type AllocationInput struct {
	CategoryID uuid.UUID       `json:"categoryId" example:"b1c6d4b4-1a07-4e41-9d89-38e2a1b3c0a7"`
	Amount     decimal.Decimal `json:"amount" example:"400"`
}

type BudgetCreate struct {
	Name       string                     `json:"name" example:"January"`
	Amount     decimal.Decimal            `json:"amount" example:"1500"`
	Period     models.BudgetPeriod        `json:"period" example:"MONTHLY"`
	StartDate  time.Time                  `json:"startDate" example:"2024-01-01T00:00:00Z"`
	EndDate    *time.Time                 `json:"endDate" example:"2024-01-31T00:00:00Z"` // Defaults to the end of the first period
	IsActive   *bool                      `json:"isActive" example:"true"`                // Defaults to true
	Categories map[string]AllocationInput `json:"categories"`
}

type BudgetUpdate struct {
	Name      *string              `json:"name" example:"February"`
	Amount    *decimal.Decimal     `json:"amount" example:"1600"`
	Period    *models.BudgetPeriod `json:"period" example:"MONTHLY"`
	StartDate *time.Time           `json:"startDate" example:"2024-02-01T00:00:00Z"`
	EndDate   *time.Time           `json:"endDate" example:"2024-02-29T00:00:00Z"`
	IsActive  *bool                `json:"isActive" example:"false"`
	// Allocations to add or change. A null value removes the allocation.
	Categories map[string]*AllocationInput `json:"categories"`
}

type BudgetFilter struct {
	Active     *bool
	Period     models.BudgetPeriod
	CategoryID uuid.UUID // Only budgets with an allocation for this category
	From       time.Time // Only budgets whose window overlaps [From, Until]
	Until      time.Time
}

func (s Budgets) Get(ctx context.Context, userID, id uuid.UUID) (models.Budget, error) {
	var budget models.Budget
	err := s.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("category_key ASC") }).
		First(&budget, "id = ? AND user_id = ?", id, userID).Error
	return budget, err
}

// List returns the budgets of a user, ordered by start date.
func (s Budgets) List(ctx context.Context, userID uuid.UUID, filter BudgetFilter) ([]models.Budget, error) {
	query := s.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("category_key ASC") }).
		Where("budgets.user_id = ?", userID)

	if filter.Active != nil {
		query = query.Where("budgets.is_active = ?", *filter.Active)
	}
	if filter.Period != "" {
		query = query.Where("budgets.period = ?", filter.Period)
	}
	if filter.CategoryID != uuid.Nil {
		query = query.Where("EXISTS (SELECT 1 FROM budget_allocations a WHERE a.budget_id = budgets.id AND a.category_id = ? AND a.deleted_at IS NULL)", filter.CategoryID)
	}
	if !filter.From.IsZero() {
		query = query.Where("budgets.end_date >= ?", dateString(filter.From))
	}
	if !filter.Until.IsZero() {
		query = query.Where("budgets.start_date < ?", dateString(filter.Until.AddDate(0, 0, 1)))
	}

	var budgets []models.Budget
	err := query.Order("budgets.start_date ASC, budgets.name ASC").Find(&budgets).Error
	return budgets, err
}

// Create creates a budget with its allocations. Nothing is spent on a new
// allocation until the budget is reconciled.
func (s Budgets) Create(ctx context.Context, userID uuid.UUID, in BudgetCreate) (models.Budget, error) {
	budget := models.Budget{
		UserID:    userID,
		Name:      in.Name,
		Amount:    in.Amount,
		Period:    in.Period,
		StartDate: in.StartDate,
		IsActive:  in.IsActive == nil || *in.IsActive,
	}
	if in.EndDate != nil {
		budget.EndDate = *in.EndDate
	}

	for key, a := range in.Categories {
		budget.Allocations = append(budget.Allocations, newAllocation(key, a))
	}
	budget.RefreshStats()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCategories(tx, userID, in.Categories); err != nil {
			return err
		}
		return tx.Create(&budget).Error
	})
	if err != nil {
		return models.Budget{}, err
	}

	return s.Get(ctx, userID, budget.ID)
}

// Update merges the non-nil fields of in into the budget.
func (s Budgets) Update(ctx context.Context, userID, id uuid.UUID, in BudgetUpdate) (models.Budget, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var budget models.Budget
		if err := tx.Preload("Allocations").First(&budget, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return err
		}

		if in.Name != nil {
			budget.Name = *in.Name
		}
		if in.Amount != nil {
			budget.Amount = *in.Amount
		}
		if in.Period != nil {
			budget.Period = *in.Period
		}
		if in.StartDate != nil {
			budget.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			budget.EndDate = *in.EndDate
		}
		if in.IsActive != nil {
			budget.IsActive = *in.IsActive
		}

		added := make(map[string]AllocationInput)
		for key, a := range in.Categories {
			if a != nil {
				added[key] = *a
			}
		}
		if err := checkCategories(tx, userID, added); err != nil {
			return err
		}

		allocations := make([]models.BudgetAllocation, 0, len(budget.Allocations))
		for _, existing := range budget.Allocations {
			a, changed := in.Categories[existing.Key]
			switch {
			case !changed:
				allocations = append(allocations, existing)
			case a == nil:
				// Removed for good, the key is unique per budget and may be added again
				if err := tx.Unscoped().Delete(&existing).Error; err != nil {
					return err
				}
			default:
				existing.CategoryID = a.CategoryID
				existing.Amount = a.Amount
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				allocations = append(allocations, existing)
				delete(added, existing.Key)
			}
		}

		for key, a := range added {
			allocation := newAllocation(key, a)
			allocation.BudgetID = budget.ID
			if err := tx.Create(&allocation).Error; err != nil {
				return err
			}
			allocations = append(allocations, allocation)
		}

		budget.Allocations = allocations
		budget.RefreshStats()
		return tx.Omit(clause.Associations).Save(&budget).Error
	})
	if err != nil {
		return models.Budget{}, err
	}

	return s.Get(ctx, userID, id)
}

// Delete soft-deletes the budget and its allocations. The allocations stay
// with the deleted budget, unlike the ones removed by Update.
func (s Budgets) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var budget models.Budget
		if err := tx.First(&budget, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return err
		}

		if err := tx.Where("budget_id = ?", id).Delete(&models.BudgetAllocation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&budget).Error
	})
}

func newAllocation(key string, in AllocationInput) models.BudgetAllocation {
	if key == "" {
		key = in.CategoryID.String()
	}

	return models.BudgetAllocation{
		Key:        key,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Spent:      decimal.Zero,
	}
}

// checkCategories verifies that all allocated categories belong to the user.
func checkCategories(tx *gorm.DB, userID uuid.UUID, allocations map[string]AllocationInput) error {
	for key, a := range allocations {
		var count int64
		err := tx.Model(&models.Category{}).Where("id = ? AND user_id = ?", a.CategoryID, userID).Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			return models.ValidationError{Field: "categories." + key, Reason: "the category does not exist"}
		}
	}
	return nil
}
