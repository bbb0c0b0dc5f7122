package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Categories reads and writes categories.
type Categories struct {
	db *gorm.DB
}

func NewCategories(db *gorm.DB) Categories {
	return Categories{db: db}
}

type CategoryCreate struct {
	Name     string                 `json:"name" example:"Groceries"`
	Type     models.TransactionType `json:"type" example:"EXPENSE"`
	Icon     string                 `json:"icon" example:"cart"`
	Color    string                 `json:"color" example:"#ff9800"`
	IsActive *bool                  `json:"isActive" example:"true"` // Defaults to true
}

type CategoryUpdate struct {
	Name     *string                 `json:"name" example:"Food"`
	Type     *models.TransactionType `json:"type" example:"EXPENSE"`
	Icon     *string                 `json:"icon" example:"cart"`
	Color    *string                 `json:"color" example:"#ff9800"`
	IsActive *bool                   `json:"isActive" example:"false"`
}

type CategoryFilter struct {
	Type   models.TransactionType
	Active *bool
}

// Get returns the category of the user with the given ID.
func (s Categories) Get(ctx context.Context, userID, id uuid.UUID) (models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).First(&category, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return models.Category{}, err
	}

	categories := []models.Category{category}
	if err := s.withMonthlySpending(ctx, categories); err != nil {
		return models.Category{}, err
	}
	return categories[0], nil
}

// List returns the categories of a user, ordered by name.
func (s Categories) List(ctx context.Context, userID uuid.UUID, filter CategoryFilter) ([]models.Category, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	var categories []models.Category
	if err := query.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}

	return categories, s.withMonthlySpending(ctx, categories)
}

func (s Categories) Create(ctx context.Context, userID uuid.UUID, in CategoryCreate) (models.Category, error) {
	category := models.Category{
		UserID:   userID,
		Name:     in.Name,
		Type:     in.Type,
		Icon:     in.Icon,
		Color:    in.Color,
		IsActive: in.IsActive == nil || *in.IsActive,
	}

	err := s.db.WithContext(ctx).Create(&category).Error
	category.Stats.MonthlySpending = map[string]decimal.Decimal{}
	return category, err
}

// Update merges the non-nil fields of in into the category.
func (s Categories) Update(ctx context.Context, userID, id uuid.UUID, in CategoryUpdate) (models.Category, error) {
	category, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.Category{}, err
	}

	if in.Name != nil {
		category.Name = *in.Name
	}
	if in.Type != nil {
		category.Type = *in.Type
	}
	if in.Icon != nil {
		category.Icon = *in.Icon
	}
	if in.Color != nil {
		category.Color = *in.Color
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	err = s.db.WithContext(ctx).Model(&category).Select("name", "type", "icon", "color", "is_active").Updates(&category).Error
	return category, err
}

// Delete soft-deletes the category. Transactions keep referencing it.
func (s Categories) Delete(ctx context.Context, userID, id uuid.UUID) error {
	category, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Delete(&category).Error
}

func (s Categories) withMonthlySpending(ctx context.Context, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}

	var rows []models.CategoryMonthSpending
	err := s.db.WithContext(ctx).Where("category_id IN ?", ids).Order("month ASC").Find(&rows).Error
	if err != nil {
		return err
	}

	byCategory := make(map[uuid.UUID]map[string]decimal.Decimal, len(categories))
	for _, row := range rows {
		if row.Amount.IsZero() {
			continue
		}
		if byCategory[row.CategoryID] == nil {
			byCategory[row.CategoryID] = make(map[string]decimal.Decimal)
		}
		byCategory[row.CategoryID][row.Month] = row.Amount
	}

	for i := range categories {
		spending := byCategory[categories[i].ID]
		if spending == nil {
			spending = map[string]decimal.Decimal{}
		}
		categories[i].Stats.MonthlySpending = spending
	}

	return nil
}
