package models

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var starterCategories []byte

type starterCategory struct {
	Name  string          `yaml:"name"`
	Type  TransactionType `yaml:"type"`
	Icon  string          `yaml:"icon"`
	Color string          `yaml:"color"`
}

// StarterCategories returns the default categories for a new user.
func StarterCategories(userID uuid.UUID) ([]Category, error) {
	var starters []starterCategory
	if err := yaml.Unmarshal(starterCategories, &starters); err != nil {
		return nil, fmt.Errorf("parsing starter categories: %w", err)
	}

	categories := make([]Category, 0, len(starters))
	for _, s := range starters {
		categories = append(categories, Category{
			UserID:    userID,
			Name:      s.Name,
			Type:      s.Type,
			Icon:      s.Icon,
			Color:     s.Color,
			IsDefault: true,
			IsActive:  true,
		})
	}

	return categories, nil
}
